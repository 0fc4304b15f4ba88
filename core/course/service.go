package course

import (
	"context"
	"sort"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrCourseNotFound  = core.NewNotFoundError("course not found")
	ErrModuleNotFound  = core.NewNotFoundError("module not found")
	ErrContentNotFound = core.NewNotFoundError("content not found")
	ErrQuizNotFound    = core.NewNotFoundError("quiz not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// QueryCourses returns all courses ordered by title, with their author's name.
		QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		CreateModule(ctx context.Context, m Module, exec ...core.DBExecutor) (Module, error)
		GetModule(ctx context.Context, id string, exec ...core.DBExecutor) (Module, error)
		QueryModules(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Module, error)
		CreateContent(ctx context.Context, c Content, exec ...core.DBExecutor) (Content, error)
		GetContent(ctx context.Context, id string, exec ...core.DBExecutor) (Content, error)
		// QueryCourseContents returns the contents of every module of the course.
		QueryCourseContents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Content, error)

		// Cascades remove the attempts and progress of every affected content first.
		DeleteCourseCascade(ctx context.Context, id string, exec ...core.DBExecutor) error
		DeleteModuleCascade(ctx context.Context, id string, exec ...core.DBExecutor) error
		DeleteContentCascade(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// StatusLookup gives the caller's progress status per content ID.
	StatusLookup func(contentID string) string

	Service interface {
		CreateCourse(ctx context.Context, nc NewCourse, authorID string) (Course, error)
		QueryAll(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// Tree builds the ordered module/content tree; status is nil when the
		// caller has no progress to show.
		Tree(ctx context.Context, courseID string, status StatusLookup) (Tree, error)
		CreateModule(ctx context.Context, courseID string, nm NewModule) (Module, error)
		GetModule(ctx context.Context, id string) (Module, error)
		CreateContent(ctx context.Context, moduleID string, nc NewContent) (Content, error)
		GetContent(ctx context.Context, id string) (Content, error)
		GetQuiz(ctx context.Context, contentID string) (Content, error)
		DeleteCourse(ctx context.Context, id string) (Course, error)
		DeleteModule(ctx context.Context, id string) (Module, error)
		DeleteContent(ctx context.Context, id string) (Content, error)
	}

	service struct {
		db   core.DB
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository) Service {
	return &service{db: db, repo: repo}
}

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse, authorID string) (Course, error) {
	now := core.Now()
	return svc.repo.CreateCourse(ctx, Course{
		Title:       nc.Title,
		Description: nc.Description,
		AuthorID:    authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Tree(ctx context.Context, courseID string, status StatusLookup) (Tree, error) {
	crs, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Tree{}, err
	}
	modules, err := svc.repo.QueryModules(ctx, courseID)
	if err != nil {
		return Tree{}, err
	}
	contents, err := svc.repo.QueryCourseContents(ctx, courseID)
	if err != nil {
		return Tree{}, err
	}
	return BuildTree(crs, modules, contents, status), nil
}

// BuildTree assembles a course tree with modules and contents sorted by order, then title.
func BuildTree(crs Course, modules []Module, contents []Content, status StatusLookup) Tree {
	author := crs.AuthorName
	if author == "" {
		author = NoAuthor
	}
	tree := Tree{
		ID:          crs.ID,
		Title:       crs.Title,
		Description: crs.Description,
		Author:      author,
		Modules:     make([]ModuleNode, 0, len(modules)),
	}

	byModule := make(map[string][]Content, len(modules))
	for _, c := range contents {
		byModule[c.ModuleID] = append(byModule[c.ModuleID], c)
	}

	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].Order != modules[j].Order {
			return modules[i].Order < modules[j].Order
		}
		return modules[i].Title < modules[j].Title
	})
	for _, m := range modules {
		items := byModule[m.ID]
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Order != items[j].Order {
				return items[i].Order < items[j].Order
			}
			return items[i].Title < items[j].Title
		})

		node := ModuleNode{
			ID:          m.ID,
			Title:       m.Title,
			Description: m.Description,
			Order:       m.Order,
			Contents:    make([]ContentNode, 0, len(items)),
		}
		for _, c := range items {
			cn := ContentNode{
				ID:    c.ID,
				Type:  c.Type,
				Title: c.Title,
				URL:   c.URL,
				Body:  c.Body,
				Order: c.Order,
				Tags:  c.Tags,
			}
			if status != nil {
				cn.Status = status(c.ID)
			}
			node.Contents = append(node.Contents, cn)
		}
		tree.Modules = append(tree.Modules, node)
	}
	return tree
}

func (svc *service) CreateModule(ctx context.Context, courseID string, nm NewModule) (Module, error) {
	var mod Module
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repo.GetCourse(ctx, courseID, tx); err != nil {
			return err
		}
		var err error
		mod, err = svc.repo.CreateModule(ctx, Module{
			CourseID:    courseID,
			Title:       nm.Title,
			Description: nm.Description,
			Order:       *nm.Order,
			CreatedAt:   core.Now(),
		}, tx)
		return err
	})
	return mod, err
}

func (svc *service) GetModule(ctx context.Context, id string) (Module, error) {
	return svc.repo.GetModule(ctx, id)
}

func (svc *service) CreateContent(ctx context.Context, moduleID string, nc NewContent) (Content, error) {
	var cnt Content
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repo.GetModule(ctx, moduleID, tx); err != nil {
			return err
		}
		var err error
		cnt, err = svc.repo.CreateContent(ctx, Content{
			ModuleID:  moduleID,
			Type:      nc.Type,
			Title:     nc.Title,
			URL:       nc.URL,
			Body:      nc.Body,
			Order:     *nc.Order,
			Quiz:      nc.Quiz,
			Tags:      nc.Tags,
			CreatedAt: core.Now(),
		}, tx)
		return err
	})
	return cnt, err
}

func (svc *service) GetContent(ctx context.Context, id string) (Content, error) {
	return svc.repo.GetContent(ctx, id)
}

// GetQuiz returns the content only when it is a quiz.
func (svc *service) GetQuiz(ctx context.Context, contentID string) (Content, error) {
	cnt, err := svc.repo.GetContent(ctx, contentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Content{}, ErrQuizNotFound
		}
		return Content{}, err
	}
	if !cnt.IsQuiz() {
		return Content{}, ErrQuizNotFound
	}
	return cnt, nil
}

func (svc *service) DeleteCourse(ctx context.Context, id string) (Course, error) {
	var crs Course
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if crs, err = svc.repo.GetCourse(ctx, id, tx); err != nil {
			return err
		}
		return svc.repo.DeleteCourseCascade(ctx, id, tx)
	})
	return crs, err
}

func (svc *service) DeleteModule(ctx context.Context, id string) (Module, error) {
	var mod Module
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if mod, err = svc.repo.GetModule(ctx, id, tx); err != nil {
			return err
		}
		return svc.repo.DeleteModuleCascade(ctx, id, tx)
	})
	return mod, err
}

func (svc *service) DeleteContent(ctx context.Context, id string) (Content, error) {
	var cnt Content
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if cnt, err = svc.repo.GetContent(ctx, id, tx); err != nil {
			return err
		}
		return svc.repo.DeleteContentCascade(ctx, id, tx)
	})
	return cnt, err
}
