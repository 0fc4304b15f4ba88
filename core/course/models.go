package course

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

type ContentType string

// Content types
const (
	ContentVideo      ContentType = "video"
	ContentArticle    ContentType = "article"
	ContentQuiz       ContentType = "quiz"
	ContentExercise   ContentType = "exercise"
	ContentAssignment ContentType = "assignment"
)

var ContentTypes = []ContentType{ContentVideo, ContentArticle, ContentQuiz, ContentExercise, ContentAssignment}

func (t ContentType) Valid() bool {
	for _, ct := range ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// NoAuthor is displayed for courses whose author is unknown.
const NoAuthor = "N/A"

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AuthorID    string    `json:"author_id,omitempty"` // teacher profile ID
	AuthorName  string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Module struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
}

type Content struct {
	ID        string      `json:"id"`
	ModuleID  string      `json:"module_id"`
	Type      ContentType `json:"type"`
	Title     string      `json:"title"`
	URL       string      `json:"url,omitempty"`
	Body      string      `json:"body,omitempty"`
	Order     int         `json:"order"`
	Quiz      []Question  `json:"-"`
	Tags      string      `json:"tags,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func (c Content) IsQuiz() bool {
	return c.Type == ContentQuiz
}

// TagList splits Tags on commas, lowering and trimming each tag.
func (c Content) TagList() []string {
	return SplitTags(c.Tags)
}

func SplitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := core.CleanString(p, true /* lower */); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// QuestionID accepts both JSON strings and numbers.
type QuestionID string

func (id *QuestionID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = QuestionID(n.String())
	return nil
}

type Question struct {
	ID            QuestionID `json:"id"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectOption int        `json:"correct_option"`
}

// PublicQuestion is a Question without its answer.
type PublicQuestion struct {
	ID      QuestionID `json:"id"`
	Text    string     `json:"text"`
	Options []string   `json:"options"`
}

type QuizView struct {
	ContentID string           `json:"content_id"`
	Title     string           `json:"title"`
	Questions []PublicQuestion `json:"questions"`
}

// QuizView strips the answer key from the quiz payload.
func (c Content) QuizView() QuizView {
	qs := make([]PublicQuestion, 0, len(c.Quiz))
	for i, q := range c.Quiz {
		opts := q.Options
		if opts == nil {
			opts = []string{}
		}
		qs = append(qs, PublicQuestion{ID: QuestionID(q.Key(i)), Text: q.Text, Options: opts})
	}
	return QuizView{ContentID: c.ID, Title: c.Title, Questions: qs}
}

// AnswerKey maps each question key to its correct option index.
func AnswerKey(questions []Question) map[string]int {
	key := make(map[string]int, len(questions))
	for i, q := range questions {
		key[q.Key(i)] = q.CorrectOption
	}
	return key
}

// Key is how answers address the question at index i: its ID, or the index
// itself when the ID is empty.
func (q Question) Key(i int) string {
	if q.ID == "" {
		return strconv.Itoa(i)
	}
	return string(q.ID)
}

// duplicateQuestionKey returns the first key shared by two questions, if any.
func duplicateQuestionKey(questions []Question) (string, bool) {
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		k := q.Key(i)
		if _, ok := seen[k]; ok {
			return k, true
		}
		seen[k] = struct{}{}
	}
	return "", false
}

// Tree is a course with its ordered modules and contents.
type Tree struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Author      string       `json:"author"`
	Modules     []ModuleNode `json:"modules"`
}

type ModuleNode struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Order       int           `json:"order"`
	Contents    []ContentNode `json:"contents"`
}

type ContentNode struct {
	ID     string      `json:"id"`
	Type   ContentType `json:"type"`
	Title  string      `json:"title"`
	URL    string      `json:"url,omitempty"`
	Body   string      `json:"body,omitempty"`
	Order  int         `json:"order"`
	Tags   string      `json:"tags,omitempty"`
	Status string      `json:"status,omitempty"`
}

// NewCourse contains information needed to create a course.
type NewCourse struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// NewModule contains information needed to add a module to a course.
type NewModule struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description"`
	Order       *int   `json:"order" validate:"required,min=0"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

// NewContent contains information needed to add a content item to a module.
// Payload fields are stored as supplied; a quiz only needs its questions present.
type NewContent struct {
	Title string      `json:"title" validate:"required,notblank,max=200"`
	Type  ContentType `json:"type" validate:"required,contenttype"`
	Order *int        `json:"order" validate:"required,min=0"`
	URL   string      `json:"url" validate:"omitempty,max=500"`
	Body  string      `json:"body"`
	Quiz  []Question  `json:"quiz" validate:"required_if=Type quiz"`
	Tags  string      `json:"tags" validate:"omitempty,max=255"`
}

func (nc *NewContent) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Type = ContentType(core.CleanString(string(nc.Type), true /* lower */))
	nc.URL = core.CleanString(nc.URL)
	nc.Tags = core.CleanString(nc.Tags)
	return validate.Struct(nc)
}
