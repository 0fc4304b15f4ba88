package user

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrNotFound               = core.NewNotFoundError("user not found")
	ErrStudentProfileNotFound = core.NewNotFoundError("student profile not found")
	ErrTeacherProfileNotFound = core.NewNotFoundError("teacher profile not found")
	ErrEmailExists            = errors.New("a user with this email already exists")
	ErrUsernameExists         = errors.New("a user with this username already exists")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrSelfDelete             = errors.New("you cannot delete your own account")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when taken.
		CheckUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		CreateStudentProfile(ctx context.Context, p StudentProfile, exec ...core.DBExecutor) (StudentProfile, error)
		CreateTeacherProfile(ctx context.Context, p TeacherProfile, exec ...core.DBExecutor) (TeacherProfile, error)
		GrantRole(ctx context.Context, userID string, role Role, grantedAt time.Time, exec ...core.DBExecutor) error
		// GetUser applies the first non-empty GetFilter field and loads the user's roles.
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// GetRoles returns ErrNotFound when the user does not exist.
		GetRoles(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Role, error)
		QuerySummaries(ctx context.Context, exec ...core.DBExecutor) ([]Summary, error)
		GetStudentProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (StudentProfile, error)
		GetTeacherProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (TeacherProfile, error)
		UpdatePassword(ctx context.Context, userID, hash string, updatedAt time.Time, exec ...core.DBExecutor) error
		// DeleteUserCascade removes the user with its attempts, progress, profiles
		// and role grants; authored courses are kept without an author.
		DeleteUserCascade(ctx context.Context, userID string, exec ...core.DBExecutor) error
	}

	Service interface {
		Register(ctx context.Context, reg Registration) (User, error)
		CreateStaff(ctx context.Context, ns NewStaff) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Roles(ctx context.Context, id string) ([]Role, error)
		QueryAll(ctx context.Context) ([]Summary, error)
		StudentProfile(ctx context.Context, userID string) (StudentProfile, error)
		TeacherProfile(ctx context.Context, userID string) (TeacherProfile, error)
		ResetPassword(ctx context.Context, userID, pwd string) error
		Delete(ctx context.Context, actorID, targetID string) (User, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, mailSvc core.EmailService) Service {
	return &service{
		db:      db,
		repo:    repo,
		mailSvc: mailSvc,
	}
}

// conflict converts uniqueness errors into a *core.ConflictError naming the field.
func conflict(err error) error {
	switch errors.Cause(err) {
	case ErrUsernameExists:
		return core.NewConflictError("username", ErrUsernameExists)
	case ErrEmailExists:
		return core.NewConflictError("email", ErrEmailExists)
	}
	return err
}

func newUser(reg Registration, now time.Time) (User, error) {
	usr := User{
		Username:  reg.Username,
		Email:     reg.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ValidatePassword(reg.Password); err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(reg.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return usr, nil
}

// createUser inserts the user row after checking uniqueness, inside tx.
func (svc *service) createUser(ctx context.Context, usr User, tx core.DBExecutor) (User, error) {
	if err := svc.repo.CheckUniqueness(ctx, usr.Username, usr.Email, tx); err != nil {
		return User{}, conflict(err)
	}
	created, err := svc.repo.CreateUser(ctx, usr, tx)
	if err != nil {
		return User{}, conflict(err)
	}
	return created, nil
}

func (svc *service) Register(ctx context.Context, reg Registration) (User, error) {
	now := core.Now()
	usr, err := newUser(reg, now)
	if err != nil {
		return User{}, err
	}

	err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if usr, err = svc.createUser(ctx, usr, tx); err != nil {
			return err
		}
		profile := StudentProfile{UserID: usr.ID, FirstName: reg.FirstName, LastName: reg.LastName, CreatedAt: now}
		if _, err := svc.repo.CreateStudentProfile(ctx, profile, tx); err != nil {
			return err
		}
		return svc.repo.GrantRole(ctx, usr.ID, RoleStudent, now, tx)
	})
	if err != nil {
		return User{}, err
	}

	usr.Roles = []Role{RoleStudent}
	svc.sendWelcomeMail(usr, reg.FirstName, RoleStudent)
	return usr, nil
}

func (svc *service) CreateStaff(ctx context.Context, ns NewStaff) (User, error) {
	if !ns.Role.IsStaff() {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: staffRoleText})
	}

	now := core.Now()
	usr, err := newUser(ns.Registration, now)
	if err != nil {
		return User{}, err
	}

	err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if usr, err = svc.createUser(ctx, usr, tx); err != nil {
			return err
		}
		profile := TeacherProfile{
			UserID:    usr.ID,
			FirstName: ns.FirstName,
			LastName:  ns.LastName,
			Title:     ns.Role.Title(),
			CreatedAt: now,
		}
		if _, err := svc.repo.CreateTeacherProfile(ctx, profile, tx); err != nil {
			return err
		}
		return svc.repo.GrantRole(ctx, usr.ID, ns.Role, now, tx)
	})
	if err != nil {
		return User{}, err
	}

	usr.Roles = []Role{ns.Role}
	svc.sendWelcomeMail(usr, ns.FirstName, ns.Role)
	return usr, nil
}

var (
	dummyHash     []byte
	dummyHashOnce sync.Once
)

// Authenticate looks the user up by email and checks pwd. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials after a bcrypt comparison.
func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, err
		}
		dummyHashOnce.Do(func() {
			dummyHash, _ = bcrypt.GenerateFromPassword([]byte("elimu-dummy-password"), bcrypt.DefaultCost)
		})
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(pwd))
		return User{}, ErrInvalidCredentials
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *service) Roles(ctx context.Context, id string) ([]Role, error) {
	return svc.repo.GetRoles(ctx, id)
}

func (svc *service) QueryAll(ctx context.Context) ([]Summary, error) {
	return svc.repo.QuerySummaries(ctx)
}

func (svc *service) StudentProfile(ctx context.Context, userID string) (StudentProfile, error) {
	return svc.repo.GetStudentProfile(ctx, userID)
}

func (svc *service) TeacherProfile(ctx context.Context, userID string) (TeacherProfile, error) {
	return svc.repo.GetTeacherProfile(ctx, userID)
}

func (svc *service) ResetPassword(ctx context.Context, userID, pwd string) error {
	if err := ValidatePassword(pwd); err != nil {
		return err
	}
	var usr User
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdatePassword(ctx, userID, usr.PasswordHash, core.Now())
}

func (svc *service) Delete(ctx context.Context, actorID, targetID string) (User, error) {
	if actorID == targetID {
		return User{}, ErrSelfDelete
	}

	var usr User
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if usr, err = svc.repo.GetUser(ctx, GetFilter{ID: targetID}, tx); err != nil {
			return err
		}
		return svc.repo.DeleteUserCascade(ctx, targetID, tx)
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *service) sendWelcomeMail(usr User, firstName string, role Role) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(welcomeMessage(usr, firstName, role))
}
