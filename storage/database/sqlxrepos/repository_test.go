package sqlxrepos

import (
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/progress"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/tests"
)

type env struct {
	db          *sqlx.DB
	usrRepo     user.Repository
	crsRepo     course.Repository
	prgRepo     progress.Repository
	statsRepo   analytics.Repository
	usrSvc      user.Service
	crsSvc      course.Service
	prgSvc      progress.Service
	analyticSvc analytics.Service
}

func setup(t *testing.T) *env {
	db := testutil.PrepareDB(t)
	e := &env{
		db:        db,
		usrRepo:   NewUserRepository(db),
		crsRepo:   NewCourseRepository(db),
		prgRepo:   NewProgressRepository(db),
		statsRepo: NewAnalyticsRepository(db),
	}
	e.usrSvc = user.NewService(db, e.usrRepo, emailsvc.NewConsoleServiceMock(testutil.Config()))
	e.crsSvc = course.NewService(db, e.crsRepo)
	e.prgSvc = progress.NewService(db, e.prgRepo, e.crsSvc)
	e.analyticSvc = analytics.NewService(e.statsRepo, e.crsSvc)
	return e
}

func count(t *testing.T, db *sqlx.DB, table string) int {
	var n int
	if err := db.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
		t.Fatalf("count(%s) failed: %v", table, err)
	}
	return n
}
