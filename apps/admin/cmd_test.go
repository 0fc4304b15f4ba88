package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database/sqlxrepos"
	"github.com/trezcool/elimu/tests"
)

func setup(t *testing.T, input string) (*commandLine, *bytes.Buffer) {
	// set up DB & services
	db := testutil.PrepareDB(t)
	out := new(bytes.Buffer)

	// start CLI
	return &commandLine{
		db:       db,
		usrSvc:   user.NewService(db, sqlxrepos.NewUserRepository(db), nil /* mailSvc */),
		validate: testutil.NewValidator(),
		in:       bufio.NewReader(strings.NewReader(input)),
		out:      out,
	}, out
}

// mockPasswords makes readPasswordFunc return pwds in order.
func mockPasswords(t *testing.T, pwds ...string) {
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })
	readPasswordFunc = func(int) ([]byte, error) {
		if len(pwds) == 0 {
			return nil, nil
		}
		pwd := pwds[0]
		pwds = pwds[1:]
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLI(cli *commandLine, args []string) error {
	return cli.run(append([]string{"admin"}, args...))
}

func Test_commandLine_root(t *testing.T) {
	cli, out := setup(t, "")

	assert.Equal(t, errHelp, runCLI(cli, nil))
	assert.Contains(t, out.String(), "createadmin")
	assert.Contains(t, out.String(), "resetpassword")
	assert.Contains(t, out.String(), "migrate")

	err := runCLI(cli, []string{"lol"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "lol"`)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t, "")

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runCLI(cli, tt.args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrateRealDB(t *testing.T) {
	cli, _ := setup(t, "")

	require.NoError(t, runCLI(cli, []string{"migrate", "status"}))
	require.NoError(t, runCLI(cli, []string{"migrate", "version"}))
}

func Test_commandLine_createAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("interactive", func(t *testing.T) {
		cli, out := setup(t, "Boss\nBoss@Test.cd\nBig\nBoss\n")
		mockPasswords(t, "pass1234", "pass1234")

		require.NoError(t, runCLI(cli, []string{"createadmin"}))
		assert.Contains(t, out.String(), "Administrator 'boss' created successfully.")

		usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, "boss@test.cd")
		require.NoError(t, err)
		assert.Equal(t, []user.Role{user.RoleAdmin}, usr.Roles)

		tp, err := cli.usrSvc.TeacherProfile(ctx, usr.ID)
		require.NoError(t, err)
		assert.Equal(t, "Administrator", tp.Title)
		assert.Equal(t, "Big", tp.FirstName)

		_, err = cli.usrSvc.Authenticate(ctx, "boss@test.cd", "pass1234")
		assert.NoError(t, err)
	})

	t.Run("flags", func(t *testing.T) {
		cli, _ := setup(t, "")
		mockPasswords(t, "pass1234", "pass1234")

		args := []string{"createadmin", "--username", "root", "--email", "root@test.cd", "--first-name", "Ro", "--last-name", "Ot"}
		require.NoError(t, runCLI(cli, args))

		_, err := cli.usrSvc.GetByUsernameOrEmail(ctx, "root")
		assert.NoError(t, err)
	})

	t.Run("password mismatch", func(t *testing.T) {
		cli, _ := setup(t, "boss\nboss@test.cd\nBig\nBoss\n")
		mockPasswords(t, "pass1234", "pass4321")

		assert.Equal(t, errPasswordMismatch, runCLI(cli, []string{"createadmin"}))
	})

	t.Run("weak password", func(t *testing.T) {
		cli, _ := setup(t, "boss\nboss@test.cd\nBig\nBoss\n")
		mockPasswords(t, "short", "short")

		assert.Error(t, runCLI(cli, []string{"createadmin"}))
		_, err := cli.usrSvc.GetByUsernameOrEmail(ctx, "boss")
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("duplicate", func(t *testing.T) {
		cli, _ := setup(t, "")
		testutil.CreateStudent(t, cli.usrSvc, "boss", "Big", "Boss")
		mockPasswords(t, "pass1234", "pass1234")

		args := []string{"createadmin", "--username", "boss", "--email", "other@test.cd", "--first-name", "B", "--last-name", "B"}
		err := runCLI(cli, args)
		var conflict *core.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "username", conflict.Field)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	ctx := context.Background()
	cli, _ := setup(t, "")
	usr := testutil.CreateStudent(t, cli.usrSvc, "awe", "Awe", "Some")

	type test struct {
		cliTest
		pwd string
	}
	tests := []test{
		{cliTest: cliTest{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "username but no password", args: []string{"resetpassword", "--username", "awe"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, wantErr: user.ErrNotFound}, pwd: "newpass123"},
		{cliTest: cliTest{name: "weak password", args: []string{"resetpassword", "--username", "awe"}, wantErrStr: "password: password must contain at least 8 characters"}, pwd: "lol"},
		{cliTest: cliTest{name: "reset with username", args: []string{"resetpassword", "--username", "AWE"}}, pwd: "newpass123"},
		{cliTest: cliTest{name: "reset with email", args: []string{"resetpassword", "--username", usr.Email}}, pwd: "newpass456"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPasswords(t, tt.pwd)

			err := runCLI(cli, tt.args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				require.NoError(t, err)
				_, err = cli.usrSvc.Authenticate(ctx, usr.Email, tt.pwd)
				assert.NoError(t, err)
			}
		})
	}
}
