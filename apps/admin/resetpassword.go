package main

import (
	"context"
	"fmt"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	if err := user.ValidatePassword(pwd); err != nil {
		return err
	}
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	if err := cli.usrSvc.ResetPassword(ctx, usr.ID, pwd); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "Password of '%s' has been reset.\n", usr.Username)
	return nil
}
