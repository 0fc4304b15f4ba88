package main

import (
	"context"
	"fmt"

	"github.com/trezcool/elimu/core/user"
)

// createAdmin provisions an administrator with a teacher profile titled "Administrator".
func (cli *commandLine) createAdmin(ctx context.Context, reg user.Registration) error {
	ns := user.NewStaff{Registration: reg, Role: user.RoleAdmin}
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.CreateStaff(ctx, ns)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "Administrator '%s' created successfully.\n", usr.Username)
	return nil
}
