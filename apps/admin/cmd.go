package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword       // mockable
	gooseRunFunc     = database.RunMigrations // mockable

	errHelp             = errors.New("help provided")
	errPasswordMismatch = errors.New("passwords do not match")
)

type commandLine struct {
	db       *sqlx.DB
	usrSvc   user.Service
	validate *validator.Validate
	in       *bufio.Reader
	out      io.Writer
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	return root.ExecuteContext(context.Background())
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Elimu administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.AddCommand(cli.createAdminCmd(), cli.resetPasswordCmd(), cli.migrateCmd())
	return root
}

func (cli *commandLine) createAdminCmd() *cobra.Command {
	var reg user.Registration
	cmd := &cobra.Command{
		Use:   "createadmin",
		Short: "Create an administrator account (prompts for missing fields)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prompts := []struct {
				label string
				dst   *string
			}{
				{"Username", &reg.Username},
				{"Email", &reg.Email},
				{"First name", &reg.FirstName},
				{"Last name", &reg.LastName},
			}
			for _, p := range prompts {
				if *p.dst != "" {
					continue
				}
				v, err := cli.prompt(p.label)
				if err != nil {
					return err
				}
				*p.dst = v
			}

			pwd, err := cli.readPassword("Password")
			if err != nil {
				return err
			}
			confirm, err := cli.readPassword("Confirm password")
			if err != nil {
				return err
			}
			if pwd != confirm {
				return errPasswordMismatch
			}
			reg.Password = pwd

			return cli.createAdmin(cmd.Context(), reg)
		},
	}
	cmd.Flags().StringVar(&reg.Username, "username", "", "the admin's username")
	cmd.Flags().StringVar(&reg.Email, "email", "", "the admin's email")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "the admin's first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "the admin's last name")
	return cmd
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password; the password is prompted next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uname == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.readPassword("Enter password")
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.resetPassword(cmd.Context(), uname, pwd)
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "the user's username or email")
	return cmd
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate COMMAND [ARGS...]",
		Short:              "Run a migration command: up, up-by-one, up-to, down, down-to, redo, reset, status, version",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(cmd.Context(), args)
		},
	}
}

func (cli *commandLine) prompt(label string) (string, error) {
	_, _ = fmt.Fprintf(cli.out, "%s: ", label)
	line, err := cli.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.Wrapf(err, "reading %s", strings.ToLower(label))
	}
	return strings.TrimSpace(line), nil
}

func (cli *commandLine) readPassword(label string) (string, error) {
	_, _ = fmt.Fprintf(cli.out, "%s: ", label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}
