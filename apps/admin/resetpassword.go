package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	return cli.setPassword(ctx, usr, pwd)
}

func (cli *commandLine) setPassword(ctx context.Context, usr user.User, pwd string) error {
	sp := user.SetPassword{Password: pwd, PasswordConfirm: pwd}
	if err := sp.Validate(usr, cli.validate); err != nil {
		return err
	}
	_, err := cli.usrSvc.SetPassword(ctx, usr, pwd)
	return errors.Wrap(err, "setting password")
}
