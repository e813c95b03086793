package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// addUser creates a user, or sets the password of the existing one.
// With isAdmin, the user is granted all roles.
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "finding user by email")
	}

	if err == nil {
		if isAdmin {
			if usr, err = cli.usrSvc.Update(ctx, usr, user.UpdateUser{Roles: user.AllRoles}); err != nil {
				return errors.Wrap(err, "granting roles")
			}
		}
		return cli.setPassword(ctx, usr, pwd)
	}

	nu := user.NewUser{Name: name, Email: email, Password: pwd, PasswordConfirm: pwd}
	if isAdmin {
		nu.Roles = user.AllRoles
	}
	if err = nu.Validate(cli.validate); err != nil {
		return err
	}
	_, err = cli.usrSvc.Create(ctx, nu)
	return errors.Wrap(err, "creating user")
}
