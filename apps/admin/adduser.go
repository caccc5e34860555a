package main

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser updates or creates a user.User. Accounts created here are active
// and pre-verified; they skip the email confirmation flow.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin, isInstructor bool) error {
	var usr user.User
	var err error
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}}); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username: uname,
			Email:    email,
		}
	}
	switch {
	case isAdmin:
		usr.Roles = user.AllRoles
	case isInstructor:
		usr.Roles = user.InstructorRoles
	}
	usr.IsActive = true
	usr.IsVerified = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
