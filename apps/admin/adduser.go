package main

import (
	"context"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/user"
)

// addUser updates or creates a user.User. The account comes out verified.
func (cli *commandLine) addUser(email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Email:     email,
			Role:      user.RoleStudent,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	usr.IsVerified = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == 0 {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		usr.UpdatedAt = time.Now().UTC()
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
