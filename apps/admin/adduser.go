package main

import (
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type addUserOpts struct {
	username   string
	email      string
	name       string
	password   string
	isAdmin    bool
	isTeacher  bool
	isStudent  bool
	rollNumber string
	department string
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(opts addUserOpts) error {
	uname := core.CleanString(opts.username, true /* lower */)
	email := core.CleanString(opts.email, true /* lower */)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if opts.name != "" {
		usr.Name = core.CleanString(opts.name)
	}
	if opts.rollNumber != "" {
		usr.RollNumber = core.CleanString(opts.rollNumber)
	}
	if opts.department != "" {
		usr.Department = core.CleanString(opts.department)
	}
	switch {
	case opts.isAdmin:
		usr.Roles = user.AllRoles
	case opts.isTeacher:
		usr.Roles = user.TeacherRoles
	case opts.isStudent:
		usr.Roles = user.StudentRoles
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(opts.password); err != nil {
		return err
	}

	if usr.ID == 0 {
		_, err = cli.usrRepo.CreateUser(usr)
	} else {
		isActive := true
		_, err = cli.usrRepo.UpdateUser(usr, &isActive)
	}
	return err
}
