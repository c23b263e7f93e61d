package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrRepo  user.Repository
	clsRepo  class.Repository
	sessRepo attendance.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-admin|-teacher|-student] - create or update a user; the password is prompted next")
	fmt.Println("  migrate up|down|version - apply schema migrations")
	fmt.Println("  seed - load demo users, classes and enrollments")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant all admin roles.")
	addUserTeacher := addUserCmd.Bool("teacher", false, "Grant the teacher role.")
	addUserStudent := addUserCmd.Bool("student", false, "Grant the student role.")
	addUserRoll := addUserCmd.String("roll", "", "The student's roll number.")
	addUserDept := addUserCmd.String("dept", "", "The teacher's department.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(addUserOpts{
			username:   *addUserUname,
			email:      *addUserEmail,
			name:       *addUserName,
			password:   string(pwd),
			isAdmin:    *addUserAdmin,
			isTeacher:  *addUserTeacher,
			isStudent:  *addUserStudent,
			rollNumber: *addUserRoll,
			department: *addUserDept,
		})
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		return cli.seed()
	default:
		cli.printUsage()
		return errHelp
	}
}
