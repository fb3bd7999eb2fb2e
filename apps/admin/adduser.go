package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/user"
)

// addSuperAdmin creates a user without a school.
func (cli *commandLine) addSuperAdmin(uname, email, name, pwd, confirm string) error {
	ns := user.NewSuperAdmin{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: confirm,
	}
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.CreateSuperAdmin(context.Background(), auth.System, ns)
	if err != nil {
		return err
	}
	fmt.Printf("super admin %q created\n", usr.Username)
	return nil
}

// addAccount issues a school account and prints its one-time password.
func (cli *commandLine) addAccount(schoolID, uname, email, name, role string) error {
	r, err := auth.ParseRole(role)
	if err != nil {
		return err
	}
	if name == "" {
		name = uname
	}
	na := user.NewAccount{Name: name, Username: uname, Email: email, Role: r}
	if err = na.Validate(cli.validate); err != nil {
		return err
	}
	usr, creds, err := cli.usrSvc.CreateAccount(context.Background(), auth.System, schoolID, na)
	if err != nil {
		return err
	}
	fmt.Printf("%s account %q created for %s\n", usr.Role.Name(), creds.Identifier, creds.TenantName)
	fmt.Printf("one-time password: %s\n", creds.OneTimePassword)
	return nil
}
