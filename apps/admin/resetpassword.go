package main

import (
	"context"

	"github.com/trezcool/shule/core/auth"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	_, err := cli.usrSvc.SetPassword(context.Background(), auth.System, uname, pwd)
	return err
}
