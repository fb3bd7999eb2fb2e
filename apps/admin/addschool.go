package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/school"
)

func (cli *commandLine) addSchool(name, code, email string) error {
	ns := school.NewSchool{Name: name, Code: code, Email: email}
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	sch, err := cli.schoolSvc.Create(context.Background(), auth.System, ns)
	if err != nil {
		return err
	}
	fmt.Printf("school %q created with ID %s\n", sch.Name, sch.ID)
	return nil
}
