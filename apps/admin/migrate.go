package main

import (
	"fmt"

	"github.com/trezcool/shule/storage/database"
)

func (cli *commandLine) migrate() error {
	if err := database.Migrate(cli.db); err != nil {
		return err
	}
	fmt.Println("database schema is up to date")
	return nil
}
