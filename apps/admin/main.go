package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	dig_container "github.com/trezcool/shule/apps/api/di/dig"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
)

func main() {
	c := dig_container.New(core.NewConfig)

	var code int
	errAndDie(c.Invoke(func(
		logger *logsvc.RollbarLogger,
		db *gorm.DB,
		validate *validator.Validate,
		usrSvc *user.Service,
		schoolSvc *school.Service,
	) {
		defer func() {
			_ = database.Close(db)
			_ = logger.Sync()
		}()

		// start CLI
		cli := commandLine{
			db:        db,
			validate:  validate,
			usrSvc:    usrSvc,
			schoolSvc: schoolSvc,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				logger.Error("admin command failed", err, map[string]interface{}{"args": os.Args[1:]})
			}
			code = 1
		}
	}))
	os.Exit(code)
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
