package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/finance"
	"github.com/trezcool/shule/core/hostel"
	"github.com/trezcool/shule/core/inventory"
	"github.com/trezcool/shule/core/library"
	"github.com/trezcool/shule/core/rbac"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

func logLevel(lvl string) logger.LogLevel {
	switch strings.ToLower(lvl) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

// Open connects to the app database. Engine "sqlite" treats Database.Name as the DSN.
func Open(conf *core.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch conf.Database.Engine {
	case "postgres":
		dialector = postgres.Open(conf.Database.DSN(conf.Database.Name))
	case "sqlite":
		dialector = sqlite.Open(conf.Database.Name)
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel(conf.Database.LogLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "getting sql.DB")
	}
	if conf.Database.Engine == "sqlite" {
		// an in-memory database lives as long as one of its connections
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(conf.Database.MaxIdleConns)
		sqlDB.SetMaxOpenConns(conf.Database.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(conf.Database.ConnMaxLifetime)
	}
	if err = ping(sqlDB); err != nil {
		return nil, err
	}
	return db, nil
}

// Close closes the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "getting sql.DB")
	}
	return sqlDB.Close()
}

// Models lists every persisted model, in creation order.
func Models() []interface{} {
	return []interface{}{
		&school.School{},
		&user.User{},
		&rbac.RolePermission{},
		&academic.Class{},
		&academic.Section{},
		&academic.Exam{},
		&academic.Result{},
		&academic.TimetableSlot{},
		&student.Student{},
		&attendance.Attendance{},
		&finance.FeePayment{},
		&hostel.Hostel{},
		&hostel.Room{},
		&hostel.Allocation{},
		&library.Book{},
		&library.BookIssue{},
		&inventory.Item{},
		&inventory.StockTransaction{},
	}
}

// Migrate creates or updates tables and their unique indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func openBootstrap(conf *core.Config, admin bool) (*sqlx.DB, error) {
	dbConf := conf.Database
	if admin && dbConf.AdminUser != "" {
		dbConf.User, dbConf.Password = dbConf.AdminUser, dbConf.AdminPassword
	}
	db, err := sqlx.Open("postgres", dbConf.DSN("postgres"))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func createAppUser(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	var exists bool
	if err := db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)", conf.Database.User); err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !exists {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
			pq.QuoteIdentifier(conf.Database.User), pq.QuoteLiteral(conf.Database.Password))
		if _, err := db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	var exists bool
	if err := db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name); err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !exists {
		if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the app role (as admin) and the app database (as the app role).
// It only applies to postgres.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	if conf.Database.Engine != "postgres" {
		return nil
	}

	adminDB, err := openBootstrap(conf, true)
	if err != nil {
		return errors.Wrap(err, "connecting as admin")
	}
	defer func() { _ = adminDB.Close() }()
	if err = createAppUser(ctx, adminDB, conf); err != nil {
		return err
	}

	appDB, err := openBootstrap(conf, false)
	if err != nil {
		return errors.Wrap(err, "connecting as app user")
	}
	defer func() { _ = appDB.Close() }()
	return createDB(ctx, appDB, conf)
}
