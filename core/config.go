package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	AppConfig struct {
		Name             string
		Build            string
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		SecretKey        string
		DefaultFromEmail string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		LogLevel         string
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugAddress              string
		RequestTimeout            time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
	}

	DatabaseConfig struct {
		Engine          string
		Host            string
		Port            string
		Name            string
		User            string
		Password        string
		AdminUser       string
		AdminPassword   string
		DisableTLS      bool
		MaxIdleConns    int
		MaxOpenConns    int
		ConnMaxLifetime time.Duration
		LogLevel        string // silent, error, warn, info
	}

	Config struct {
		App      AppConfig
		Server   ServerConfig
		Database DatabaseConfig
		WorkDir  string
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// DSN is the libpq keyword/value connection string.
func (c DatabaseConfig) DSN(dbName string) string {
	sslMode := "require"
	if c.DisableTLS {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, dbName, sslMode)
}

func (c AppConfig) FromEmail() mail.Address {
	return mail.Address{Name: c.Name, Address: c.DefaultFromEmail}
}

// NewConfig reads the configuration from the environment.
// Every key may be overridden with an env var prefixed by the current ENV, eg. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("app.name", "Shule")
	v.SetDefault("app.build", "develop")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.testMode", false)
	v.SetDefault("app.secretKey", "q8v$-3kd)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("app.defaultFromEmail", "noreply@localhost")
	v.SetDefault("app.frontendBaseURL", "http://localhost:3000")
	v.SetDefault("app.rollbarToken", "")
	v.SetDefault("app.sendgridApiKey", "")
	v.SetDefault("app.logLevel", "info")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.requestTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "shule")
	v.SetDefault("database.user", "shule")
	v.SetDefault("database.password", "shule")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.maxOpenConns", 50)
	v.SetDefault("database.connMaxLifetime", time.Hour)
	v.SetDefault("database.logLevel", "warn")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("app.testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		App: AppConfig{
			Name:             v.GetString("app.name"),
			Build:            v.GetString("app.build"),
			Env:              env,
			Debug:            v.GetBool("app.debug"),
			TestMode:         v.GetBool("app.testMode"),
			SecretKey:        v.GetString("app.secretKey"),
			DefaultFromEmail: v.GetString("app.defaultFromEmail"),
			FrontendBaseURL:  v.GetString("app.frontendBaseURL"),
			RollbarToken:     v.GetString("app.rollbarToken"),
			SendgridApiKey:   v.GetString("app.sendgridApiKey"),
			LogLevel:         v.GetString("app.logLevel"),
		},
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			RequestTimeout:            v.GetDuration("server.requestTimeout"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("server.passwordResetTimeoutDelta"),
		},
		Database: DatabaseConfig{
			Engine:          v.GetString("database.engine"),
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			Name:            v.GetString("database.name"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			AdminUser:       v.GetString("database.adminUser"),
			AdminPassword:   v.GetString("database.adminPassword"),
			DisableTLS:      v.GetBool("database.disableTLS"),
			MaxIdleConns:    v.GetInt("database.maxIdleConns"),
			MaxOpenConns:    v.GetInt("database.maxOpenConns"),
			ConnMaxLifetime: v.GetDuration("database.connMaxLifetime"),
			LogLevel:        v.GetString("database.logLevel"),
		},
		WorkDir: workDir,
	}
}

// NewTestConfig returns a Config suitable for tests, without touching the environment.
func NewTestConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:             "Shule",
			Build:            "test",
			Env:              "TEST",
			TestMode:         true,
			SecretKey:        "secret",
			DefaultFromEmail: "noreply@localhost",
			FrontendBaseURL:  "http://localhost:3000",
			LogLevel:         "error",
		},
		Server: ServerConfig{
			Host:                      "localhost",
			RequestTimeout:            10 * time.Second,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "sqlite", LogLevel: "silent"},
	}
}
