package config

import (
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var Config = FlipperConfig{
	Env:      Dev,
	Addr:     ":9001",
	LogLevel: zerolog.InfoLevel,
	Store:    StorePostgres,

	Postgres: PostgresConfig{
		User:     "flipper",
		Password: "password",
		Hostname: "localhost",
		Port:     5432,
		DbName:   "flipper",
		LogLevel: tracelog.LogLevelWarn,
		MinConn:  2,
		MaxConn:  16,
	},

	Sessions: SessionConfig{
		CleanupInterval: time.Hour,
	},

	Registration: DefaultRegistrationPolicy,
}

var DefaultRegistrationPolicy = RegistrationPolicy{
	NameMinLength: 3,
	NameMaxLength: 100,

	UsernameMinLength: 4,
	UsernameMaxLength: 15,
	UsernameValid:     `^[A-Za-z0-9_]*$`,

	PasswordMinLength:  8,
	PasswordMaxLength:  32,
	PasswordHasNumeral: `[0-9]`,
	PasswordHasUpper:   `[A-Z]`,
	PasswordHasLower:   `[a-z]`,
}

const EnvPrefix = "FLIPPER"

/*
Load overrides the defaults in Config from the environment. Variables are
named FLIPPER_<KEY>, with dots replaced by underscores, e.g.
FLIPPER_POSTGRES_HOSTNAME or FLIPPER_SESSIONS_LIFETIME=336h.

If dotEnvPath names an existing file, it is loaded into the environment first.
Variables that are already set win over the file.
*/
func Load(dotEnvPath string) error {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return err
			}
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Config)

	cfg, err := fromViper(v)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

func setDefaults(v *viper.Viper, c FlipperConfig) {
	v.SetDefault("env", string(c.Env))
	v.SetDefault("addr", c.Addr)
	v.SetDefault("loglevel", c.LogLevel.String())
	v.SetDefault("store", string(c.Store))

	v.SetDefault("postgres.user", c.Postgres.User)
	v.SetDefault("postgres.password", c.Postgres.Password)
	v.SetDefault("postgres.hostname", c.Postgres.Hostname)
	v.SetDefault("postgres.port", c.Postgres.Port)
	v.SetDefault("postgres.dbname", c.Postgres.DbName)
	v.SetDefault("postgres.loglevel", c.Postgres.LogLevel.String())
	v.SetDefault("postgres.minconn", c.Postgres.MinConn)
	v.SetDefault("postgres.maxconn", c.Postgres.MaxConn)

	v.SetDefault("sessions.lifetime", c.Sessions.Lifetime)
	v.SetDefault("sessions.cleanupinterval", c.Sessions.CleanupInterval)

	v.SetDefault("registration.nameminlength", c.Registration.NameMinLength)
	v.SetDefault("registration.namemaxlength", c.Registration.NameMaxLength)
	v.SetDefault("registration.usernameminlength", c.Registration.UsernameMinLength)
	v.SetDefault("registration.usernamemaxlength", c.Registration.UsernameMaxLength)
	v.SetDefault("registration.usernamevalid", c.Registration.UsernameValid)
	v.SetDefault("registration.passwordminlength", c.Registration.PasswordMinLength)
	v.SetDefault("registration.passwordmaxlength", c.Registration.PasswordMaxLength)
	v.SetDefault("registration.passwordhasnumeral", c.Registration.PasswordHasNumeral)
	v.SetDefault("registration.passwordhasupper", c.Registration.PasswordHasUpper)
	v.SetDefault("registration.passwordhaslower", c.Registration.PasswordHasLower)
}

func fromViper(v *viper.Viper) (FlipperConfig, error) {
	logLevel, err := zerolog.ParseLevel(v.GetString("loglevel"))
	if err != nil {
		return FlipperConfig{}, err
	}
	pgLogLevel, err := tracelog.LogLevelFromString(v.GetString("postgres.loglevel"))
	if err != nil {
		return FlipperConfig{}, err
	}

	return FlipperConfig{
		Env:      Environment(v.GetString("env")),
		Addr:     v.GetString("addr"),
		LogLevel: logLevel,
		Store:    StoreKind(v.GetString("store")),

		Postgres: PostgresConfig{
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			Hostname: v.GetString("postgres.hostname"),
			Port:     v.GetInt("postgres.port"),
			DbName:   v.GetString("postgres.dbname"),
			LogLevel: pgLogLevel,
			MinConn:  v.GetInt32("postgres.minconn"),
			MaxConn:  v.GetInt32("postgres.maxconn"),
		},

		Sessions: SessionConfig{
			Lifetime:        v.GetDuration("sessions.lifetime"),
			CleanupInterval: v.GetDuration("sessions.cleanupinterval"),
		},

		Registration: RegistrationPolicy{
			NameMinLength:      v.GetInt("registration.nameminlength"),
			NameMaxLength:      v.GetInt("registration.namemaxlength"),
			UsernameMinLength:  v.GetInt("registration.usernameminlength"),
			UsernameMaxLength:  v.GetInt("registration.usernamemaxlength"),
			UsernameValid:      v.GetString("registration.usernamevalid"),
			PasswordMinLength:  v.GetInt("registration.passwordminlength"),
			PasswordMaxLength:  v.GetInt("registration.passwordmaxlength"),
			PasswordHasNumeral: v.GetString("registration.passwordhasnumeral"),
			PasswordHasUpper:   v.GetString("registration.passwordhasupper"),
			PasswordHasLower:   v.GetString("registration.passwordhaslower"),
		},
	}, nil
}
