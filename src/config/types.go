package config

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
	Test Environment = "test"
)

type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreMemory   StoreKind = "memory"
)

type FlipperConfig struct {
	Env      Environment
	Addr     string
	LogLevel zerolog.Level
	Store    StoreKind

	Postgres     PostgresConfig
	Sessions     SessionConfig
	Registration RegistrationPolicy
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type SessionConfig struct {
	// Zero means sessions last until logout.
	Lifetime time.Duration

	// How often expired sessions are purged. Only used with a non-zero Lifetime.
	CleanupInterval time.Duration
}

// RegistrationPolicy constrains new accounts. The regular expressions use Go
// syntax.
type RegistrationPolicy struct {
	NameMinLength int
	NameMaxLength int

	UsernameMinLength int
	UsernameMaxLength int
	UsernameValid     string

	PasswordMinLength  int
	PasswordMaxLength  int
	PasswordHasNumeral string
	PasswordHasUpper   string
	PasswordHasLower   string
}
