package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// SchemaMode controls how the storage schema is handled at factory open.
type SchemaMode string

const (
	// SchemaRecreate drops and rebuilds the schema on open, and drops it
	// again when the factory closes.
	SchemaRecreate SchemaMode = "recreate"
	// SchemaRecreatePersistent rebuilds on open but keeps the schema on close.
	SchemaRecreatePersistent SchemaMode = "recreate-persistent"
	// SchemaValidateOnly fails fast if the stored schema does not match the
	// entity definitions.
	SchemaValidateOnly SchemaMode = "validate-only"
	// SchemaMigrate applies additive schema changes, never destructive ones.
	SchemaMigrate SchemaMode = "migrate"
	// SchemaNone leaves the schema untouched.
	SchemaNone SchemaMode = "none"
)

// ParseSchemaMode validates a raw schema mode value.
func ParseSchemaMode(raw string) (SchemaMode, error) {
	mode := SchemaMode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case SchemaRecreate, SchemaRecreatePersistent, SchemaValidateOnly, SchemaMigrate, SchemaNone:
		return mode, nil
	}
	return "", appErrors.New(appErrors.CodeConfiguration, fmt.Sprintf("unknown schema mode %q", raw))
}

type Config struct {
	Env string

	Database DatabaseConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnectTimeout time.Duration
	SchemaMode     SchemaMode
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	mode, err := ParseSchemaMode(v.GetString("DB_SCHEMA_MODE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnectTimeout: parseDuration(v.GetString("DB_CONNECT_TIMEOUT"), 5*time.Second),
		SchemaMode:     mode,
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "student_records")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("DB_SCHEMA_MODE", string(SchemaNone))

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
