package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/student-records/pkg/config"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

// Factory owns the connection pool and hands out Sessions. It is initialised
// once per process and closed once at process end; the pool itself is safe to
// share, individual Sessions are not.
type Factory struct {
	db     *sqlx.DB
	mode   config.SchemaMode
	closed bool
}

// Open establishes the PostgreSQL connection pool described by cfg and
// applies its schema mode. An unreachable database or an unrecognised schema
// mode is a configuration error.
func Open(cfg config.DatabaseConfig) (*Factory, error) {
	if _, err := config.ParseSchemaMode(string(cfg.SchemaMode)); err != nil {
		return nil, err
	}

	timeout := int(cfg.ConnectTimeout / time.Second)
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
		timeout,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeConfiguration, "open database")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, appErrors.Wrap(err, appErrors.CodeConfiguration, "database unreachable")
	}

	f := NewFactory(db, cfg.SchemaMode)
	if err := applySchema(db, cfg.SchemaMode); err != nil {
		_ = db.Close()
		return nil, err
	}

	return f, nil
}

// NewFactory wraps an existing pool. It applies no schema handling; callers
// wanting the schema mode honoured should use Open.
func NewFactory(db *sqlx.DB, mode config.SchemaMode) *Factory {
	return &Factory{db: db, mode: mode}
}

// NewSession binds a dedicated connection from the pool. Sessions are cheap;
// callers may hold several, but each one serves a single goroutine.
func (f *Factory) NewSession(ctx context.Context) (*Session, error) {
	if f.closed {
		return nil, appErrors.New(appErrors.CodeConfiguration, "factory is closed")
	}
	conn, err := f.db.Connx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeConfiguration, "acquire connection")
	}
	return &Session{conn: conn}, nil
}

// Close releases the pool. Under the recreate schema mode the schema is
// dropped as the last act. Idempotent.
func (f *Factory) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	if f.mode == config.SchemaRecreate {
		if err := dropSchema(f.db); err != nil {
			_ = f.db.Close()
			return err
		}
	}
	return f.db.Close()
}
