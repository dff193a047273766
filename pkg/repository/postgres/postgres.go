package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/interfaces"
)

// ErrNotFound is the backend-independent not-found sentinel
var ErrNotFound = interfaces.ErrNotFound

// Schema creates the tables used by this backend. Applied by the migrate command.
const Schema = `
CREATE TABLE IF NOT EXISTS fitbit_connections (
	user_id          VARCHAR(128) PRIMARY KEY,
	provider_user_id VARCHAR(128) NOT NULL,
	access_token     TEXT NOT NULL,
	refresh_token    TEXT NOT NULL,
	scope            VARCHAR(512) NOT NULL DEFAULT '',
	token_type       VARCHAR(32) NOT NULL DEFAULT '',
	expires_at       TIMESTAMPTZ,
	last_synced_at   TIMESTAMPTZ,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
)`

type Postgres struct {
	db         *sql.DB
	connection *connectionRepository
}

var _ interfaces.Repository = &Postgres{}

// New opens a pgx-backed database/sql pool and verifies it
func New(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping postgres")
	}

	return &Postgres{
		db:         db,
		connection: &connectionRepository{db: db},
	}, nil
}

// Migrate applies Schema
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return goerr.Wrap(err, "failed to apply schema")
	}
	return nil
}

func (p *Postgres) Connection() interfaces.ConnectionRepository {
	return p.connection
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
