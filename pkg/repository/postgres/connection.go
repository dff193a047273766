package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/interfaces"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
)

type connectionRepository struct {
	db *sql.DB
}

var _ interfaces.ConnectionRepository = &connectionRepository{}

const connectionColumns = `user_id, provider_user_id, access_token, refresh_token, scope, token_type, expires_at, last_synced_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*model.Connection, error) {
	var c model.Connection
	var expiresAt, lastSyncedAt sql.NullTime
	if err := row.Scan(
		&c.UserID,
		&c.ProviderUserID,
		&c.AccessToken,
		&c.RefreshToken,
		&c.Scope,
		&c.TokenType,
		&expiresAt,
		&lastSyncedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		c.ExpiresAt = expiresAt.Time
	}
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time
		c.LastSyncedAt = &t
	}
	return &c, nil
}

func (r *connectionRepository) Get(ctx context.Context, userID string) (*model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM fitbit_connections WHERE user_id = $1`

	c, err := scanConnection(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "connection not found", goerr.V("user_id", userID))
		}
		return nil, goerr.Wrap(err, "failed to get connection", goerr.V("user_id", userID))
	}
	return c, nil
}

// List returns all connections ordered by user ID
func (r *connectionRepository) List(ctx context.Context) ([]*model.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM fitbit_connections ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list connections")
	}
	defer rows.Close()

	var conns []*model.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan connection")
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate connections")
	}

	return conns, nil
}

func (r *connectionRepository) Put(ctx context.Context, conn *model.Connection) error {
	if err := conn.Validate(); err != nil {
		return goerr.Wrap(err, "invalid connection")
	}

	query := `
		INSERT INTO fitbit_connections (` + connectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			provider_user_id = EXCLUDED.provider_user_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			scope = EXCLUDED.scope,
			token_type = EXCLUDED.token_type,
			expires_at = EXCLUDED.expires_at,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	createdAt := conn.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	var expiresAt sql.NullTime
	if !conn.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: conn.ExpiresAt, Valid: true}
	}
	var lastSyncedAt sql.NullTime
	if conn.LastSyncedAt != nil {
		lastSyncedAt = sql.NullTime{Time: *conn.LastSyncedAt, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query,
		conn.UserID,
		conn.ProviderUserID,
		conn.AccessToken,
		conn.RefreshToken,
		conn.Scope,
		conn.TokenType,
		expiresAt,
		lastSyncedAt,
		createdAt,
		now,
	); err != nil {
		return goerr.Wrap(err, "failed to put connection", goerr.V("user_id", conn.UserID))
	}

	return nil
}
