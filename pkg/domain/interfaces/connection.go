package interfaces

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
)

// ErrNotFound is returned by every backend when a connection does not exist
var ErrNotFound = goerr.New("connection not found")

// ConnectionRepository persists one Connection per user. Put is an atomic
// single-record upsert keyed by UserID.
type ConnectionRepository interface {
	Get(ctx context.Context, userID string) (*model.Connection, error)
	List(ctx context.Context) ([]*model.Connection, error)
	Put(ctx context.Context, conn *model.Connection) error
}
