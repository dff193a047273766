package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/interfaces"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
)

type connectionRepository struct {
	mu          sync.RWMutex
	connections map[string]*model.Connection
}

var _ interfaces.ConnectionRepository = &connectionRepository{}

func newConnectionRepository() *connectionRepository {
	return &connectionRepository{
		connections: make(map[string]*model.Connection),
	}
}

func (r *connectionRepository) Get(ctx context.Context, userID string) (*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[userID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "connection not found", goerr.V("user_id", userID))
	}

	return conn.Clone(), nil
}

// List returns all connections ordered by user ID
func (r *connectionRepository) List(ctx context.Context) ([]*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*model.Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn.Clone())
	}
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].UserID < conns[j].UserID
	})

	return conns, nil
}

func (r *connectionRepository) Put(ctx context.Context, conn *model.Connection) error {
	if err := conn.Validate(); err != nil {
		return goerr.Wrap(err, "invalid connection")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := conn.Clone()
	now := time.Now().UTC()
	if existing, ok := r.connections[conn.UserID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.connections[conn.UserID] = stored
	return nil
}
