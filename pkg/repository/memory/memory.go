package memory

import (
	"github.com/secmon-lab/wearsync/pkg/domain/interfaces"
)

// ErrNotFound is the backend-independent not-found sentinel
var ErrNotFound = interfaces.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps records in process memory. Intended for development and tests.
type Memory struct {
	connection *connectionRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		connection: newConnectionRepository(),
	}
}

func (m *Memory) Connection() interfaces.ConnectionRepository {
	return m.connection
}

func (m *Memory) Close() error {
	return nil
}
