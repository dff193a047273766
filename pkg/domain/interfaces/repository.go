package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Connection() ConnectionRepository

	Close() error
}
