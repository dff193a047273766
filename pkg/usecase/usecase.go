package usecase

import (
	"time"

	"github.com/secmon-lab/wearsync/pkg/domain/interfaces"
	"github.com/secmon-lab/wearsync/pkg/service/archive"
	"github.com/secmon-lab/wearsync/pkg/service/fitbit"
	"github.com/secmon-lab/wearsync/pkg/service/lamp"
)

type UseCases struct {
	repo       interfaces.Repository
	forwarder  lamp.Service
	archive    archive.Service
	syncConfig SyncConfig
	now        func() time.Time

	Token   *TokenUseCase
	Sync    *SyncUseCase
	Connect *ConnectUseCase
}

type Option func(*UseCases)

// WithForwarder sets the downstream destination. Without it points are dropped.
func WithForwarder(f lamp.Service) Option {
	return func(uc *UseCases) {
		uc.forwarder = f
	}
}

func WithArchive(a archive.Service) Option {
	return func(uc *UseCases) {
		uc.archive = a
	}
}

func WithSyncConfig(cfg SyncConfig) Option {
	return func(uc *UseCases) {
		uc.syncConfig = cfg
	}
}

// WithClock replaces the run clock
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, auth fitbit.Authenticator, fetcher fitbit.Service, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:       repo,
		forwarder:  lamp.New("", ""),
		archive:    archive.Noop(),
		syncConfig: DefaultSyncConfig(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Token = NewTokenUseCase(repo, auth)
	uc.Sync = NewSyncUseCase(repo, uc.Token, fetcher, uc.forwarder, uc.archive, uc.syncConfig, uc.now)
	uc.Connect = NewConnectUseCase(repo, auth, fetcher)

	return uc
}
