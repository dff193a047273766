package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/interfaces"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/domain/types"
	"github.com/secmon-lab/wearsync/pkg/metrics"
	"github.com/secmon-lab/wearsync/pkg/service/archive"
	"github.com/secmon-lab/wearsync/pkg/service/fitbit"
	"github.com/secmon-lab/wearsync/pkg/service/lamp"
	"github.com/secmon-lab/wearsync/pkg/utils/errutil"
	"github.com/secmon-lab/wearsync/pkg/utils/logging"
)

// SyncConfig controls what a run fetches
type SyncConfig struct {
	Metrics     []types.Metric
	Granularity types.Granularity
	// LookbackDays is the window length for connections never synced
	LookbackDays int
	// Location defines calendar days for windows and payload dates
	Location *time.Location
}

// DefaultSyncConfig returns all metrics at minute resolution over 7 days in UTC
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Metrics:      types.AllMetrics(),
		Granularity:  types.GranularityMinute,
		LookbackDays: 7,
		Location:     time.UTC,
	}
}

// SyncUseCase drives refresh, fetch, resample, forward and cursor advance
// for every stored connection. Connections are processed one at a time.
type SyncUseCase struct {
	repo      interfaces.Repository
	token     *TokenUseCase
	fetcher   fitbit.Service
	forwarder lamp.Service
	archive   archive.Service
	cfg       SyncConfig
	now       func() time.Time
}

func NewSyncUseCase(repo interfaces.Repository, token *TokenUseCase, fetcher fitbit.Service, forwarder lamp.Service, archiver archive.Service, cfg SyncConfig, now func() time.Time) *SyncUseCase {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if archiver == nil {
		archiver = archive.Noop()
	}
	if now == nil {
		now = time.Now
	}

	return &SyncUseCase{
		repo:      repo,
		token:     token,
		fetcher:   fetcher,
		forwarder: forwarder,
		archive:   archiver,
		cfg:       cfg,
		now:       now,
	}
}

// Window returns the inclusive calendar dates to fetch for conn at now.
// Start is the date of the cursor, or LookbackDays before today when the
// connection has never been synced. End is today.
func (uc *SyncUseCase) Window(conn *model.Connection, now time.Time) (time.Time, time.Time) {
	today := startOfDay(now, uc.cfg.Location)

	if conn.LastSyncedAt == nil {
		return today.AddDate(0, 0, -uc.cfg.LookbackDays), today
	}

	start := startOfDay(*conn.LastSyncedAt, uc.cfg.Location)
	if start.After(today) {
		start = today
	}
	return start, today
}

// RunOnce syncs every stored connection. A failing connection never stops
// the run; its outcome is recorded in the report. The only error returned
// is failure to list connections.
func (uc *SyncUseCase) RunOnce(ctx context.Context) (*model.SyncReport, error) {
	report := &model.SyncReport{
		RunID:     uuid.NewString(),
		StartedAt: uc.now(),
	}

	logger := logging.From(ctx).With(RunIDKey, report.RunID)
	ctx = logging.With(ctx, logger)

	conns, err := uc.repo.Connection().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list connections", goerr.V(RunIDKey, report.RunID))
	}

	if len(conns) == 0 {
		logger.Info("No connections found, nothing to sync")
		return report, nil
	}

	logger.Info("Sync run started", "connections", len(conns))
	for _, conn := range conns {
		cr := uc.syncConnection(ctx, conn, report.StartedAt)
		report.Connections = append(report.Connections, cr)
	}

	metrics.SyncDuration.Observe(uc.now().Sub(report.StartedAt).Seconds())
	logger.Info("Sync run completed",
		"connections", len(report.Connections),
		"synced", report.Count(model.SyncResultSynced),
		"auth_failed", report.Count(model.SyncResultAuthFailed),
		"upstream_failed", report.Count(model.SyncResultUpstreamFailed),
		"store_failed", report.Count(model.SyncResultStoreFailed))

	return report, nil
}

// RunUser syncs a single connection
func (uc *SyncUseCase) RunUser(ctx context.Context, userID string) (*model.ConnectionReport, error) {
	conn, err := uc.repo.Connection().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(errors.Join(ErrConnectionNotFound, err), "no connection for user", goerr.V(UserIDKey, userID))
		}
		return nil, goerr.Wrap(err, "failed to get connection", goerr.V(UserIDKey, userID))
	}

	ctx = logging.With(ctx, logging.From(ctx).With(RunIDKey, uuid.NewString()))
	return uc.syncConnection(ctx, conn, uc.now()), nil
}

func (uc *SyncUseCase) syncConnection(ctx context.Context, conn *model.Connection, now time.Time) *model.ConnectionReport {
	logger := logging.From(ctx).With(UserIDKey, conn.UserID)
	ctx = logging.With(ctx, logger)

	report := &model.ConnectionReport{UserID: conn.UserID}
	defer func() {
		metrics.ConnectionsSynced.WithLabelValues(string(report.Result)).Inc()
	}()

	fail := func(result model.SyncResult, err error) *model.ConnectionReport {
		report.Result = result
		report.Error = err
		if result == model.SyncResultAuthFailed {
			logger.Warn("Refresh token rejected, skipping connection until next run", "error", err.Error())
		} else {
			errutil.Handle(ctx, err, "Connection sync failed", UserIDKey, conn.UserID, "result", string(result))
		}
		return report
	}

	if _, err := uc.token.EnsureFresh(ctx, conn, now); err != nil {
		switch {
		case errors.Is(err, ErrAuth):
			return fail(model.SyncResultAuthFailed, err)
		case errors.Is(err, ErrUpstream):
			return fail(model.SyncResultUpstreamFailed, err)
		default:
			return fail(model.SyncResultStoreFailed, err)
		}
	}

	start, end := uc.Window(conn, now)
	report.WindowStart, report.WindowEnd = start, end
	logger.Info("Syncing connection",
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
		"granularity", uc.cfg.Granularity.String())

	var points []*model.Point
	for _, metric := range uc.cfg.Metrics {
		p, err := uc.collect(ctx, conn, metric, start, end)
		if err != nil {
			return fail(model.SyncResultUpstreamFailed, err)
		}
		logger.Debug("Metric resampled", MetricKey, metric.String(), "points", len(p))
		points = append(points, p...)
	}

	uc.forward(ctx, conn.UserID, points, report)

	if conn.LastSyncedAt == nil || now.After(*conn.LastSyncedAt) {
		advanced := conn.Clone()
		cursor := now
		advanced.LastSyncedAt = &cursor
		if err := uc.repo.Connection().Put(ctx, advanced); err != nil {
			return fail(model.SyncResultStoreFailed, goerr.Wrap(err, "failed to advance cursor", goerr.V(UserIDKey, conn.UserID)))
		}
		*conn = *advanced
	}

	report.Result = model.SyncResultSynced
	logger.Info("Connection synced",
		"forwarded", report.PointsForwarded,
		"dropped", report.PointsDropped,
		"delivery_failed", report.DeliveriesFailed)
	return report
}

// collect fetches, archives and resamples one metric
func (uc *SyncUseCase) collect(ctx context.Context, conn *model.Connection, metric types.Metric, start, end time.Time) ([]*model.Point, error) {
	pages, err := uc.fetcher.Fetch(ctx, conn.AccessToken, metric, start, end, uc.cfg.Granularity)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(ErrUpstream, err), "failed to fetch metric",
			goerr.V(UserIDKey, conn.UserID), goerr.V(MetricKey, metric))
	}

	for _, page := range pages {
		if err := uc.archive.Save(ctx, conn.UserID, metric, page.Date, page.Body); err != nil {
			logging.From(ctx).Warn("Failed to archive raw page",
				MetricKey, metric.String(), "date", page.Date.Format(time.DateOnly), "error", err.Error())
		}
	}

	points, err := Resample(metric, pages, uc.cfg.Granularity, uc.cfg.Location)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(ErrUpstream, err), "failed to resample metric",
			goerr.V(UserIDKey, conn.UserID), goerr.V(MetricKey, metric))
	}
	return points, nil
}

// forward delivers points one by one. Failures are counted and logged.
func (uc *SyncUseCase) forward(ctx context.Context, userID string, points []*model.Point, report *model.ConnectionReport) {
	logger := logging.From(ctx)
	enabled := uc.forwarder.Enabled()

	for _, p := range points {
		if err := uc.forwarder.Forward(ctx, userID, p); err != nil {
			report.DeliveriesFailed++
			err = goerr.Wrap(errors.Join(ErrDelivery, err), "point not delivered",
				goerr.V(UserIDKey, userID), goerr.V(MetricKey, p.Metric), goerr.V("timestamp", p.Timestamp))
			logger.Warn("Failed to forward point", "error", err.Error())
			continue
		}
		if enabled {
			report.PointsForwarded++
		} else {
			report.PointsDropped++
		}
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
