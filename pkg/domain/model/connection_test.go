package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/domain/types"
)

func newConnection() *model.Connection {
	synced := time.Date(2025, 11, 9, 12, 0, 0, 0, time.UTC)
	return &model.Connection{
		UserID:         "user-1",
		ProviderUserID: "ABC123",
		AccessToken:    "access",
		RefreshToken:   "refresh",
		Scope:          "activity sleep",
		TokenType:      "Bearer",
		ExpiresAt:      time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC),
		LastSyncedAt:   &synced,
	}
}

func TestConnection_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		gt.NoError(t, newConnection().Validate())
	})

	t.Run("missing user id", func(t *testing.T) {
		c := newConnection()
		c.UserID = ""
		gt.Error(t, c.Validate())
	})

	t.Run("missing provider user id", func(t *testing.T) {
		c := newConnection()
		c.ProviderUserID = ""
		gt.Error(t, c.Validate())
	})

	t.Run("missing refresh token", func(t *testing.T) {
		c := newConnection()
		c.RefreshToken = ""
		gt.Error(t, c.Validate())
	})
}

func TestConnection_Clone(t *testing.T) {
	orig := newConnection()
	cp := orig.Clone()

	next := orig.LastSyncedAt.Add(time.Hour)
	cp.LastSyncedAt = &next
	cp.AccessToken = "changed"

	gt.Value(t, orig.AccessToken).Equal("access")
	gt.Value(t, orig.LastSyncedAt.Equal(time.Date(2025, 11, 9, 12, 0, 0, 0, time.UTC))).Equal(true)
}

func TestConnection_Apply(t *testing.T) {
	c := newConnection()
	expires := time.Date(2025, 11, 11, 8, 0, 0, 0, time.UTC)

	c.Apply(&model.Credentials{
		AccessToken: "new-access",
		ExpiresAt:   expires,
	})

	gt.Value(t, c.AccessToken).Equal("new-access")
	gt.Value(t, c.RefreshToken).Equal("refresh")
	gt.Value(t, c.Scope).Equal("activity sleep")
	gt.Value(t, c.ExpiresAt).Equal(expires)

	c.Apply(&model.Credentials{
		AccessToken:    "a2",
		RefreshToken:   "r2",
		ExpiresAt:      expires,
		Scope:          "heartrate",
		TokenType:      "Bearer",
		ProviderUserID: "XYZ",
	})
	gt.Value(t, c.RefreshToken).Equal("r2")
	gt.Value(t, c.Scope).Equal("heartrate")
	gt.Value(t, c.ProviderUserID).Equal("XYZ")
}

func TestPoint_Data(t *testing.T) {
	t.Run("intraday point carries sample time", func(t *testing.T) {
		p := model.Point{
			Timestamp: time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC),
			Metric:    types.MetricSteps,
			Value:     15,
		}
		data := p.Data()
		gt.Value(t, data["steps"]).Equal(any(15.0))
		gt.Value(t, data["time"]).Equal(any("2025-11-10T09:00:00Z"))
	})

	t.Run("sleep point carries date", func(t *testing.T) {
		p := model.Point{
			Timestamp: time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC),
			Metric:    types.MetricSleep,
			Value:     420,
		}
		data := p.Data()
		gt.Value(t, data["duration_minutes"]).Equal(any(420.0))
		gt.Value(t, data["date"]).Equal(any("2025-11-10"))
	})
}

func TestSyncReport_Count(t *testing.T) {
	r := &model.SyncReport{
		Connections: []*model.ConnectionReport{
			{UserID: "a", Result: model.SyncResultSynced},
			{UserID: "b", Result: model.SyncResultAuthFailed},
			{UserID: "c", Result: model.SyncResultSynced},
		},
	}
	gt.Value(t, r.Count(model.SyncResultSynced)).Equal(2)
	gt.Value(t, r.Count(model.SyncResultUpstreamFailed)).Equal(0)
}
