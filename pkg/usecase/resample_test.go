package usecase_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/wearsync/pkg/domain/types"
	"github.com/secmon-lab/wearsync/pkg/service/fitbit"
	"github.com/secmon-lab/wearsync/pkg/usecase"
)

func intradayPage(metric types.Metric, date, body string) *fitbit.Page {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		panic(err)
	}
	return &fitbit.Page{Metric: metric, Date: d, Intraday: true, Body: []byte(body)}
}

func rangedPage(metric types.Metric, body string) *fitbit.Page {
	return &fitbit.Page{Metric: metric, Date: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), Body: []byte(body)}
}

const stepsDay = `{"activities-steps":[{"dateTime":"2024-03-01","value":"18"}],
"activities-steps-intraday":{"dataset":[
{"time":"09:00:00","value":10},{"time":"09:30:00","value":5},{"time":"10:00:00","value":3}
],"datasetInterval":1,"datasetType":"minute"}}`

func TestResampleSteps(t *testing.T) {
	page := intradayPage(types.MetricSteps, "2024-03-01", stepsDay)

	t.Run("hourly sums", func(t *testing.T) {
		points, err := usecase.Resample(types.MetricSteps, []*fitbit.Page{page}, types.GranularityHour, time.UTC)
		gt.NoError(t, err).Required()
		gt.Array(t, points).Length(2).Required()

		gt.Value(t, points[0].Timestamp).Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
		gt.Value(t, points[0].Value).Equal(15.0)
		gt.Value(t, points[1].Timestamp).Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
		gt.Value(t, points[1].Value).Equal(3.0)
		gt.Value(t, points[0].Metric).Equal(types.MetricSteps)
	})

	t.Run("minute keeps every sample", func(t *testing.T) {
		points, err := usecase.Resample(types.MetricSteps, []*fitbit.Page{page}, types.GranularityMinute, time.UTC)
		gt.NoError(t, err).Required()
		gt.Array(t, points).Length(3).Required()
		gt.Value(t, points[1].Timestamp).Equal(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))
		gt.Value(t, points[1].Value).Equal(5.0)
	})

	t.Run("time of day is read in the configured zone", func(t *testing.T) {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		gt.NoError(t, err).Required()

		points, err := usecase.Resample(types.MetricSteps, []*fitbit.Page{page}, types.GranularityHour, tokyo)
		gt.NoError(t, err).Required()
		gt.Value(t, points[0].Timestamp.UTC()).Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	})

	t.Run("days are ordered", func(t *testing.T) {
		later := intradayPage(types.MetricSteps, "2024-03-02", `{"activities-steps-intraday":{"dataset":[{"time":"00:10:00","value":7}]}}`)
		points, err := usecase.Resample(types.MetricSteps, []*fitbit.Page{later, page}, types.GranularityHour, time.UTC)
		gt.NoError(t, err).Required()
		gt.Array(t, points).Length(3).Required()
		gt.Value(t, points[2].Timestamp).Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
		gt.Value(t, points[2].Value).Equal(7.0)
	})

	t.Run("daily totals", func(t *testing.T) {
		ranged := rangedPage(types.MetricSteps, `{"activities-steps":[{"dateTime":"2024-03-01","value":"1234"},{"dateTime":"2024-03-02","value":"0"}]}`)
		points, err := usecase.Resample(types.MetricSteps, []*fitbit.Page{ranged}, types.GranularityDay, time.UTC)
		gt.NoError(t, err).Required()
		gt.Array(t, points).Length(2).Required()
		gt.Value(t, points[0].Value).Equal(1234.0)
		gt.Value(t, points[0].Timestamp).Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	})

	t.Run("invalid daily value", func(t *testing.T) {
		ranged := rangedPage(types.MetricSteps, `{"activities-steps":[{"dateTime":"2024-03-01","value":"many"}]}`)
		_, err := usecase.Resample(types.MetricSteps, []*fitbit.Page{ranged}, types.GranularityDay, time.UTC)
		gt.Error(t, err)
	})
}

func TestResampleHeartRate(t *testing.T) {
	t.Run("hourly mean", func(t *testing.T) {
		page := intradayPage(types.MetricHeartRate, "2024-03-01",
			`{"activities-heart-intraday":{"dataset":[{"time":"09:00:00","value":60},{"time":"09:15:00","value":80}]}}`)

		points, err := usecase.Resample(types.MetricHeartRate, []*fitbit.Page{page}, types.GranularityHour, time.UTC)
		gt.NoError(t, err).Required()
		gt.Array(t, points).Length(1).Required()
		gt.Value(t, points[0].Timestamp).Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
		gt.Value(t, points[0].Value).Equal(70.0)
	})

	t.Run("daily resting rate skips days without one", func(t *testing.T) {
		page := rangedPage(types.MetricHeartRate,
			`{"activities-heart":[{"dateTime":"2024-03-01","value":{"restingHeartRate":58}},{"dateTime":"2024-03-02","value":{}}]}`)

		points, err := usecase.Resample(types.MetricHeartRate, []*fitbit.Page{page}, types.GranularityDay, time.UTC)
		gt.NoError(t, err).Required()
		gt.Array(t, points).Length(1).Required()
		gt.Value(t, points[0].Value).Equal(58.0)
	})
}

func TestResampleSleep(t *testing.T) {
	t.Run("single record", func(t *testing.T) {
		page := rangedPage(types.MetricSleep, `{"sleep":[{"dateOfSleep":"2025-11-10","duration":25200000}]}`)

		points, err := usecase.Resample(types.MetricSleep, []*fitbit.Page{page}, types.GranularityMinute, time.UTC)
		gt.NoError(t, err).Required()
		gt.Array(t, points).Length(1).Required()
		gt.Value(t, points[0].Value).Equal(420.0)
		gt.Value(t, points[0].Timestamp).Equal(time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC))

		data := points[0].Data()
		gt.Value(t, data["date"]).Equal(any("2025-11-10"))
		gt.Value(t, data["duration_minutes"]).Equal(any(420.0))
	})

	t.Run("records on the same date are summed", func(t *testing.T) {
		page := rangedPage(types.MetricSleep, `{"sleep":[
{"dateOfSleep":"2025-11-11","duration":3600000},
{"dateOfSleep":"2025-11-10","duration":900000,"isMainSleep":false},
{"dateOfSleep":"2025-11-10","duration":24300000,"isMainSleep":true}]}`)

		points, err := usecase.Resample(types.MetricSleep, []*fitbit.Page{page}, types.GranularityHour, time.UTC)
		gt.NoError(t, err).Required()
		gt.Array(t, points).Length(2).Required()
		gt.Value(t, points[0].Value).Equal(420.0)
		gt.Value(t, points[1].Value).Equal(60.0)
	})
}

func TestResampleEmpty(t *testing.T) {
	pages := []*fitbit.Page{
		intradayPage(types.MetricSteps, "2024-03-01", `{"activities-steps-intraday":{"dataset":[]}}`),
		intradayPage(types.MetricSteps, "2024-03-02", `{}`),
	}

	points, err := usecase.Resample(types.MetricSteps, pages, types.GranularityHour, time.UTC)
	gt.NoError(t, err).Required()
	gt.Array(t, points).Length(0)

	points, err = usecase.Resample(types.MetricSleep, []*fitbit.Page{rangedPage(types.MetricSleep, `{"sleep":[]}`)}, types.GranularityDay, time.UTC)
	gt.NoError(t, err).Required()
	gt.Array(t, points).Length(0)
}

func TestResampleMalformed(t *testing.T) {
	page := intradayPage(types.MetricHeartRate, "2024-03-01", `{"activities-heart-intraday":`)
	_, err := usecase.Resample(types.MetricHeartRate, []*fitbit.Page{page}, types.GranularityMinute, time.UTC)
	gt.Error(t, err)
}
