package usecase

import (
	"slices"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"github.com/secmon-lab/wearsync/pkg/domain/types"
	"github.com/secmon-lab/wearsync/pkg/service/fitbit"
)

const timeOfDayLayout = "15:04:05"

// Resample turns raw pages of one metric into points ordered by timestamp.
// Calendar dates and times of day in the payload are read in loc.
func Resample(metric types.Metric, pages []*fitbit.Page, g types.Granularity, loc *time.Location) ([]*model.Point, error) {
	var points []*model.Point

	for _, page := range pages {
		var (
			p   []*model.Point
			err error
		)

		switch metric {
		case types.MetricSteps:
			p, err = stepsPoints(page, g, loc)
		case types.MetricHeartRate:
			p, err = heartRatePoints(page, g, loc)
		case types.MetricSleep:
			p, err = sleepPoints(page.Body, loc)
		default:
			return nil, goerr.New("unsupported metric", goerr.V(MetricKey, metric))
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resample page",
				goerr.V(MetricKey, metric),
				goerr.V("date", page.Date.Format(time.DateOnly)))
		}
		points = append(points, p...)
	}

	slices.SortStableFunc(points, func(a, b *model.Point) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return points, nil
}

func stepsPoints(page *fitbit.Page, g types.Granularity, loc *time.Location) ([]*model.Point, error) {
	if !page.Intraday {
		var resp fitbit.StepsDailyResponse
		if err := json.Unmarshal(page.Body, &resp); err != nil {
			return nil, goerr.Wrap(err, "failed to parse daily steps")
		}
		return dailyTotals(resp.Steps, loc)
	}

	var resp fitbit.StepsIntradayResponse
	if err := json.Unmarshal(page.Body, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to parse intraday steps")
	}
	return intradayPoints(types.MetricSteps, page.Date, resp.Intraday.Dataset, g, loc, sum)
}

func heartRatePoints(page *fitbit.Page, g types.Granularity, loc *time.Location) ([]*model.Point, error) {
	if !page.Intraday {
		var resp fitbit.HeartDailyResponse
		if err := json.Unmarshal(page.Body, &resp); err != nil {
			return nil, goerr.Wrap(err, "failed to parse daily heart rate")
		}

		var points []*model.Point
		for _, d := range resp.Heart {
			if d.Value.RestingHeartRate == nil {
				continue
			}
			day, err := time.ParseInLocation(time.DateOnly, d.DateTime, loc)
			if err != nil {
				return nil, goerr.Wrap(err, "invalid dateTime", goerr.V("dateTime", d.DateTime))
			}
			points = append(points, &model.Point{
				Timestamp: day,
				Metric:    types.MetricHeartRate,
				Value:     *d.Value.RestingHeartRate,
			})
		}
		return points, nil
	}

	var resp fitbit.HeartIntradayResponse
	if err := json.Unmarshal(page.Body, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to parse intraday heart rate")
	}
	return intradayPoints(types.MetricHeartRate, page.Date, resp.Intraday.Dataset, g, loc, mean)
}

// sleepPoints sums the durations of every log on the same date into minutes
func sleepPoints(body []byte, loc *time.Location) ([]*model.Point, error) {
	var resp fitbit.SleepResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to parse sleep logs")
	}

	totals := make(map[string]int64)
	var dates []string
	for _, entry := range resp.Sleep {
		if _, ok := totals[entry.DateOfSleep]; !ok {
			dates = append(dates, entry.DateOfSleep)
		}
		totals[entry.DateOfSleep] += entry.Duration
	}
	slices.Sort(dates)

	points := make([]*model.Point, 0, len(dates))
	for _, date := range dates {
		day, err := time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid dateOfSleep", goerr.V("dateOfSleep", date))
		}
		points = append(points, &model.Point{
			Timestamp: day,
			Metric:    types.MetricSleep,
			Value:     float64(totals[date]) / 1000 / 60,
		})
	}
	return points, nil
}

func dailyTotals(values []fitbit.DailyValue, loc *time.Location) ([]*model.Point, error) {
	points := make([]*model.Point, 0, len(values))
	for _, v := range values {
		day, err := time.ParseInLocation(time.DateOnly, v.DateTime, loc)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid dateTime", goerr.V("dateTime", v.DateTime))
		}
		n, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid daily value", goerr.V("value", v.Value))
		}
		points = append(points, &model.Point{Timestamp: day, Metric: types.MetricSteps, Value: n})
	}
	return points, nil
}

type aggregate func(values []float64) float64

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	return sum(values) / float64(len(values))
}

// intradayPoints combines day with each sample's time of day. At hourly
// granularity samples are grouped by floor-to-hour and reduced with agg.
func intradayPoints(metric types.Metric, day time.Time, samples []fitbit.IntradaySample, g types.Granularity, loc *time.Location, agg aggregate) ([]*model.Point, error) {
	y, m, d := day.Date()

	points := make([]*model.Point, 0, len(samples))
	for _, s := range samples {
		tod, err := time.Parse(timeOfDayLayout, s.Time)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid sample time", goerr.V("time", s.Time))
		}
		points = append(points, &model.Point{
			Timestamp: time.Date(y, m, d, tod.Hour(), tod.Minute(), tod.Second(), 0, loc),
			Metric:    metric,
			Value:     s.Value,
		})
	}

	if g != types.GranularityHour {
		return points, nil
	}

	buckets := make(map[time.Time][]float64)
	var hours []time.Time
	for _, p := range points {
		h := time.Date(y, m, d, p.Timestamp.Hour(), 0, 0, 0, loc)
		if _, ok := buckets[h]; !ok {
			hours = append(hours, h)
		}
		buckets[h] = append(buckets[h], p.Value)
	}
	slices.SortFunc(hours, func(a, b time.Time) int { return a.Compare(b) })

	hourly := make([]*model.Point, 0, len(hours))
	for _, h := range hours {
		hourly = append(hourly, &model.Point{Timestamp: h, Metric: metric, Value: agg(buckets[h])})
	}
	return hourly, nil
}
