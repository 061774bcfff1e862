// Package condition tunes the shared request delay and timeout from the
// responses observed during a cycle.
package condition

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kdimentionaltree/ton-wallet-indexer/index/metrics"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/request"
)

const (
	DelayStep        = 100 * time.Millisecond
	TimeoutStep      = 2 * time.Second
	RateLimitedRatio = 0.01
	MissingRatio     = 0.005
	CriticalMissing  = 10
)

// Report describes one evaluation.
type Report struct {
	Responses       int                    `json:"responses"`
	TooManyRequests int                    `json:"too_many_requests"`
	Submitted       int                    `json:"submitted"`
	Missing         int                    `json:"missing"`
	Statuses        map[string]map[int]int `json:"statuses"`
	Rates           request.Rates          `json:"rates"`
	DelayRaised     bool                   `json:"delay_raised"`
	TimeoutRaised   bool                   `json:"timeout_raised"`
	Critical        bool                   `json:"critical"`
}

// Controller only ever raises the delay and the timeout. Nothing lowers them
// until the process restarts.
type Controller struct {
	rates     *request.RateState
	telemetry *request.Telemetry
	logger    *logrus.Entry
}

func New(rates *request.RateState, telemetry *request.Telemetry, logger *logrus.Entry) *Controller {
	c := &Controller{rates: rates, telemetry: telemetry, logger: logger}
	c.export(rates.Load())
	return c
}

// Evaluate consumes the cycle telemetry, raises the rates when the error
// ratios are exceeded and reports whether the pipeline is in a critical state.
// Must not run concurrently with fetches.
func (c *Controller) Evaluate() Report {
	snap := c.telemetry.Reset()
	rep := Report{
		Responses:       snap.Responses(),
		TooManyRequests: snap.Count(http.StatusTooManyRequests),
		Submitted:       snap.Submitted,
		Missing:         snap.Missing(),
		Statuses:        snap.Statuses,
	}
	rates := c.rates.Load()

	if float64(rep.TooManyRequests) > RateLimitedRatio*float64(rep.Responses) {
		rates.RequestDelay += DelayStep
		rep.DelayRaised = true
		metrics.Adjustments.WithLabelValues("request_delay").Inc()
		c.logger.WithFields(logrus.Fields{
			"too_many_requests": rep.TooManyRequests,
			"responses":         rep.Responses,
			"request_delay":     rates.RequestDelay,
		}).Info("raised request delay")
	}
	if float64(rep.Missing) > MissingRatio*float64(rep.Submitted) {
		rates.Timeout += TimeoutStep
		rep.TimeoutRaised = true
		metrics.Adjustments.WithLabelValues("timeout").Inc()
		c.logger.WithFields(logrus.Fields{
			"missing":   rep.Missing,
			"submitted": rep.Submitted,
			"timeout":   rates.Timeout,
		}).Info("raised request timeout")
	}
	if rep.DelayRaised || rep.TimeoutRaised {
		c.rates.Store(rates)
	}
	rep.Rates = rates
	c.export(rates)
	metrics.MissingResponses.Set(float64(rep.Missing))

	if rep.Missing > CriticalMissing {
		rep.Critical = true
		c.logger.WithFields(logrus.Fields{
			"missing":   rep.Missing,
			"submitted": rep.Submitted,
		}).Error("critical state: too many missing responses")
	}
	return rep
}

func (c *Controller) export(r request.Rates) {
	metrics.RequestDelay.Set(r.RequestDelay.Seconds())
	metrics.RequestTimeout.Set(r.Timeout.Seconds())
}
