package request

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/kdimentionaltree/ton-wallet-indexer/index/proxy"
)

// Converter turns a successful response for address into records. Records
// returned together with an error are kept.
type Converter[T any] func(address string, payload []byte) ([]T, error)

// newLimiter allows one dispatch per delay with no burst. A zero delay
// disables the pause.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Drain claims addresses from queue one at a time and dispatches each through
// p, at most one dispatch per request delay. Requests stay in flight while the
// next ones are dispatched. Drain returns once queue is closed and empty and
// every request has finished.
func Drain[T any](ctx context.Context, c *Client, queue <-chan string, endpoint Endpoint, p proxy.Proxy, convert Converter[T]) []T {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		res []T
	)
	lim := newLimiter(c.rates.Load().RequestDelay)

loop:
	for {
		var address string
		select {
		case <-ctx.Done():
			break loop
		case addr, ok := <-queue:
			if !ok {
				break loop
			}
			address = addr
		}
		if err := lim.Wait(ctx); err != nil {
			break loop
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			out := c.Do(endpoint, address, p)
			if out.Kind != Success {
				return
			}
			records, err := convert(address, out.Body)
			if err != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"endpoint": endpoint.Name,
					"address":  address,
				}).Warn("failed to convert response")
			}
			if len(records) > 0 {
				mu.Lock()
				res = append(res, records...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return res
}

// FanOut runs one Drain per proxy over a single shared queue holding
// addresses. Result order is unspecified.
func FanOut[T any](ctx context.Context, c *Client, proxies []proxy.Proxy, addresses []string, endpoint Endpoint, convert Converter[T]) []T {
	queue := make(chan string, len(addresses))
	for _, addr := range addresses {
		queue <- addr
	}
	close(queue)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		res []T
	)
	for _, p := range proxies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records := Drain(ctx, c, queue, endpoint, p, convert)
			mu.Lock()
			res = append(res, records...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return res
}
