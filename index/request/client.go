package request

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/kdimentionaltree/ton-wallet-indexer/index/metrics"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/proxy"
)

type Kind int

const (
	Success Kind = iota
	RateLimited
	Timeout
	Failed
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case RateLimited:
		return "rate_limited"
	case Timeout:
		return "timeout"
	default:
		return "failed"
	}
}

// Outcome of one request. Status is zero when no response was received.
type Outcome struct {
	Kind   Kind
	Status int
	Body   []byte
	Err    error
}

// Endpoint is a toncenter GET method taking the address in Param.
type Endpoint struct {
	Name  string
	Url   string
	Param string
}

func WalletEndpoint(url string) Endpoint {
	return Endpoint{Name: "wallet", Url: url, Param: "address"}
}

func JettonWalletsEndpoint(url string) Endpoint {
	return Endpoint{Name: "jetton_wallets", Url: url, Param: "owner_address"}
}

// Client sends single requests and accounts for every one of them in the
// shared telemetry.
type Client struct {
	rates     *RateState
	telemetry *Telemetry
	logger    *logrus.Entry
}

func NewClient(rates *RateState, telemetry *Telemetry, logger *logrus.Entry) *Client {
	return &Client{rates: rates, telemetry: telemetry, logger: logger}
}

func (c *Client) Rates() *RateState {
	return c.rates
}

func (c *Client) Telemetry() *Telemetry {
	return c.telemetry
}

// Do issues one GET for address through p. It never retries.
func (c *Client) Do(endpoint Endpoint, address string, p proxy.Proxy) Outcome {
	rates := c.rates.Load()
	c.telemetry.Submit()

	params := url.Values{}
	params.Set(endpoint.Param, address)
	if p.ApiKey != "" {
		params.Set("api_key", p.ApiKey)
	}

	agent := fiber.Get(endpoint.Url)
	if dial := p.Dialer(); dial != nil && agent.HostClient != nil {
		agent.HostClient.Dial = dial
	}
	agent.QueryString(params.Encode())
	if p.UserAgent != "" {
		agent.UserAgent(p.UserAgent)
	}
	agent.Timeout(rates.Timeout)

	start := time.Now()
	code, body, errs := agent.Bytes()
	metrics.FetchLatency.WithLabelValues(endpoint.Name).Observe(time.Since(start).Seconds())

	out := c.classify(endpoint, code, body, errs)
	metrics.FetchRequests.WithLabelValues(endpoint.Name, out.Kind.String()).Inc()

	log := c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint.Name,
		"address":  address,
		"proxy":    p.Name(),
	})
	switch out.Kind {
	case RateLimited:
		log.Warn("too many requests")
	case Timeout:
		log.WithField("timeout", rates.Timeout).Warn("request timed out")
	case Failed:
		log.WithError(out.Err).WithField("status", out.Status).Debug("request failed")
	}
	return out
}

func (c *Client) classify(endpoint Endpoint, code int, body []byte, errs []error) Outcome {
	if len(errs) > 0 {
		err := errors.Join(errs...)
		if isTimeout(err) {
			return Outcome{Kind: Timeout, Err: err}
		}
		return Outcome{Kind: Failed, Err: err}
	}
	c.telemetry.Record(endpoint.Url, code)
	metrics.FetchStatuses.WithLabelValues(endpoint.Name, strconv.Itoa(code)).Inc()
	switch code {
	case fiber.StatusOK:
		return Outcome{Kind: Success, Status: code, Body: body}
	case fiber.StatusTooManyRequests:
		return Outcome{Kind: RateLimited, Status: code}
	default:
		return Outcome{Kind: Failed, Status: code, Err: fmt.Errorf("unexpected status %d", code)}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
