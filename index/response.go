package index

import (
	"fmt"
	"time"
)

// responses
type StatusResponse struct {
	State        string       `json:"state"`
	Cycles       int64        `json:"cycles"`
	SeenBlocks   int          `json:"seen_blocks"`
	KnownJettons int          `json:"known_jettons"`
	Proxies      int          `json:"proxies"`
	RequestDelay Seconds      `json:"request_delay"`
	Timeout      Seconds      `json:"timeout"`
	LastCycle    *CycleReport `json:"last_cycle,omitempty"`
} // @name StatusResponse

type CycleReport struct {
	Id              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	Duration        Seconds   `json:"duration"`
	Blocks          int       `json:"blocks"`
	Addresses       int       `json:"addresses"`
	Wallets         int       `json:"wallets"`
	JettonWallets   int       `json:"jetton_wallets"`
	NewJettons      int       `json:"new_jettons"`
	Responses       int       `json:"responses"`
	TooManyRequests int       `json:"too_many_requests"`
	Submitted       int       `json:"submitted"`
	Missing         int       `json:"missing"`
	DelayRaised     bool      `json:"delay_raised"`
	TimeoutRaised   bool      `json:"timeout_raised"`
	Critical        bool      `json:"critical"`
} // @name CycleReport

type HealthResponse struct {
	Status string `json:"status"`
} // @name HealthResponse

// errors
type IndexError struct {
	Message string `json:"error"`
	Code    int    `json:"code"`
}

func (r IndexError) Error() string {
	return fmt.Sprintf("Error %d: %s", r.Code, r.Message)
}
