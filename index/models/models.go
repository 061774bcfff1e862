// Package models holds the records produced by one indexing cycle.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WalletRecord struct {
	RawAddress    string
	Bounceable    string
	NonBounceable string
	WalletType    string
	Balance       decimal.Decimal
	LastUpdate    time.Time
}

type JettonRecord struct {
	RawAddress    string
	Bounceable    string
	NonBounceable string
}

// JettonWalletRecord is keyed by (Owner, JettonMaster).
type JettonWalletRecord struct {
	Owner         string
	JettonMaster  string
	RawAddress    string
	Bounceable    string
	NonBounceable string
	Balance       decimal.Decimal
	LastUpdate    time.Time
}

// Observed returns t truncated to whole seconds in UTC.
func Observed(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
