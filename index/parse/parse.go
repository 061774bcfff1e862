// Package parse converts toncenter payloads into indexer records.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kdimentionaltree/ton-wallet-indexer/index/codec"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/models"
)

const (
	NanoDigits       = 9
	WalletTypeLength = 16
)

// NanoToDecimal places the decimal point NanoDigits from the end of an
// integer minor-unit string.
func NanoToDecimal(value string) (decimal.Decimal, error) {
	i, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid balance %q", value)
	}
	return decimal.NewFromBigInt(i, -NanoDigits), nil
}

// WalletType drops the first word and joins the rest: "wallet v4 r2" -> "v4r2".
func WalletType(value string) string {
	words := strings.Fields(value)
	if len(words) < 2 {
		return ""
	}
	res := strings.Join(words[1:], "")
	if len(res) > WalletTypeLength {
		res = res[:WalletTypeLength]
	}
	return res
}

// Converter builds records from successful responses. Records returned
// alongside a non-nil error are still valid; the error lists skipped entries.
type Converter struct {
	Testnet bool
	Now     func() time.Time
}

func (c Converter) now() time.Time {
	if c.Now == nil {
		return models.Observed(time.Now())
	}
	return models.Observed(c.Now())
}

func (c Converter) Jetton(raw string) (models.JettonRecord, error) {
	norm, err := codec.Normalize(raw)
	if err != nil {
		return models.JettonRecord{}, err
	}
	forms, err := codec.FromRaw(norm, c.Testnet)
	if err != nil {
		return models.JettonRecord{}, err
	}
	return models.JettonRecord{
		RawAddress:    norm,
		Bounceable:    forms.Bounceable,
		NonBounceable: forms.NonBounceable,
	}, nil
}

// Wallet converts a /wallet response. An absent or empty wallet_type means
// the account is not a wallet and yields nothing.
func (c Converter) Wallet(address string, payload []byte) ([]models.WalletRecord, error) {
	var info models.WalletInformation
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, fmt.Errorf("decode wallet %s: %w", address, err)
	}
	if info.WalletType == nil || len(*info.WalletType) == 0 {
		return nil, nil
	}
	raw, err := codec.Normalize(address)
	if err != nil {
		return nil, err
	}
	forms, err := codec.FromRaw(raw, c.Testnet)
	if err != nil {
		return nil, err
	}
	balance, err := NanoToDecimal(info.Balance)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", address, err)
	}
	return []models.WalletRecord{{
		RawAddress:    raw,
		Bounceable:    forms.Bounceable,
		NonBounceable: forms.NonBounceable,
		WalletType:    WalletType(*info.WalletType),
		Balance:       balance,
		LastUpdate:    c.now(),
	}}, nil
}

// JettonWallets converts a /jetton/wallets response for owner.
func (c Converter) JettonWallets(owner string, payload []byte) ([]models.JettonWalletRecord, error) {
	var resp models.JettonWalletsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode jetton wallets of %s: %w", owner, err)
	}
	if len(resp.Wallets) == 0 {
		return nil, nil
	}
	ownerRaw, err := codec.Normalize(owner)
	if err != nil {
		return nil, err
	}
	now := c.now()
	var errs []error
	res := make([]models.JettonWalletRecord, 0, len(resp.Wallets))
	for _, w := range resp.Wallets {
		rec, err := c.jettonWallet(ownerRaw, w, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res = append(res, rec)
	}
	return res, errors.Join(errs...)
}

func (c Converter) jettonWallet(owner string, w models.JettonWallet, now time.Time) (models.JettonWalletRecord, error) {
	raw, err := codec.Normalize(w.Address)
	if err != nil {
		return models.JettonWalletRecord{}, fmt.Errorf("jetton wallet %q: %w", w.Address, err)
	}
	master, err := codec.Normalize(w.Jetton)
	if err != nil {
		return models.JettonWalletRecord{}, fmt.Errorf("jetton master %q: %w", w.Jetton, err)
	}
	forms, err := codec.FromRaw(raw, c.Testnet)
	if err != nil {
		return models.JettonWalletRecord{}, err
	}
	balance, err := NanoToDecimal(w.Balance)
	if err != nil {
		return models.JettonWalletRecord{}, fmt.Errorf("jetton wallet %s: %w", raw, err)
	}
	return models.JettonWalletRecord{
		Owner:         owner,
		JettonMaster:  master,
		RawAddress:    raw,
		Bounceable:    forms.Bounceable,
		NonBounceable: forms.NonBounceable,
		Balance:       balance,
		LastUpdate:    now,
	}, nil
}
