// Package crud persists indexer records to PostgreSQL.
package crud

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/kdimentionaltree/ton-wallet-indexer/index/models"
)

const (
	upsertWalletQuery = `INSERT INTO account (raw_address, bounceable_address, non_bounceable_address, wallet_type, balance, last_update)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (raw_address) DO UPDATE SET balance = EXCLUDED.balance, last_update = EXCLUDED.last_update`
	insertJettonQuery = `INSERT INTO jetton (raw_address, bounceable_address, non_bounceable_address)
		VALUES ($1, $2, $3)
		ON CONFLICT (raw_address) DO NOTHING`
	upsertJettonWalletQuery = `INSERT INTO account_jettons (owner_wallet, jetton_master, raw_address, bounceable_address, non_bounceable_address, balance, last_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_wallet, jetton_master) DO UPDATE SET balance = EXCLUDED.balance, last_update = EXCLUDED.last_update`
)

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func (db *DbClient) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	return db.Pool.SendBatch(ctx, batch).Close()
}

// SaveWallets upserts wallets by raw address, overwriting balance and
// last_update on conflict.
func (db *DbClient) SaveWallets(ctx context.Context, wallets []models.WalletRecord) error {
	batch := &pgx.Batch{}
	for _, w := range wallets {
		batch.Queue(upsertWalletQuery, w.RawAddress, w.Bounceable, w.NonBounceable, w.WalletType, numeric(w.Balance), w.LastUpdate)
	}
	if err := db.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to save wallets: %w", err)
	}
	return nil
}

// SaveJettons inserts jettons that are not stored yet.
func (db *DbClient) SaveJettons(ctx context.Context, jettons []models.JettonRecord) error {
	batch := &pgx.Batch{}
	for _, j := range jettons {
		batch.Queue(insertJettonQuery, j.RawAddress, j.Bounceable, j.NonBounceable)
	}
	if err := db.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to save jettons: %w", err)
	}
	return nil
}

// SaveJettonWallets upserts jetton wallets by (owner, jetton master).
func (db *DbClient) SaveJettonWallets(ctx context.Context, wallets []models.JettonWalletRecord) error {
	batch := &pgx.Batch{}
	for _, w := range wallets {
		batch.Queue(upsertJettonWalletQuery, w.Owner, w.JettonMaster, w.RawAddress, w.Bounceable, w.NonBounceable, numeric(w.Balance), w.LastUpdate)
	}
	if err := db.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to save jetton wallets: %w", err)
	}
	return nil
}

// GetJettonAddresses returns the raw addresses of all stored jettons.
func (db *DbClient) GetJettonAddresses(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT raw_address FROM jetton`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jettons: %w", err)
	}
	res, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read jettons: %w", err)
	}
	return res, nil
}
