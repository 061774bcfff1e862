package crud

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS account (
		raw_address VARCHAR(70) PRIMARY KEY,
		bounceable_address VARCHAR(48) NOT NULL,
		non_bounceable_address VARCHAR(48) NOT NULL,
		wallet_type VARCHAR(16),
		balance NUMERIC NOT NULL,
		last_update TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jetton (
		raw_address VARCHAR(70) PRIMARY KEY,
		bounceable_address VARCHAR(48) NOT NULL,
		non_bounceable_address VARCHAR(48) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS account_jettons (
		owner_wallet VARCHAR(70) NOT NULL,
		jetton_master VARCHAR(70) NOT NULL,
		raw_address VARCHAR(70) NOT NULL,
		bounceable_address VARCHAR(48) NOT NULL,
		non_bounceable_address VARCHAR(48) NOT NULL,
		balance NUMERIC NOT NULL,
		last_update TIMESTAMP NOT NULL,
		PRIMARY KEY (owner_wallet, jetton_master)
	)`,
}

// CreateTables creates the indexer tables if they are missing.
func (db *DbClient) CreateTables(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}
