//go:build integration

package crud

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kdimentionaltree/ton-wallet-indexer/index/models"
)

const (
	ownerRaw  = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	masterRaw = "0:b113a994b5024a16719f69139328eb759596c38a25f59028b146fecdc3621dfe"
	jwRaw     = "0:1111111111111111111111111111111111111111111111111111111111111111"
)

func setupTestDb(t *testing.T) *DbClient {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("wallet_indexer"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := NewDbClient(ctx, dsn, 4, 0)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.CreateTables(ctx))
	require.NoError(t, db.CreateTables(ctx))
	return db
}

func TestDbClient_Wallets(t *testing.T) {
	db := setupTestDb(t)
	ctx := context.Background()
	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	w := models.WalletRecord{
		RawAddress:    ownerRaw,
		Bounceable:    "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N",
		NonBounceable: "UQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqEBI",
		WalletType:    "v4r2",
		Balance:       decimal.RequireFromString("1.5"),
		LastUpdate:    first,
	}
	require.NoError(t, db.SaveWallets(ctx, []models.WalletRecord{w}))

	w.Balance = decimal.RequireFromString("2.000000001")
	w.LastUpdate = first.Add(time.Minute)
	require.NoError(t, db.SaveWallets(ctx, []models.WalletRecord{w}))

	var balance string
	var lastUpdate time.Time
	var count int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT count(*) FROM account`).Scan(&count))
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT balance::text, last_update FROM account WHERE raw_address = $1`, ownerRaw).Scan(&balance, &lastUpdate))
	assert.Equal(t, 1, count)
	assert.Equal(t, "2.000000001", balance)

	var bounceable, nonBounceable string
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT bounceable_address, non_bounceable_address FROM account WHERE raw_address = $1`, ownerRaw).Scan(&bounceable, &nonBounceable))
	assert.Equal(t, w.Bounceable, bounceable)
	assert.Equal(t, w.NonBounceable, nonBounceable)
	assert.True(t, lastUpdate.Equal(first.Add(time.Minute)))
}

func TestDbClient_JettonsAndJettonWallets(t *testing.T) {
	db := setupTestDb(t)
	ctx := context.Background()

	jetton := models.JettonRecord{RawAddress: masterRaw, Bounceable: "EQ-master", NonBounceable: "UQ-master"}
	require.NoError(t, db.SaveJettons(ctx, []models.JettonRecord{jetton}))
	jetton.Bounceable = "changed"
	require.NoError(t, db.SaveJettons(ctx, []models.JettonRecord{jetton}))

	known, err := db.GetJettonAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{masterRaw}, known)

	var bounceable string
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT bounceable_address FROM jetton`).Scan(&bounceable))
	assert.Equal(t, "EQ-master", bounceable)

	jw := models.JettonWalletRecord{
		Owner:         ownerRaw,
		JettonMaster:  masterRaw,
		RawAddress:    jwRaw,
		Bounceable:    "EQ-jw",
		NonBounceable: "UQ-jw",
		Balance:       decimal.RequireFromString("10"),
		LastUpdate:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.SaveJettonWallets(ctx, []models.JettonWalletRecord{jw}))
	jw.Balance = decimal.RequireFromString("7.25")
	require.NoError(t, db.SaveJettonWallets(ctx, []models.JettonWalletRecord{jw}))

	var balance string
	var count int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT count(*) FROM account_jettons`).Scan(&count))
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT balance::text FROM account_jettons WHERE owner_wallet = $1 AND jetton_master = $2`,
		ownerRaw, masterRaw).Scan(&balance))
	assert.Equal(t, 1, count)
	assert.Equal(t, "7.25", balance)
}

func TestDbClient_EmptyBatches(t *testing.T) {
	db := setupTestDb(t)
	ctx := context.Background()
	assert.NoError(t, db.SaveWallets(ctx, nil))
	assert.NoError(t, db.SaveJettons(ctx, nil))
	assert.NoError(t, db.SaveJettonWallets(ctx, nil))
}
