package crud

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNumeric(t *testing.T) {
	n := numeric(decimal.NewFromBigInt(big.NewInt(1500000000), -9))
	assert.True(t, n.Valid)
	assert.Equal(t, int32(-9), n.Exp)
	assert.Equal(t, "1500000000", n.Int.String())
}

func TestSchema(t *testing.T) {
	assert.Len(t, schema, 3)
	assert.Contains(t, schema[2], "PRIMARY KEY (owner_wallet, jetton_master)")
}

func TestSchema_AddressColumns(t *testing.T) {
	for _, stmt := range schema {
		assert.Contains(t, stmt, "raw_address VARCHAR(70)")
		assert.Contains(t, stmt, "\tbounceable_address VARCHAR(48) NOT NULL")
		assert.Contains(t, stmt, "non_bounceable_address VARCHAR(48) NOT NULL")
		assert.NotContains(t, stmt, "is_bounceable")
	}
	for _, q := range []string{upsertWalletQuery, insertJettonQuery, upsertJettonWalletQuery} {
		assert.Contains(t, q, "raw_address, bounceable_address, non_bounceable_address")
	}
}
