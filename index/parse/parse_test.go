package parse

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerRaw  = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	masterRaw = "0:B113A994B5024A16719F69139328EB759596C38A25F59028B146FECDC3621DFE"
	jwRaw     = "0:1111111111111111111111111111111111111111111111111111111111111111"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 30, 15, 987654321, time.UTC)
}

func TestNanoToDecimal(t *testing.T) {
	cases := map[string]string{
		"1500000000": "1.5",
		"5":          "0.000000005",
		"0":          "0",
		"123456789012345678901234567890": "123456789012345678901.23456789",
	}
	for in, want := range cases {
		got, err := NanoToDecimal(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s -> %s", in, got)
	}
	_, err := NanoToDecimal("12a")
	assert.Error(t, err)
	_, err = NanoToDecimal("")
	assert.Error(t, err)
}

func TestWalletType(t *testing.T) {
	assert.Equal(t, "v4r2", WalletType("wallet v4 r2"))
	assert.Equal(t, "v5r1", WalletType("wallet v5 r1"))
	assert.Equal(t, "highloadv2", WalletType("wallet highload v2"))
	assert.Equal(t, "", WalletType("wallet"))
	assert.Equal(t, "", WalletType(""))
}

func TestConverter_Wallet(t *testing.T) {
	c := Converter{Now: fixedClock}
	recs, err := c.Wallet(ownerRaw, []byte(`{"balance":"2500000000","wallet_type":"wallet v4 r2","seqno":12,"status":"active"}`))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, ownerRaw, rec.RawAddress)
	assert.Equal(t, "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N", rec.Bounceable)
	assert.Equal(t, "UQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqEBI", rec.NonBounceable)
	assert.Equal(t, "v4r2", rec.WalletType)
	assert.True(t, rec.Balance.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC), rec.LastUpdate)
}

func TestConverter_WalletAbsent(t *testing.T) {
	c := Converter{Now: fixedClock}
	for _, payload := range []string{
		`{"balance":"0","status":"uninit"}`,
		`{"balance":"0","wallet_type":"","status":"active"}`,
	} {
		recs, err := c.Wallet(ownerRaw, []byte(payload))
		require.NoError(t, err, payload)
		assert.Empty(t, recs, payload)
	}
	_, err := c.Wallet(ownerRaw, []byte(`not json`))
	assert.Error(t, err)
}

func TestConverter_JettonWallets(t *testing.T) {
	c := Converter{Now: fixedClock}
	payload := `{"jetton_wallets":[
		{"address":"` + jwRaw + `","balance":"1000000000","owner":"` + ownerRaw + `","jetton":"` + masterRaw + `","last_transaction_lt":"1"},
		{"address":"broken","balance":"1","owner":"` + ownerRaw + `","jetton":"` + masterRaw + `"}
	]}`
	recs, err := c.JettonWallets(ownerRaw, []byte(payload))
	assert.Error(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, ownerRaw, rec.Owner)
	assert.Equal(t, "0:b113a994b5024a16719f69139328eb759596c38a25f59028b146fecdc3621dfe", rec.JettonMaster)
	assert.Equal(t, jwRaw, rec.RawAddress)
	assert.NotEqual(t, rec.Bounceable, rec.NonBounceable)
	assert.True(t, rec.Balance.Equal(decimal.NewFromInt(1)))
}

func TestConverter_JettonWalletsEmpty(t *testing.T) {
	recs, err := Converter{}.JettonWallets(ownerRaw, []byte(`{"jetton_wallets":[]}`))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestConverter_Jetton(t *testing.T) {
	rec, err := Converter{}.Jetton(masterRaw)
	require.NoError(t, err)
	assert.Equal(t, "0:b113a994b5024a16719f69139328eb759596c38a25f59028b146fecdc3621dfe", rec.RawAddress)
	assert.Equal(t, "EQ", rec.Bounceable[:2])
	assert.Equal(t, "UQ", rec.NonBounceable[:2])
}
