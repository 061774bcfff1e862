package blockchain

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/ton"
)

const baseShard = int64(-9223372036854775808)

type fakeClient struct {
	polls    [][]*ton.BlockIDExt
	pollErrs []error
	txErrs   []error
	txs      []Transaction
	calls    int
	txCalls  int
}

func (f *fakeClient) ShardHeads(ctx context.Context) ([]*ton.BlockIDExt, error) {
	f.calls++
	if len(f.pollErrs) > 0 {
		err := f.pollErrs[0]
		f.pollErrs = f.pollErrs[1:]
		return nil, err
	}
	if len(f.polls) == 0 {
		return nil, nil
	}
	res := f.polls[0]
	f.polls = f.polls[1:]
	return res, nil
}

func (f *fakeClient) BlockTransactions(ctx context.Context, block *ton.BlockIDExt) ([]Transaction, error) {
	f.txCalls++
	if len(f.txErrs) > 0 {
		err := f.txErrs[0]
		f.txErrs = f.txErrs[1:]
		return nil, err
	}
	return f.txs, nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func block(seqno uint32) *ton.BlockIDExt {
	return &ton.BlockIDExt{Workchain: 0, Shard: baseShard, SeqNo: seqno}
}

func TestSource_DedupAcrossPolls(t *testing.T) {
	client := &fakeClient{polls: [][]*ton.BlockIDExt{
		{block(5)},
		{block(5), block(6)},
		{block(6)},
	}}
	src := NewSource(client, NewSeenBlocks(), quietLogger())
	ctx := context.Background()

	var yielded []uint32
	for i := 0; i < 3; i++ {
		blocks, err := src.Next(ctx)
		require.NoError(t, err)
		for _, b := range blocks {
			yielded = append(yielded, b.SeqNo)
		}
	}
	assert.Equal(t, []uint32{5, 6}, yielded)
}

func TestSource_DedupKeyedByShard(t *testing.T) {
	other := &ton.BlockIDExt{Workchain: 0, Shard: 0x6000000000000000, SeqNo: 5}
	seen := NewSeenBlocks()
	fresh := seen.Filter([]*ton.BlockIDExt{block(5), other, block(5)})
	assert.Len(t, fresh, 2)
	assert.Equal(t, 2, seen.Len())
}

func TestSource_RetriesTransientErrors(t *testing.T) {
	client := &fakeClient{
		pollErrs: []error{ton.LSError{Code: 651, Text: "not enough consensus"}, errors.New("connection reset")},
		polls:    [][]*ton.BlockIDExt{{block(7)}},
	}
	src := NewSource(client, NewSeenBlocks(), quietLogger())

	blocks, err := src.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, 3, client.calls)
}

func TestSource_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &fakeClient{}
	_, err := NewSource(client, NewSeenBlocks(), quietLogger()).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, client.calls)
}

func TestSource_TransactionsRetry(t *testing.T) {
	client := &fakeClient{
		txErrs: []error{ton.LSError{Code: -400, Text: "block not ready"}},
		txs:    []Transaction{{Lt: 1}},
	}
	src := NewSource(client, NewSeenBlocks(), quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	txs, err := src.Transactions(ctx, block(1))
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, 2, client.txCalls)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ton.LSError{Code: 651}))
	assert.True(t, IsTransient(io.ErrUnexpectedEOF))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(nil))
}

func addr(b byte) *address.Address {
	return address.NewAddress(0, 0, bytes.Repeat([]byte{b}, 32))
}

func TestExtractAddresses_Internal(t *testing.T) {
	txs := []Transaction{{In: &Message{Internal: true, Source: addr(0xaa), Dest: addr(0xbb)}}}
	got := ExtractAddresses(txs)
	assert.Equal(t, []string{
		"0:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"0:bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	}, got)
}

func TestExtractAddresses_SkipsExternal(t *testing.T) {
	txs := []Transaction{
		{In: &Message{Internal: false, Dest: addr(0xcc)}},
		{In: nil},
	}
	assert.Empty(t, ExtractAddresses(txs))
}

func TestExtractAddresses_KeepsDuplicates(t *testing.T) {
	txs := []Transaction{
		{In: &Message{Internal: true, Source: addr(0xaa), Dest: addr(0xbb)}},
		{In: &Message{Internal: true, Source: addr(0xbb), Dest: addr(0xaa)}},
	}
	assert.Len(t, ExtractAddresses(txs), 4)
}
