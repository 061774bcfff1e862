// Package blockchain polls shard heads and extracts the accounts touched by
// internal messages.
package blockchain

import (
	"context"
	"errors"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/ton"

	"github.com/kdimentionaltree/ton-wallet-indexer/index/codec"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/metrics"
)

type Message struct {
	Internal bool
	Source   *address.Address
	Dest     *address.Address
}

type Transaction struct {
	Account []byte
	Lt      uint64
	In      *Message
}

type Client interface {
	ShardHeads(ctx context.Context) ([]*ton.BlockIDExt, error)
	BlockTransactions(ctx context.Context, block *ton.BlockIDExt) ([]Transaction, error)
}

type BlockKey struct {
	Workchain int32
	Shard     int64
	Seqno     uint32
}

func KeyOf(b *ton.BlockIDExt) BlockKey {
	return BlockKey{Workchain: b.Workchain, Shard: b.Shard, Seqno: b.SeqNo}
}

// SeenBlocks grows for the lifetime of the process and is only cleared by a
// restart.
type SeenBlocks struct {
	set mapset.Set[BlockKey]
}

func NewSeenBlocks() *SeenBlocks {
	return &SeenBlocks{set: mapset.NewSet[BlockKey]()}
}

// Filter keeps the blocks not seen before and marks them as seen.
func (s *SeenBlocks) Filter(blocks []*ton.BlockIDExt) []*ton.BlockIDExt {
	fresh := make([]*ton.BlockIDExt, 0, len(blocks))
	for _, b := range blocks {
		if s.set.Add(KeyOf(b)) {
			fresh = append(fresh, b)
		}
	}
	return fresh
}

func (s *SeenBlocks) Len() int {
	return s.set.Cardinality()
}

// IsTransient reports whether err should be retried. Everything except
// context cancellation is: polls and block reads are idempotent.
func IsTransient(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func retryFields(err error) logrus.Fields {
	fields := logrus.Fields{}
	var lsErr ton.LSError
	if errors.As(err, &lsErr) {
		fields["ls_code"] = lsErr.Code
	}
	return fields
}

type Source struct {
	client Client
	seen   *SeenBlocks
	logger *logrus.Entry
}

func NewSource(client Client, seen *SeenBlocks, logger *logrus.Entry) *Source {
	return &Source{client: client, seen: seen, logger: logger}
}

// Next polls the shard heads until the client answers and returns the blocks
// not yielded before. The result may be empty. Only context errors are
// returned.
func (s *Source) Next(ctx context.Context) ([]*ton.BlockIDExt, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		heads, err := s.client.ShardHeads(ctx)
		if err == nil {
			return s.seen.Filter(heads), nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		metrics.LiteRetries.WithLabelValues("shard_heads").Inc()
		s.logger.WithError(err).WithFields(retryFields(err)).WithField("attempt", attempt).Warn("shard heads poll failed, retrying")
	}
}

// Transactions reads all transactions of block, retrying until the client
// answers.
func (s *Source) Transactions(ctx context.Context, block *ton.BlockIDExt) ([]Transaction, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txs, err := s.client.BlockTransactions(ctx, block)
		if err == nil {
			return txs, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		metrics.LiteRetries.WithLabelValues("block_transactions").Inc()
		s.logger.WithError(err).WithFields(retryFields(err)).WithFields(logrus.Fields{
			"workchain": block.Workchain,
			"shard":     block.Shard,
			"seqno":     block.SeqNo,
			"attempt":   attempt,
		}).Warn("block transactions read failed, retrying")
	}
}

// ExtractAddresses returns source and destination of every internal inbound
// message as raw "workchain:hex" strings. Duplicates are kept.
func ExtractAddresses(txs []Transaction) []string {
	var res []string
	for _, tx := range txs {
		if tx.In == nil || !tx.In.Internal {
			continue
		}
		for _, addr := range []*address.Address{tx.In.Source, tx.In.Dest} {
			if addr == nil || len(addr.Data()) != codec.HashLength {
				continue
			}
			res = append(res, codec.FormatRaw(addr.Workchain(), addr.Data()))
		}
	}
	return res
}
