package blockchain

import (
	"context"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
)

const transactionsPage = 256

// LiteClient reads blocks from liteservers listed in a global config.
type LiteClient struct {
	pool *liteclient.ConnectionPool
	api  ton.APIClientWrapped
}

func Connect(ctx context.Context, configUrl string) (*LiteClient, error) {
	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, configUrl); err != nil {
		return nil, fmt.Errorf("failed to connect to liteservers: %w", err)
	}
	api := ton.NewAPIClient(pool).WithRetry()
	if _, err := api.CurrentMasterchainInfo(ctx); err != nil {
		pool.Stop()
		return nil, fmt.Errorf("failed to get masterchain info: %w", err)
	}
	return &LiteClient{pool: pool, api: api}, nil
}

func (c *LiteClient) Close() {
	c.pool.Stop()
}

func (c *LiteClient) ShardHeads(ctx context.Context) ([]*ton.BlockIDExt, error) {
	master, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, err
	}
	return c.api.GetBlockShardsInfo(ctx, master)
}

func (c *LiteClient) BlockTransactions(ctx context.Context, block *ton.BlockIDExt) ([]Transaction, error) {
	var res []Transaction
	var after []*ton.TransactionID3
	for {
		list, more, err := c.api.GetBlockTransactionsV2(ctx, block, transactionsPage, after...)
		if err != nil {
			return nil, err
		}
		for _, info := range list {
			addr := address.NewAddress(0, byte(block.Workchain), info.Account)
			tx, err := c.api.GetTransaction(ctx, block, addr, info.LT)
			if err != nil {
				return nil, err
			}
			res = append(res, convertTransaction(info.Account, info.LT, tx))
		}
		if !more || len(list) == 0 {
			return res, nil
		}
		last := list[len(list)-1]
		after = []*ton.TransactionID3{{Account: last.Account, LT: last.LT}}
	}
}

func convertTransaction(account []byte, lt uint64, tx *tlb.Transaction) Transaction {
	res := Transaction{Account: account, Lt: lt}
	if tx == nil || tx.IO.In == nil {
		return res
	}
	in := tx.IO.In
	res.In = &Message{Internal: in.MsgType == tlb.MsgTypeInternal}
	if res.In.Internal {
		msg := in.AsInternal()
		res.In.Source = msg.SrcAddr
		res.In.Dest = msg.DstAddr
	}
	return res
}
