// Package publish announces persisted records on a redis channel.
package publish

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kdimentionaltree/ton-wallet-indexer/index/models"
)

const (
	EventJettons = "jettons"
	EventWallets = "wallets"
)

type Store interface {
	SaveWallets(ctx context.Context, wallets []models.WalletRecord) error
	SaveJettons(ctx context.Context, jettons []models.JettonRecord) error
	SaveJettonWallets(ctx context.Context, wallets []models.JettonWalletRecord) error
	GetJettonAddresses(ctx context.Context) ([]string, error)
}

type Jetton struct {
	RawAddress    string `msgpack:"raw_address"`
	Bounceable    string `msgpack:"bounceable"`
	NonBounceable string `msgpack:"non_bounceable"`
}

type Wallet struct {
	RawAddress string `msgpack:"raw_address"`
	WalletType string `msgpack:"wallet_type"`
	Balance    string `msgpack:"balance"`
	LastUpdate int64  `msgpack:"last_update"`
}

type Event struct {
	Type    string   `msgpack:"type"`
	Jettons []Jetton `msgpack:"jettons,omitempty"`
	Wallets []Wallet `msgpack:"wallets,omitempty"`
}

func Decode(payload []byte) (Event, error) {
	var ev Event
	err := msgpack.Unmarshal(payload, &ev)
	return ev, err
}

// NotifyingStore publishes an event after every successful save of wallets
// or jettons. Publish failures are logged and do not fail the save.
type NotifyingStore struct {
	Store
	client  *redis.Client
	channel string
	logger  *logrus.Entry
}

func NewNotifyingStore(inner Store, client *redis.Client, channel string, logger *logrus.Entry) *NotifyingStore {
	return &NotifyingStore{Store: inner, client: client, channel: channel, logger: logger}
}

func (s *NotifyingStore) SaveWallets(ctx context.Context, wallets []models.WalletRecord) error {
	if err := s.Store.SaveWallets(ctx, wallets); err != nil {
		return err
	}
	if len(wallets) == 0 {
		return nil
	}
	ev := Event{Type: EventWallets, Wallets: make([]Wallet, 0, len(wallets))}
	for _, w := range wallets {
		ev.Wallets = append(ev.Wallets, Wallet{
			RawAddress: w.RawAddress,
			WalletType: w.WalletType,
			Balance:    w.Balance.String(),
			LastUpdate: w.LastUpdate.Unix(),
		})
	}
	s.publish(ctx, ev)
	return nil
}

func (s *NotifyingStore) SaveJettons(ctx context.Context, jettons []models.JettonRecord) error {
	if err := s.Store.SaveJettons(ctx, jettons); err != nil {
		return err
	}
	if len(jettons) == 0 {
		return nil
	}
	ev := Event{Type: EventJettons, Jettons: make([]Jetton, 0, len(jettons))}
	for _, j := range jettons {
		ev.Jettons = append(ev.Jettons, Jetton(j))
	}
	s.publish(ctx, ev)
	return nil
}

func (s *NotifyingStore) publish(ctx context.Context, ev Event) {
	payload, err := msgpack.Marshal(ev)
	if err != nil {
		s.logger.WithError(err).WithField("type", ev.Type).Error("failed to encode event")
		return
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"type":    ev.Type,
			"channel": s.channel,
		}).Warn("failed to publish event")
	}
}
