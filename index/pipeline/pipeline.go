// Package pipeline runs the indexing cycle: poll blocks, extract addresses,
// fetch wallets and jetton wallets, persist, and tune the request rates.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xssnick/tonutils-go/ton"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kdimentionaltree/ton-wallet-indexer/index"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/blockchain"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/condition"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/metrics"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/models"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/parse"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/proxy"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/request"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/tracing"
)

// ErrCriticalBackpressure stops the run when too many requests got no
// response. The caller is expected to restart after a cooldown.
var ErrCriticalBackpressure = errors.New("critical backpressure: too many missing responses")

type Blocks interface {
	Next(ctx context.Context) ([]*ton.BlockIDExt, error)
	Transactions(ctx context.Context, block *ton.BlockIDExt) ([]blockchain.Transaction, error)
}

type Store interface {
	SaveWallets(ctx context.Context, wallets []models.WalletRecord) error
	SaveJettons(ctx context.Context, jettons []models.JettonRecord) error
	SaveJettonWallets(ctx context.Context, wallets []models.JettonWalletRecord) error
	GetJettonAddresses(ctx context.Context) ([]string, error)
}

type Options struct {
	Blocks     Blocks
	Store      Store
	Client     *request.Client
	Controller *condition.Controller
	Proxies    *proxy.Pool
	Settings   index.RequestSettings
	Seen       *blockchain.SeenBlocks
	Logger     *logrus.Entry
}

type Indexer struct {
	blocks     Blocks
	store      Store
	client     *request.Client
	controller *condition.Controller
	proxies    []proxy.Proxy
	wallet     request.Endpoint
	jetton     request.Endpoint
	converter  parse.Converter
	seen       *blockchain.SeenBlocks
	jettons    *JettonSet
	logger     *logrus.Entry
	tracer     trace.Tracer

	mu     sync.RWMutex
	state  State
	cycles int64
	last   *index.CycleReport
}

func New(opts Options) *Indexer {
	return &Indexer{
		blocks:     opts.Blocks,
		store:      opts.Store,
		client:     opts.Client,
		controller: opts.Controller,
		proxies:    opts.Proxies.Proxies(),
		wallet:     request.WalletEndpoint(opts.Settings.WalletUrl),
		jetton:     request.JettonWalletsEndpoint(opts.Settings.JettonWalletsUrl),
		converter:  parse.Converter{Testnet: opts.Settings.IsTestnet},
		seen:       opts.Seen,
		jettons:    NewJettonSet(),
		logger:     opts.Logger,
		tracer:     tracing.Tracer("github.com/kdimentionaltree/ton-wallet-indexer/index/pipeline"),
		state:      Polling,
	}
}

func (ix *Indexer) setState(s State) {
	ix.mu.Lock()
	prev := ix.state
	ix.state = s
	ix.mu.Unlock()
	if prev != s {
		ix.logger.WithFields(logrus.Fields{"from": prev.String(), "to": s.String()}).Debug("state transition")
	}
}

func (ix *Indexer) State() State {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.state
}

// LoadJettons seeds the discovered jetton set from the store.
func (ix *Indexer) LoadJettons(ctx context.Context) error {
	known, err := ix.store.GetJettonAddresses(ctx)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	ix.jettons = NewJettonSet(known...)
	ix.mu.Unlock()
	ix.logger.WithField("jettons", len(known)).Info("loaded known jettons")
	return nil
}

// Run loops over cycles until ctx is done or the controller reports a
// critical state, in which case ErrCriticalBackpressure is returned.
func (ix *Indexer) Run(ctx context.Context) error {
	for {
		ix.setState(Polling)
		blocks, err := ix.blocks.Next(ctx)
		if err != nil {
			return err
		}
		if len(blocks) == 0 {
			continue
		}
		report, err := ix.Cycle(ctx, blocks)
		if err != nil {
			return err
		}
		if report != nil && report.Critical {
			ix.setState(Halted)
			return ErrCriticalBackpressure
		}
	}
}

// Cycle processes one batch of new blocks. It returns a nil report when the
// blocks hold no internal messages.
func (ix *Indexer) Cycle(ctx context.Context, blocks []*ton.BlockIDExt) (*index.CycleReport, error) {
	start := time.Now()
	report := &index.CycleReport{Id: uuid.NewString(), StartedAt: start.UTC(), Blocks: len(blocks)}
	ctx, span := ix.tracer.Start(ctx, "cycle", trace.WithAttributes(
		attribute.String("cycle.id", report.Id),
		attribute.Int("cycle.blocks", len(blocks)),
	))
	defer span.End()
	log := ix.logger.WithField("cycle", report.Id)
	metrics.BlocksSeen.Add(float64(len(blocks)))

	ix.setState(ExtractingAddresses)
	addresses, err := ix.extract(ctx, blocks)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(addresses) == 0 {
		metrics.Cycles.WithLabelValues("empty").Inc()
		return nil, nil
	}
	report.Addresses = len(addresses)
	span.SetAttributes(attribute.Int("cycle.addresses", len(addresses)))
	metrics.AddressesSubmitted.Add(float64(len(addresses)))
	log.Infof("[+] %d addresses", len(addresses))

	ix.setState(FetchingWallets)
	wallets := request.FanOut(ctx, ix.client, ix.proxies, addresses, ix.wallet, ix.converter.Wallet)
	report.Wallets = len(wallets)

	ix.setState(FetchingJettons)
	owners := make([]string, 0, len(wallets))
	for _, w := range wallets {
		owners = append(owners, w.RawAddress)
	}
	jettonWallets := request.FanOut(ctx, ix.client, ix.proxies, owners, ix.jetton, ix.converter.JettonWallets)
	report.JettonWallets = len(jettonWallets)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix.setState(Persisting)
	report.NewJettons = ix.persist(ctx, log, wallets, jettonWallets)

	ix.setState(Evaluating)
	rep := ix.controller.Evaluate()
	report.Responses = rep.Responses
	report.TooManyRequests = rep.TooManyRequests
	report.Submitted = rep.Submitted
	report.Missing = rep.Missing
	report.DelayRaised = rep.DelayRaised
	report.TimeoutRaised = rep.TimeoutRaised
	report.Critical = rep.Critical
	elapsed := time.Since(start)
	report.Duration = index.Seconds(elapsed)

	ix.mu.Lock()
	ix.cycles++
	ix.last = report
	ix.mu.Unlock()

	result := "ok"
	if rep.Critical {
		result = "critical"
		span.SetStatus(codes.Error, ErrCriticalBackpressure.Error())
	}
	metrics.Cycles.WithLabelValues(result).Inc()
	metrics.CycleLatency.Observe(elapsed.Seconds())
	log.WithFields(logrus.Fields{
		"wallets":        report.Wallets,
		"jetton_wallets": report.JettonWallets,
		"new_jettons":    report.NewJettons,
		"submitted":      report.Submitted,
		"missing":        report.Missing,
		"elapsed":        elapsed.Round(time.Millisecond),
	}).Info("cycle finished")
	return report, nil
}

func (ix *Indexer) extract(ctx context.Context, blocks []*ton.BlockIDExt) ([]string, error) {
	perBlock := make([][]string, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	for i, blk := range blocks {
		g.Go(func() error {
			txs, err := ix.blocks.Transactions(gctx, blk)
			if err != nil {
				return err
			}
			perBlock[i] = blockchain.ExtractAddresses(txs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	unique := mapset.NewThreadUnsafeSet[string]()
	var res []string
	for _, list := range perBlock {
		for _, addr := range list {
			if unique.Add(addr) {
				res = append(res, addr)
			}
		}
	}
	return res, nil
}

// persist writes wallets, then new jettons, then jetton wallets. Failed
// batches are logged and skipped. Returns the number of new jettons stored.
func (ix *Indexer) persist(ctx context.Context, log *logrus.Entry, wallets []models.WalletRecord, jettonWallets []models.JettonWalletRecord) int {
	if err := ix.store.SaveWallets(ctx, wallets); err != nil {
		metrics.StoreErrors.WithLabelValues("wallets").Inc()
		log.WithError(err).Error("failed to save wallets")
	} else {
		metrics.RecordsPersisted.WithLabelValues("wallets").Add(float64(len(wallets)))
	}

	var jettons []models.JettonRecord
	for _, raw := range ix.jettons.Unknown(jettonWallets) {
		j, err := ix.converter.Jetton(raw)
		if err != nil {
			log.WithError(err).WithField("jetton", raw).Warn("skipping jetton")
			continue
		}
		jettons = append(jettons, j)
	}
	saved := 0
	if len(jettons) > 0 {
		if err := ix.store.SaveJettons(ctx, jettons); err != nil {
			metrics.StoreErrors.WithLabelValues("jettons").Inc()
			log.WithError(err).Error("failed to save jettons")
		} else {
			ix.jettons.Add(jettons)
			saved = len(jettons)
			metrics.RecordsPersisted.WithLabelValues("jettons").Add(float64(saved))
			log.WithField("jettons", saved).Info("discovered new jettons")
		}
	}

	if err := ix.store.SaveJettonWallets(ctx, jettonWallets); err != nil {
		metrics.StoreErrors.WithLabelValues("jetton_wallets").Inc()
		log.WithError(err).Error("failed to save jetton wallets")
	} else {
		metrics.RecordsPersisted.WithLabelValues("jetton_wallets").Add(float64(len(jettonWallets)))
	}
	return saved
}

// Status is safe to call while Run is active.
func (ix *Indexer) Status() index.StatusResponse {
	rates := ix.client.Rates().Load()
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	res := index.StatusResponse{
		State:        ix.state.String(),
		Cycles:       ix.cycles,
		KnownJettons: ix.jettons.Len(),
		Proxies:      len(ix.proxies),
		RequestDelay: index.Seconds(rates.RequestDelay),
		Timeout:      index.Seconds(rates.Timeout),
		LastCycle:    ix.last,
	}
	if ix.seen != nil {
		res.SeenBlocks = ix.seen.Len()
	}
	return res
}
