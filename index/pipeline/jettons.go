package pipeline

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/kdimentionaltree/ton-wallet-indexer/index/models"
)

// JettonSet holds the jetton masters already stored. It lives as long as the
// process and is seeded from the store on start.
type JettonSet struct {
	set mapset.Set[string]
}

func NewJettonSet(known ...string) *JettonSet {
	return &JettonSet{set: mapset.NewSet(known...)}
}

// Unknown returns the distinct jetton masters of wallets missing from the set.
func (s *JettonSet) Unknown(wallets []models.JettonWalletRecord) []string {
	fresh := mapset.NewThreadUnsafeSet[string]()
	var res []string
	for _, w := range wallets {
		if s.set.Contains(w.JettonMaster) || !fresh.Add(w.JettonMaster) {
			continue
		}
		res = append(res, w.JettonMaster)
	}
	return res
}

func (s *JettonSet) Add(jettons []models.JettonRecord) {
	for _, j := range jettons {
		s.set.Add(j.RawAddress)
	}
}

func (s *JettonSet) Contains(raw string) bool {
	return s.set.Contains(raw)
}

func (s *JettonSet) Len() int {
	return s.set.Cardinality()
}
