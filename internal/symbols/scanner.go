// Package symbols determines which deity symbols are already claimed so the
// picker can disable them. Availability is optimistic: the contract is the
// authority at purchase time.
package symbols

import (
	"context"
	"log"
	"sync"

	"degenmint/internal/cache"
	"degenmint/internal/chain"
)

// SymbolCount is the size of the fixed symbol id space.
const SymbolCount = 32

// TakenSet marks claimed symbol ids.
type TakenSet map[uint8]bool

// IDs returns the claimed ids in ascending order.
func (t TakenSet) IDs() []uint8 {
	ids := make([]uint8, 0, len(t))
	for id := uint8(0); id < SymbolCount; id++ {
		if t[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

type Scanner struct {
	reader chain.Reader
	store  cache.Store
}

func NewScanner(reader chain.Reader, store cache.Store) *Scanner {
	return &Scanner{reader: reader, store: store}
}

// Scan probes all symbol ids concurrently and joins the results before
// publishing, so callers never see a half-finished picker. A failed probe
// counts as available.
func (s *Scanner) Scan(ctx context.Context) TakenSet {
	var (
		wg    sync.WaitGroup
		owned [SymbolCount]bool
	)

	for id := uint8(0); id < SymbolCount; id++ {
		wg.Add(1)
		go func(id uint8) {
			defer wg.Done()
			taken, err := s.reader.SymbolOwned(ctx, id)
			if err != nil {
				log.Printf("symbols: probe %d: %v", id, err)
				return
			}
			owned[id] = taken
		}(id)
	}
	wg.Wait()

	taken := make(TakenSet)
	for id := uint8(0); id < SymbolCount; id++ {
		if owned[id] {
			taken[id] = true
		}
	}

	if s.store != nil {
		s.store.Merge(ctx, cache.Snapshot{TakenSymbols: taken.IDs()})
	}
	return taken
}

// Reassign keeps the current selection if still available, otherwise moves
// it to the lowest-numbered untaken id. ok is false when everything is
// claimed.
func Reassign(current uint8, taken TakenSet) (id uint8, ok bool) {
	if current < SymbolCount && !taken[current] {
		return current, true
	}
	for id := uint8(0); id < SymbolCount; id++ {
		if !taken[id] {
			return id, true
		}
	}
	return 0, false
}
