package state

import (
	"context"
	"log"
	"math/big"
	"sync"
	"time"

	"degenmint/internal/cache"
	"degenmint/internal/chain"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultInterval is the fixed polling cadence.
const DefaultInterval = 15000 * time.Millisecond

// Service polls the contract, keeps the in-memory GameState/PlayerState
// current, and mirrors the global fields into the cache. A failed refresh
// keeps the previous state; the next tick tries again.
type Service struct {
	reader   chain.Reader
	store    cache.Store
	interval time.Duration

	mu     sync.RWMutex
	game   GameState
	player PlayerState
	bound  bool

	kick chan struct{}
}

func NewService(reader chain.Reader, store cache.Store, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		reader:   reader,
		store:    store,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

// RestoreFromCache seeds a display-only state before the first refresh
// completes. Stale snapshots are ignored.
func (s *Service) RestoreFromCache(ctx context.Context) {
	snap := s.store.Load(ctx)
	if !cache.Fresh(snap, cache.DefaultTTL) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game.Source == SourceRemote {
		return
	}

	s.game.Source = SourceCache
	s.game.LastRefreshed = snap.UpdatedAt
	if snap.Level != nil {
		s.game.Level = *snap.Level
	}
	if snap.PriceWei != nil {
		s.game.PriceWei = new(big.Int).Set(snap.PriceWei)
	}
	if snap.Phase != nil {
		s.game.Phase = phaseFromString(*snap.Phase)
	}
	if snap.PresaleActive != nil {
		s.game.PresaleActive = *snap.PresaleActive
	}
	log.Printf("state: restored cached snapshot from %s", snap.UpdatedAt.Format(time.RFC3339))
}

func phaseFromString(s string) Phase {
	switch s {
	case "jackpot":
		return PhaseJackpot
	case "rngLocked":
		return PhaseRngLocked
	default:
		return PhaseNormal
	}
}

// Run refreshes immediately, then on every tick and on every RefreshNow
// signal, until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		log.Printf("state: initial refresh: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.kick:
		}
		if err := s.Refresh(ctx); err != nil {
			log.Printf("state: refresh: %v", err)
		}
	}
}

// RefreshNow schedules an out-of-band refresh without blocking.
func (s *Service) RefreshNow() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// BindAddress attaches the connected account and schedules a refresh so the
// player fields fill in promptly.
func (s *Service) BindAddress(addr common.Address) {
	s.mu.Lock()
	s.player = PlayerState{Address: addr}
	s.bound = true
	s.mu.Unlock()
	s.RefreshNow()
}

// Refresh performs one synchronous refresh cycle.
func (s *Service) Refresh(ctx context.Context) error {
	global, err := s.reader.GlobalState(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	game := GameState{
		Level:           global.Status.Level,
		PriceWei:        new(big.Int).Set(global.Status.PriceWei),
		Phase:           ResolvePhase(global.Status.InJackpotPhase, global.Status.RngLocked),
		PresaleActive:   global.PresaleActive,
		LastPurchaseDay: global.Status.LastPurchaseDay,
		LastRefreshed:   now,
		Source:          SourceRemote,
	}

	s.mu.Lock()
	s.game = game
	addr := s.player.Address
	bound := s.bound
	s.mu.Unlock()

	phase := game.Phase.String()
	s.store.Merge(ctx, cache.Snapshot{
		Level:         &game.Level,
		PriceWei:      game.PriceWei,
		Phase:         &phase,
		PresaleActive: &game.PresaleActive,
	})

	if !bound {
		return nil
	}

	snap, err := s.reader.PlayerState(ctx, addr)
	if err != nil {
		// Keep the previous player view; the global update above stands.
		log.Printf("state: player refresh for %s: %v", addr.Hex(), err)
		return nil
	}

	player := PlayerState{
		Address:           snap.Address,
		HasActiveLazyPass: snap.HasLazyPass,
		ActivityScoreBps:  snap.ActivityBps,
		MintStats:         snap.MintStats,
		BurnieBalance:     snap.BurnieBalance,
		Quests:            snap.Quests,
		LastRefreshed:     now,
	}
	if snap.Referrer != (common.Address{}) {
		ref := snap.Referrer
		player.Referrer = &ref
	}

	s.mu.Lock()
	s.player = player
	s.mu.Unlock()
	return nil
}

// Game returns the current global view. Check Source before pricing with it.
func (s *Service) Game() GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game
}

// Player returns the per-address view and whether an address is bound.
func (s *Service) Player() (PlayerState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player, s.bound
}
