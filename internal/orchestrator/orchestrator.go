// Package orchestrator drives each purchase through its lifecycle:
// Idle → AwaitingSignature → Pending → Confirmed|Failed → Idle. One
// submission per purchase kind may be in flight at a time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"degenmint/internal/cache"
	"degenmint/internal/chain"
	"degenmint/internal/pricing"
	"degenmint/internal/state"
	"degenmint/internal/symbols"
)

// Kind identifies a purchase product.
type Kind string

const (
	KindTickets      Kind = "tickets"
	KindTokenTickets Kind = "tokenTickets"
	KindTokenLootbox Kind = "tokenLootbox"
	KindWhaleBundle  Kind = "whaleBundle"
	KindLazyPass     Kind = "lazyPass"
	KindDeityPass    Kind = "deityPass"
)

// Status is the lifecycle state of a purchase kind.
type Status string

const (
	StatusIdle              Status = "idle"
	StatusAwaitingSignature Status = "awaitingSignature"
	StatusPending           Status = "pending"
	StatusConfirmed         Status = "confirmed"
	StatusFailed            Status = "failed"
)

func (s Status) inFlight() bool {
	return s == StatusAwaitingSignature || s == StatusPending
}

// Transaction is a snapshot of one purchase attempt.
type Transaction struct {
	Kind          Kind
	Status        Status
	ComputedValue *big.Int
	TxHash        string
	ErrorReason   string
	UpdatedAt     time.Time
}

var (
	// ErrBusy means a submission of the same kind is already in flight.
	ErrBusy = errors.New("purchase already in flight")
	// ErrStateNotReady means no live game state has been read yet, so no
	// price can be computed safely.
	ErrStateNotReady = errors.New("game state not synced yet, try again")
)

// ValidationError rejects malformed local input before any network call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Refresher is the slice of the sync service the orchestrator needs after a
// confirmation.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Orchestrator struct {
	sync     *state.Service
	reader   chain.Reader
	sub      chain.Submitter
	store    cache.Store
	refresh  Refresher
	observer func(Kind, Status)

	mu    sync.Mutex
	byKnd map[Kind]*Transaction
}

func New(syncSvc *state.Service, reader chain.Reader, sub chain.Submitter, store cache.Store) *Orchestrator {
	return &Orchestrator{
		sync:    syncSvc,
		reader:  reader,
		sub:     sub,
		store:   store,
		refresh: syncSvc,
		byKnd:   make(map[Kind]*Transaction),
	}
}

// SetObserver installs a transition callback (metrics). Call before use.
func (o *Orchestrator) SetObserver(fn func(Kind, Status)) {
	o.observer = fn
}

// Status returns the current transaction snapshot for a kind.
func (o *Orchestrator) Status(kind Kind) Transaction {
	o.mu.Lock()
	defer o.mu.Unlock()
	if tx, ok := o.byKnd[kind]; ok {
		return *tx
	}
	return Transaction{Kind: kind, Status: StatusIdle}
}

// Acknowledge resets a terminal transaction back to Idle.
func (o *Orchestrator) Acknowledge(kind Kind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if tx, ok := o.byKnd[kind]; ok && !tx.Status.inFlight() {
		delete(o.byKnd, kind)
	}
}

// TicketOrder buys tickets with ETH, optionally adding a paid lootbox and a
// referral code.
type TicketOrder struct {
	Quantity      uint64
	LootboxAmount string // decimal ETH, "" for none
	ReferralCode  string
	PaymentKind   uint8
}

// TokenTicketOrder buys tickets with BURNIE, optionally adding a token
// lootbox amount.
type TokenTicketOrder struct {
	Quantity           uint64
	LootboxTokenAmount string
}

type TokenLootboxOrder struct {
	TokenAmount string
}

type WhaleOrder struct {
	Quantity uint64
}

type DeityOrder struct {
	SymbolID uint8
}

// liveGame returns the current game state if it came from a live refresh.
// Cache-seeded state never prices a transaction.
func (o *Orchestrator) liveGame() (state.GameState, error) {
	game := o.sync.Game()
	if game.Source != state.SourceRemote {
		return state.GameState{}, ErrStateNotReady
	}
	return game, nil
}

func (o *Orchestrator) PurchaseTickets(ctx context.Context, ord TicketOrder) (Transaction, error) {
	var lootboxWei *big.Int
	if ord.LootboxAmount != "" {
		parsed, err := pricing.ParseAmount(ord.LootboxAmount, pricing.TokenDecimals)
		if err != nil {
			return Transaction{}, &ValidationError{Msg: fmt.Sprintf("lootbox amount: %v", err)}
		}
		lootboxWei = parsed
	} else {
		lootboxWei = big.NewInt(0)
	}
	if ord.Quantity == 0 && lootboxWei.Sign() == 0 {
		return Transaction{}, &ValidationError{Msg: "nothing to buy: zero tickets and no lootbox"}
	}

	game, err := o.liveGame()
	if err != nil {
		return Transaction{}, err
	}

	cost := pricing.TicketCost(game.PriceWei, ord.Quantity)
	value := new(big.Int).Add(cost, lootboxWei)

	code := o.referralCode(ctx, ord.ReferralCode)

	return o.submit(ctx, KindTickets, chain.Call{
		Method: "purchaseTickets",
		Args: []any{
			o.sub.From(),
			pricing.ScaledTicketQuantity(ord.Quantity),
			lootboxWei,
			toBytes32(code),
			ord.PaymentKind,
		},
		Value: value,
	})
}

func (o *Orchestrator) PurchaseTokenTickets(ctx context.Context, ord TokenTicketOrder) (Transaction, error) {
	lootbox := big.NewInt(0)
	if ord.LootboxTokenAmount != "" {
		parsed, err := pricing.ParseAmount(ord.LootboxTokenAmount, pricing.TokenDecimals)
		if err != nil {
			return Transaction{}, &ValidationError{Msg: fmt.Sprintf("lootbox token amount: %v", err)}
		}
		lootbox = parsed
	}
	if ord.Quantity == 0 && lootbox.Sign() == 0 {
		return Transaction{}, &ValidationError{Msg: "nothing to buy: zero tickets and no lootbox"}
	}

	if _, err := o.liveGame(); err != nil {
		return Transaction{}, err
	}

	return o.submit(ctx, KindTokenTickets, chain.Call{
		Method: "purchaseTicketsWithToken",
		Args: []any{
			o.sub.From(),
			pricing.ScaledTicketQuantity(ord.Quantity),
			lootbox,
		},
	})
}

func (o *Orchestrator) PurchaseTokenLootbox(ctx context.Context, ord TokenLootboxOrder) (Transaction, error) {
	amount, err := pricing.ParseAmount(ord.TokenAmount, pricing.TokenDecimals)
	if err != nil {
		return Transaction{}, &ValidationError{Msg: fmt.Sprintf("token amount: %v", err)}
	}
	if amount.Sign() == 0 {
		return Transaction{}, &ValidationError{Msg: "token amount must be positive"}
	}

	if _, err := o.liveGame(); err != nil {
		return Transaction{}, err
	}

	return o.submit(ctx, KindTokenLootbox, chain.Call{
		Method: "purchaseLootboxWithToken",
		Args:   []any{o.sub.From(), amount},
	})
}

func (o *Orchestrator) PurchaseWhaleBundle(ctx context.Context, ord WhaleOrder) (Transaction, error) {
	if ord.Quantity == 0 {
		return Transaction{}, &ValidationError{Msg: "bundle quantity must be at least 1"}
	}

	game, err := o.liveGame()
	if err != nil {
		return Transaction{}, err
	}

	value := pricing.WhaleBundleCost(game.Level, ord.Quantity)
	return o.submit(ctx, KindWhaleBundle, chain.Call{
		Method: "purchaseWhaleBundle",
		Args:   []any{o.sub.From(), new(big.Int).SetUint64(ord.Quantity)},
		Value:  value,
	})
}

func (o *Orchestrator) PurchaseLazyPass(ctx context.Context) (Transaction, error) {
	game, err := o.liveGame()
	if err != nil {
		return Transaction{}, err
	}

	// Client-side estimate; the contract may reject it if the level moved.
	value := pricing.LazyPassCost(game.Level, game.PriceWei)
	return o.submit(ctx, KindLazyPass, chain.Call{
		Method: "purchaseLazyPass",
		Args:   []any{o.sub.From()},
		Value:  value,
	})
}

func (o *Orchestrator) PurchaseDeityPass(ctx context.Context, ord DeityOrder) (Transaction, error) {
	if ord.SymbolID >= symbols.SymbolCount {
		return Transaction{}, &ValidationError{Msg: "symbol id out of range"}
	}

	if _, err := o.liveGame(); err != nil {
		return Transaction{}, err
	}

	// The issuance count moves with every other player's purchase, so it is
	// re-read right before submitting.
	issued, err := o.reader.DeityPassCount(ctx)
	if err != nil {
		return Transaction{}, fmt.Errorf("deity pass count: %w", err)
	}

	value := pricing.DeityPassCost(issued)
	return o.submit(ctx, KindDeityPass, chain.Call{
		Method: "purchaseDeityPass",
		Args:   []any{o.sub.From(), ord.SymbolID},
		Value:  value,
	})
}

// referralCode resolves the code to send: an existing on-chain upline
// suppresses any provided code; a provided code is remembered for next time.
func (o *Orchestrator) referralCode(ctx context.Context, provided string) string {
	if player, ok := o.sync.Player(); ok && player.Referrer != nil {
		return ""
	}
	if provided != "" {
		if o.store != nil {
			o.store.SaveReferralCode(ctx, provided)
		}
		return provided
	}
	if o.store != nil {
		return o.store.ReferralCode(ctx)
	}
	return ""
}

// submit runs the shared pipeline: reserve the kind, sign+broadcast, then
// track mining in the background.
func (o *Orchestrator) submit(ctx context.Context, kind Kind, call chain.Call) (Transaction, error) {
	_, err := o.begin(kind, call.Value)
	if err != nil {
		return Transaction{}, err
	}

	hash, err := o.sub.Submit(ctx, call)
	if err != nil {
		classified := chain.ClassifySubmitError(err)
		o.fail(kind, classified)
		return o.Status(kind), classified
	}

	o.transition(kind, func(t *Transaction) {
		t.Status = StatusPending
		t.TxHash = hash
	})

	go o.track(kind, hash)
	return o.Status(kind), nil
}

func (o *Orchestrator) begin(kind Kind, value *big.Int) (*Transaction, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.byKnd[kind]; ok && existing.Status.inFlight() {
		return nil, ErrBusy
	}

	tx := &Transaction{
		Kind:          kind,
		Status:        StatusAwaitingSignature,
		ComputedValue: value,
		UpdatedAt:     time.Now(),
	}
	o.byKnd[kind] = tx
	o.notify(kind, StatusAwaitingSignature)
	return tx, nil
}

func (o *Orchestrator) transition(kind Kind, mutate func(*Transaction)) {
	o.mu.Lock()
	tx, ok := o.byKnd[kind]
	if ok {
		mutate(tx)
		tx.UpdatedAt = time.Now()
	}
	status := StatusIdle
	if ok {
		status = tx.Status
	}
	o.mu.Unlock()
	if ok {
		o.notify(kind, status)
	}
}

func (o *Orchestrator) fail(kind Kind, cause error) {
	o.transition(kind, func(t *Transaction) {
		t.Status = StatusFailed
		t.ErrorReason = failureMessage(cause)
	})
}

// failureMessage maps the error taxonomy onto what the user sees.
func failureMessage(err error) string {
	var revert *chain.RevertError
	switch {
	case errors.Is(err, chain.ErrUserDeclined):
		return "signature declined"
	case errors.Is(err, chain.ErrRemoteUnavailable):
		return "no wallet connection available"
	case errors.As(err, &revert):
		// Remote rejections surface verbatim.
		return revert.Reason
	default:
		return "network error, try again"
	}
}

func (o *Orchestrator) track(kind Kind, hash string) {
	// A broadcast transaction cannot be cancelled client-side, so tracking
	// is not tied to the request context.
	ctx := context.Background()

	if err := o.sub.WaitMined(ctx, hash); err != nil {
		classified := chain.ClassifySubmitError(err)
		log.Printf("orchestrator: %s %s failed: %v", kind, hash, classified)
		o.fail(kind, classified)
		return
	}

	o.transition(kind, func(t *Transaction) {
		t.Status = StatusConfirmed
	})

	if o.refresh != nil {
		if err := o.refresh.Refresh(ctx); err != nil {
			log.Printf("orchestrator: post-confirm refresh: %v", err)
		}
	}
}

func (o *Orchestrator) notify(kind Kind, status Status) {
	if o.observer != nil {
		o.observer(kind, status)
	}
}

func toBytes32(value string) [32]byte {
	var out [32]byte
	copy(out[:], []byte(value))
	return out
}
