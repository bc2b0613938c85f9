package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// GameStatus mirrors the gameStatus() view tuple. Level and PriceWei always
// come from the same call, never from two separate reads.
type GameStatus struct {
	Level           uint64
	InJackpotPhase  bool
	LastPurchaseDay uint64
	RngLocked       bool
	PriceWei        *big.Int
}

// GlobalSnapshot is one batched read of the game-wide fields.
type GlobalSnapshot struct {
	Status        GameStatus
	PresaleActive bool
}

type MintStats struct {
	LastMintLevel uint64
	LevelCount    uint64
	Streak        uint64
}

type Quest struct {
	Type           uint8
	HighDifficulty bool
	RequiredMints  uint32
	Progress       uint32
	Completed      bool
}

type QuestView struct {
	Slots            [2]Quest
	BaseStreak       uint32
	LastCompletedDay uint32
}

// PlayerSnapshot is one batched read of the per-address fields.
type PlayerSnapshot struct {
	Address       common.Address
	HasLazyPass   bool
	ActivityBps   uint64
	MintStats     MintStats
	BurnieBalance *big.Int
	Referrer      common.Address // zero address when the player has no upline
	Quests        QuestView
}

// Reader issues read-only queries against the game contract.
type Reader interface {
	GlobalState(ctx context.Context) (GlobalSnapshot, error)
	PlayerState(ctx context.Context, addr common.Address) (PlayerSnapshot, error)
	// SymbolOwned probes whether a deity symbol has been claimed. A revert
	// from the probe reads as "not owned"; transport errors are returned.
	SymbolOwned(ctx context.Context, symbolID uint8) (bool, error)
	DeityPassCount(ctx context.Context) (uint64, error)
}

// Call is one state-changing contract invocation. Value is the attached
// payment in wei; nil means no payment.
type Call struct {
	Method string
	Args   []any
	Value  *big.Int
}

// Submitter signs and broadcasts purchase transactions.
type Submitter interface {
	From() common.Address
	Submit(ctx context.Context, call Call) (txHash string, err error)
	// WaitMined blocks until the transaction is mined. A receipt with a
	// failed status is returned as a *RevertError.
	WaitMined(ctx context.Context, txHash string) error
}
