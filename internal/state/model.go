package state

import (
	"math/big"
	"time"

	"degenmint/internal/chain"

	"github.com/ethereum/go-ethereum/common"
)

// Phase is the game's operating mode.
type Phase int

const (
	PhaseNormal Phase = iota
	PhaseJackpot
	PhaseRngLocked
)

func (p Phase) String() string {
	switch p {
	case PhaseJackpot:
		return "jackpot"
	case PhaseRngLocked:
		return "rngLocked"
	default:
		return "normal"
	}
}

// ResolvePhase folds the two contract flags into one mode. RngLocked takes
// priority when both are set.
func ResolvePhase(inJackpot, rngLocked bool) Phase {
	switch {
	case rngLocked:
		return PhaseRngLocked
	case inJackpot:
		return PhaseJackpot
	default:
		return PhaseNormal
	}
}

// Source records where a GameState came from. Cache-seeded state is for
// display only and must never price a transaction.
type Source int

const (
	SourceNone Source = iota
	SourceCache
	SourceRemote
)

// GameState is the process-wide view of the contract's global fields.
// Level and PriceWei always come from the same refresh.
type GameState struct {
	Level           uint64
	PriceWei        *big.Int
	Phase           Phase
	PresaleActive   bool
	LastPurchaseDay uint64
	LastRefreshed   time.Time
	Source          Source
}

// PlayerState is the per-address view, populated once an account is bound.
type PlayerState struct {
	Address           common.Address
	HasActiveLazyPass bool
	ActivityScoreBps  uint64
	MintStats         chain.MintStats
	BurnieBalance     *big.Int
	Referrer          *common.Address // nil when the player has no upline
	Quests            chain.QuestView
	LastRefreshed     time.Time
}
