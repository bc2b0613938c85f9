package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// FakeReader serves canned snapshots. Used in tests and when no RPC endpoint
// is configured.
type FakeReader struct {
	mu sync.Mutex

	Global      GlobalSnapshot
	GlobalErr   error
	Players     map[common.Address]PlayerSnapshot
	PlayerErr   error
	Owned       map[uint8]bool
	OwnedErr    map[uint8]error
	DeityIssued uint64

	GlobalCalls int
}

func NewFakeReader() *FakeReader {
	return &FakeReader{
		Global: GlobalSnapshot{
			Status: GameStatus{PriceWei: big.NewInt(0)},
		},
		Players: make(map[common.Address]PlayerSnapshot),
		Owned:   make(map[uint8]bool),
	}
}

func (f *FakeReader) GlobalState(context.Context) (GlobalSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GlobalCalls++
	if f.GlobalErr != nil {
		return GlobalSnapshot{}, f.GlobalErr
	}
	return f.Global, nil
}

// Calls reports how many global reads have happened.
func (f *FakeReader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GlobalCalls
}

func (f *FakeReader) SetGlobal(g GlobalSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Global = g
}

func (f *FakeReader) SetGlobalErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GlobalErr = err
}

func (f *FakeReader) PlayerState(_ context.Context, addr common.Address) (PlayerSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PlayerErr != nil {
		return PlayerSnapshot{}, f.PlayerErr
	}
	snap, ok := f.Players[addr]
	if !ok {
		return PlayerSnapshot{Address: addr, BurnieBalance: big.NewInt(0)}, nil
	}
	return snap, nil
}

func (f *FakeReader) SymbolOwned(_ context.Context, symbolID uint8) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.OwnedErr[symbolID]; err != nil {
		return false, err
	}
	return f.Owned[symbolID], nil
}

func (f *FakeReader) DeityPassCount(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.DeityIssued, nil
}

// FakeSubmitter hashes the call to produce deterministic tx hashes. Scripted
// errors let tests exercise the failure paths.
type FakeSubmitter struct {
	mu sync.Mutex

	Sender     common.Address
	SubmitErr  error
	MinedErr   error
	Submitted  []Call
	WaitCalled int
	// WaitGate, when set, blocks WaitMined until closed.
	WaitGate chan struct{}
}

func (f *FakeSubmitter) From() common.Address {
	return f.Sender
}

func (f *FakeSubmitter) Submit(_ context.Context, call Call) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	f.Submitted = append(f.Submitted, call)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%d/%v", call.Method, len(f.Submitted), call.Value)))
	return "0x" + hex.EncodeToString(sum[:]), nil
}

func (f *FakeSubmitter) WaitMined(ctx context.Context, _ string) error {
	f.mu.Lock()
	f.WaitCalled++
	gate := f.WaitGate
	err := f.MinedErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
