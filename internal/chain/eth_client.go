package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"degenmint/internal/contracts"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthClient reads game state and submits purchases over JSON-RPC. Without a
// private key it is read-only; Submit then fails with ErrRemoteUnavailable.
type EthClient struct {
	client    *ethclient.Client
	game      *bind.BoundContract
	token     *bind.BoundContract
	chainID   *big.Int
	transacts *bind.TransactOpts
	from      common.Address
}

type EthClientConfig struct {
	RPCURL         string
	PrivateKeyHex  string
	ContractGame   string
	ContractBurnie string
}

func NewEthClient(ctx context.Context, cfg EthClientConfig) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.ContractGame == "" {
		return nil, fmt.Errorf("game contract address is required")
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	gameABI, err := abi.JSON(strings.NewReader(contracts.DegenerusGameABI))
	if err != nil {
		return nil, fmt.Errorf("parse game abi: %w", err)
	}
	tokenABI, err := abi.JSON(strings.NewReader(contracts.BurnieTokenABI))
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}

	ec := &EthClient{
		client: cli,
		game:   bind.NewBoundContract(common.HexToAddress(cfg.ContractGame), gameABI, cli, cli, cli),
	}
	if cfg.ContractBurnie != "" {
		ec.token = bind.NewBoundContract(common.HexToAddress(cfg.ContractBurnie), tokenABI, cli, cli, cli)
	}

	if cfg.PrivateKeyHex == "" {
		return ec, nil
	}

	pk, err := parsePrivateKey(cfg.PrivateKeyHex)
	if err != nil {
		return nil, err
	}
	chainID, err := cli.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	txOpts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	txOpts.GasLimit = 0 // let node estimate
	txOpts.GasPrice = nil
	txOpts.Nonce = nil

	ec.chainID = chainID
	ec.transacts = txOpts
	ec.from = crypto.PubkeyToAddress(pk.PublicKey)
	return ec, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func (c *EthClient) GlobalState(ctx context.Context) (GlobalSnapshot, error) {
	var out []interface{}
	if err := c.game.Call(&bind.CallOpts{Context: ctx}, &out, "gameStatus"); err != nil {
		return GlobalSnapshot{}, &QueryError{Op: "gameStatus", Err: err}
	}
	if len(out) != 5 {
		return GlobalSnapshot{}, &QueryError{Op: "gameStatus", Err: fmt.Errorf("unexpected arity %d", len(out))}
	}

	status := GameStatus{
		Level:           out[0].(*big.Int).Uint64(),
		InJackpotPhase:  out[1].(bool),
		LastPurchaseDay: out[2].(*big.Int).Uint64(),
		RngLocked:       out[3].(bool),
		PriceWei:        out[4].(*big.Int),
	}

	var presaleOut []interface{}
	if err := c.game.Call(&bind.CallOpts{Context: ctx}, &presaleOut, "presaleActive"); err != nil {
		return GlobalSnapshot{}, &QueryError{Op: "presaleActive", Err: err}
	}

	return GlobalSnapshot{Status: status, PresaleActive: presaleOut[0].(bool)}, nil
}

func (c *EthClient) PlayerState(ctx context.Context, addr common.Address) (PlayerSnapshot, error) {
	snap := PlayerSnapshot{Address: addr}
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := c.game.Call(opts, &out, "hasLazyPass", addr); err != nil {
		return snap, &QueryError{Op: "hasLazyPass", Err: err}
	}
	snap.HasLazyPass = out[0].(bool)

	out = nil
	if err := c.game.Call(opts, &out, "activityScore", addr); err != nil {
		return snap, &QueryError{Op: "activityScore", Err: err}
	}
	snap.ActivityBps = out[0].(*big.Int).Uint64()

	out = nil
	if err := c.game.Call(opts, &out, "ethMintStats", addr); err != nil {
		return snap, &QueryError{Op: "ethMintStats", Err: err}
	}
	snap.MintStats = MintStats{
		LastMintLevel: out[0].(*big.Int).Uint64(),
		LevelCount:    out[1].(*big.Int).Uint64(),
		Streak:        out[2].(*big.Int).Uint64(),
	}

	out = nil
	if err := c.game.Call(opts, &out, "referrerOf", addr); err != nil {
		return snap, &QueryError{Op: "referrerOf", Err: err}
	}
	snap.Referrer = out[0].(common.Address)

	quests, err := c.questView(ctx, addr)
	if err != nil {
		return snap, err
	}
	snap.Quests = quests

	snap.BurnieBalance = big.NewInt(0)
	if c.token != nil {
		out = nil
		if err := c.token.Call(opts, &out, "balanceOf", addr); err != nil {
			return snap, &QueryError{Op: "balanceOf", Err: err}
		}
		snap.BurnieBalance = out[0].(*big.Int)
	}

	return snap, nil
}

func (c *EthClient) questView(ctx context.Context, addr common.Address) (QuestView, error) {
	var out []interface{}
	if err := c.game.Call(&bind.CallOpts{Context: ctx}, &out, "questView", addr); err != nil {
		return QuestView{}, &QueryError{Op: "questView", Err: err}
	}
	if len(out) != 7 {
		return QuestView{}, &QueryError{Op: "questView", Err: fmt.Errorf("unexpected arity %d", len(out))}
	}

	questTypes := out[0].([2]uint8)
	high := out[1].([2]bool)
	required := out[2].([2]uint32)
	progress := out[3].([2]uint32)
	completed := out[4].([2]bool)

	view := QuestView{
		BaseStreak:       out[5].(uint32),
		LastCompletedDay: out[6].(uint32),
	}
	for i := 0; i < 2; i++ {
		view.Slots[i] = Quest{
			Type:           questTypes[i],
			HighDifficulty: high[i],
			RequiredMints:  required[i],
			Progress:       progress[i],
			Completed:      completed[i],
		}
	}
	return view, nil
}

func (c *EthClient) SymbolOwned(ctx context.Context, symbolID uint8) (bool, error) {
	var out []interface{}
	err := c.game.Call(&bind.CallOpts{Context: ctx}, &out, "deityOwner", symbolID)
	if err != nil {
		// The probe reverts for unclaimed symbols.
		if strings.Contains(strings.ToLower(err.Error()), "execution reverted") {
			return false, nil
		}
		return false, &QueryError{Op: "deityOwner", Err: err}
	}
	owner := out[0].(common.Address)
	return owner != (common.Address{}), nil
}

func (c *EthClient) DeityPassCount(ctx context.Context) (uint64, error) {
	var out []interface{}
	if err := c.game.Call(&bind.CallOpts{Context: ctx}, &out, "deityPassCount"); err != nil {
		return 0, &QueryError{Op: "deityPassCount", Err: err}
	}
	return out[0].(*big.Int).Uint64(), nil
}

func (c *EthClient) From() common.Address {
	return c.from
}

func (c *EthClient) Submit(ctx context.Context, call Call) (string, error) {
	if c.transacts == nil {
		return "", ErrRemoteUnavailable
	}

	opts := *c.transacts
	opts.Context = ctx
	opts.Value = call.Value

	tx, err := c.game.Transact(&opts, call.Method, call.Args...)
	if err != nil {
		return "", fmt.Errorf("%s tx: %w", call.Method, err)
	}
	return tx.Hash().Hex(), nil
}

// WaitMined polls until the transaction is mined or the context is cancelled.
func (c *EthClient) WaitMined(ctx context.Context, txHash string) error {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, hash)
		if receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return &RevertError{Reason: "transaction reverted on-chain"}
			}
			return nil
		}
		if err != nil && err.Error() != "not found" {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *EthClient) Ping(ctx context.Context) error {
	if c.client == nil {
		return ErrRemoteUnavailable
	}
	_, err := c.client.BlockNumber(ctx)
	return err
}
