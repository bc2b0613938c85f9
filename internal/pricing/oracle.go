// Package pricing computes the payment amounts for every purchase product.
// Everything is big.Int arithmetic in base units (wei for ETH, smallest unit
// for BURNIE); no float ever feeds a transaction value.
package pricing

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

const (
	// TicketScale converts a user-facing ticket quantity into the scaled
	// units the contract expects.
	TicketScale = 400

	// Bonus-lootbox rate in basis points.
	BaseBonusBps    = 1000
	PresaleBonusBps = 2000
	BpsDenominator  = 10000

	// Fixed BURNIE price per ticket, in token base units.
	TokenUnitsPerTicket = 1000
)

var (
	weiPerEther = big.NewInt(params.Ether)

	// 2.4 and 4 ETH whale bundle unit prices.
	whaleEarlyUnit = new(big.Int).Mul(big.NewInt(24), big.NewInt(params.Ether/10))
	whaleLateUnit  = new(big.Int).Mul(big.NewInt(4), weiPerEther)

	// 0.24 ETH early lazy pass price.
	lazyEarlyPrice = new(big.Int).Mul(big.NewInt(24), big.NewInt(params.Ether/100))

	deityBase = new(big.Int).Mul(big.NewInt(24), weiPerEther)
)

// ScaledTicketQuantity returns quantity × 400 for the contract call.
func ScaledTicketQuantity(quantity uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(quantity), big.NewInt(TicketScale))
}

// TicketCost is priceWei × quantity.
func TicketCost(priceWei *big.Int, quantity uint64) *big.Int {
	return new(big.Int).Mul(priceWei, new(big.Int).SetUint64(quantity))
}

// LootboxBonus is the free lootbox value accompanying a priced purchase:
// 20% of the price during presale, 10% otherwise.
func LootboxBonus(price *big.Int, presaleActive bool) *big.Int {
	bps := int64(BaseBonusBps)
	if presaleActive {
		bps = PresaleBonusBps
	}
	bonus := new(big.Int).Mul(price, big.NewInt(bps))
	return bonus.Div(bonus, big.NewInt(BpsDenominator))
}

// TokenTicketCost prices tickets in BURNIE base units.
func TokenTicketCost(quantity uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(quantity), big.NewInt(TokenUnitsPerTicket))
}

// WhaleBundleCost is 2.4 ETH per bundle through level 3, 4 ETH after.
func WhaleBundleCost(level, quantity uint64) *big.Int {
	unit := whaleLateUnit
	if level <= 3 {
		unit = whaleEarlyUnit
	}
	return new(big.Int).Mul(unit, new(big.Int).SetUint64(quantity))
}

// LazyPassCost is a flat 0.24 ETH through level 2, then 10 × priceWei.
// This is a client-side estimate; the contract has the final say and may
// reject it if the level advances underneath us.
func LazyPassCost(level uint64, priceWei *big.Int) *big.Int {
	if level <= 2 {
		return new(big.Int).Set(lazyEarlyPrice)
	}
	return new(big.Int).Mul(priceWei, big.NewInt(10))
}

// DeityPassCost is (24 + k(k+1)/2) ETH where k is the number of passes
// already issued. k moves with every other player's purchase, so callers
// must re-read it immediately before submitting.
func DeityPassCost(issued uint64) *big.Int {
	total := new(big.Int).Add(deityBase, new(big.Int).Mul(Triangular(issued), weiPerEther))
	return total
}

// Triangular returns k(k+1)/2.
func Triangular(k uint64) *big.Int {
	n := new(big.Int).SetUint64(k)
	t := new(big.Int).Mul(n, new(big.Int).Add(n, big.NewInt(1)))
	return t.Div(t, big.NewInt(2))
}
