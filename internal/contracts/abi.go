package contracts

// DegenerusGameABI covers the subset of the game contract the mint module
// touches: the read-only status views and the six purchase entry points.
const DegenerusGameABI = `[
  {"type":"function","name":"gameStatus","stateMutability":"view","inputs":[],"outputs":[
    {"name":"level","type":"uint256"},
    {"name":"inJackpotPhase","type":"bool"},
    {"name":"lastPurchaseDay","type":"uint256"},
    {"name":"rngLocked","type":"bool"},
    {"name":"priceWei","type":"uint256"}]},
  {"type":"function","name":"mintPrice","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"currentLevel","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"presaleActive","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"hasLazyPass","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"activityScore","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"ethMintStats","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[
    {"name":"lastMintLevel","type":"uint256"},
    {"name":"levelCount","type":"uint256"},
    {"name":"streak","type":"uint256"}]},
  {"type":"function","name":"referrerOf","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"questView","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[
    {"name":"questTypes","type":"uint8[2]"},
    {"name":"highDifficulty","type":"bool[2]"},
    {"name":"requiredMints","type":"uint32[2]"},
    {"name":"progress","type":"uint32[2]"},
    {"name":"completed","type":"bool[2]"},
    {"name":"baseStreak","type":"uint32"},
    {"name":"lastCompletedDay","type":"uint32"}]},
  {"type":"function","name":"deityOwner","stateMutability":"view","inputs":[{"name":"symbolId","type":"uint8"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"deityPassCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"purchaseTickets","stateMutability":"payable","inputs":[
    {"name":"buyer","type":"address"},
    {"name":"scaledQuantity","type":"uint256"},
    {"name":"lootboxAmount","type":"uint256"},
    {"name":"referralCode","type":"bytes32"},
    {"name":"paymentKind","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"purchaseTicketsWithToken","stateMutability":"nonpayable","inputs":[
    {"name":"buyer","type":"address"},
    {"name":"scaledQuantity","type":"uint256"},
    {"name":"lootboxTokenAmount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"purchaseLootboxWithToken","stateMutability":"nonpayable","inputs":[
    {"name":"buyer","type":"address"},
    {"name":"tokenAmount","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"purchaseWhaleBundle","stateMutability":"payable","inputs":[
    {"name":"buyer","type":"address"},
    {"name":"quantity","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"purchaseLazyPass","stateMutability":"payable","inputs":[
    {"name":"buyer","type":"address"}],"outputs":[]},
  {"type":"function","name":"purchaseDeityPass","stateMutability":"payable","inputs":[
    {"name":"buyer","type":"address"},
    {"name":"symbolId","type":"uint8"}],"outputs":[]}
]`

// BurnieTokenABI is the ERC-20 slice needed to read BURNIE balances.
const BurnieTokenABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`
