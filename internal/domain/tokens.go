package domain

// Ledger token symbols. All amounts are 18-decimal base units.
const (
	// TokenEmission is the emitted reward token.
	TokenEmission = "EMT"

	// TokenGov is the governance token used for staking and vote escrow.
	TokenGov = "GOV"
)

// Module-owned ledger accounts.
const (
	// AccountTreasury holds the unemitted supply.
	AccountTreasury = "treasury"

	// AccountRouter is funded from the treasury and drained by routing.
	AccountRouter = "router"

	// AccountStakingEscrow holds governance tokens while they are staked.
	AccountStakingEscrow = "staking-escrow"

	// AccountVoteEscrow holds governance tokens while they are locked for
	// voting power.
	AccountVoteEscrow = "vote-escrow"

	// AccountVestingPool holds settled rewards until vesting releases them.
	AccountVestingPool = "vesting-pool"

	// AccountForfeitPool collects early-exit penalties.
	AccountForfeitPool = "forfeit-pool"
)
