package types

// DeltaStrategy is the vault's directional strategy mode.
type DeltaStrategy string

const (
	DeltaNeutral DeltaStrategy = "NEUTRAL"
	DeltaLong    DeltaStrategy = "LONG"
	DeltaShort   DeltaStrategy = "SHORT"
)

func (d DeltaStrategy) String() string {
	return string(d)
}

// RebalanceType selects which health metric a rebalance is correcting.
type RebalanceType string

const (
	// RebalanceDelta corrects the vault's net directional exposure. Only
	// meaningful for a delta-neutral strategy.
	RebalanceDelta RebalanceType = "DELTA"
	// RebalanceDebt corrects the vault's debt ratio.
	RebalanceDebt RebalanceType = "DEBT"
)

func (r RebalanceType) String() string {
	return string(r)
}
