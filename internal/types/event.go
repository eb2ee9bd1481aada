package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

type EventType string

const (
	EventDepositCompleted           EventType = "kep.vault.v1.EventDepositCompleted"
	EventWithdrawCompleted          EventType = "kep.vault.v1.EventWithdrawCompleted"
	EventRebalanceAddCompleted      EventType = "kep.vault.v1.EventRebalanceAddCompleted"
	EventRebalanceRemoveCompleted   EventType = "kep.vault.v1.EventRebalanceRemoveCompleted"
	EventCompoundCompleted          EventType = "kep.vault.v1.EventCompoundCompleted"
	EventEmergencyPaused            EventType = "kep.vault.v1.EventEmergencyPaused"
	EventEmergencyRepaid            EventType = "kep.vault.v1.EventEmergencyRepaid"
	EventEmergencyBorrowed          EventType = "kep.vault.v1.EventEmergencyBorrowed"
	EventEmergencyResumed           EventType = "kep.vault.v1.EventEmergencyResumed"
	EventEmergencyClosed            EventType = "kep.vault.v1.EventEmergencyClosed"
	EventEmergencyWithdrawCompleted EventType = "kep.vault.v1.EventEmergencyWithdrawCompleted"
	EventStatusOverridden           EventType = "kep.vault.v1.EventStatusOverridden"
	EventFeeMinted                  EventType = "kep.vault.v1.EventFeeMinted"
)

func (e EventType) String() string {
	return string(e)
}

// HealthParams is a point-in-time snapshot of the vault's solvency metrics.
// Workflows capture one before touching the ledger and a second after all
// external effects, and the pair rides on the completion event as the audit
// trail.
type HealthParams struct {
	EquityValue  sdkmath.Int `json:"equity_value"`
	DebtRatio    sdkmath.Int `json:"debt_ratio"`
	Delta        sdkmath.Int `json:"delta"`
	LrtAmt       sdkmath.Int `json:"lrt_amt"`
	SvTokenValue sdkmath.Int `json:"sv_token_value"`
}

// OperationEvent is emitted once per completed vault operation.
type OperationEvent struct {
	EventID      string        `json:"event_id"`
	EventType    EventType     `json:"event_type"`
	Caller       string        `json:"caller"`
	Status       Status        `json:"status"`
	BeforeHealth *HealthParams `json:"before_health,omitempty"`
	AfterHealth  *HealthParams `json:"after_health,omitempty"`
	SharesMinted sdkmath.Int   `json:"shares_minted"`
	SharesBurned sdkmath.Int   `json:"shares_burned"`
	AssetsOut    sdkmath.Int   `json:"assets_out"`
	Timestamp    time.Time     `json:"timestamp"`
}
