package model

import (
	"time"

	"github.com/kepfinance/kep-vault/internal/types"
)

const (
	OperationEventCollection = "vault_operation_events"
	VaultSnapshotCollection  = "vault_state_snapshots"
)

// HealthDocument stores a HealthParams snapshot with Ints as strings, since
// they exceed int64 range.
type HealthDocument struct {
	EquityValue  string `bson:"equity_value"`
	DebtRatio    string `bson:"debt_ratio"`
	Delta        string `bson:"delta"`
	LrtAmt       string `bson:"lrt_amt"`
	SvTokenValue string `bson:"sv_token_value"`
}

// OperationEventDocument is one completed vault operation.
type OperationEventDocument struct {
	EventID      string          `bson:"_id"`
	EventType    string          `bson:"event_type"`
	Caller       string          `bson:"caller"`
	Status       string          `bson:"status"`
	BeforeHealth *HealthDocument `bson:"before_health,omitempty"`
	AfterHealth  *HealthDocument `bson:"after_health,omitempty"`
	SharesMinted string          `bson:"shares_minted"`
	SharesBurned string          `bson:"shares_burned"`
	AssetsOut    string          `bson:"assets_out"`
	Timestamp    time.Time       `bson:"timestamp"`
}

// VaultSnapshotDocument is a periodic dump of the vault's health, keyed by
// capture time.
type VaultSnapshotDocument struct {
	ID        string         `bson:"_id"`
	Status    string         `bson:"status"`
	Health    HealthDocument `bson:"health"`
	Timestamp time.Time      `bson:"timestamp"`
}

func healthDocFrom(hp *types.HealthParams) *HealthDocument {
	if hp == nil {
		return nil
	}
	return &HealthDocument{
		EquityValue:  hp.EquityValue.String(),
		DebtRatio:    hp.DebtRatio.String(),
		Delta:        hp.Delta.String(),
		LrtAmt:       hp.LrtAmt.String(),
		SvTokenValue: hp.SvTokenValue.String(),
	}
}

// FromOperationEvent converts a domain event into its storage document.
func FromOperationEvent(ev *types.OperationEvent) *OperationEventDocument {
	return &OperationEventDocument{
		EventID:      ev.EventID,
		EventType:    ev.EventType.String(),
		Caller:       ev.Caller,
		Status:       ev.Status.String(),
		BeforeHealth: healthDocFrom(ev.BeforeHealth),
		AfterHealth:  healthDocFrom(ev.AfterHealth),
		SharesMinted: ev.SharesMinted.String(),
		SharesBurned: ev.SharesBurned.String(),
		AssetsOut:    ev.AssetsOut.String(),
		Timestamp:    ev.Timestamp,
	}
}
