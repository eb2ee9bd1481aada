package types

import (
	"fmt"
	"strings"
)

// Enum values for vault lifecycle status
type Status string

const (
	StatusOpen            Status = "OPEN"
	StatusDeposit         Status = "DEPOSIT"
	StatusDepositFailed   Status = "DEPOSIT_FAILED"
	StatusWithdraw        Status = "WITHDRAW"
	StatusWithdrawFailed  Status = "WITHDRAW_FAILED"
	StatusRebalanceAdd    Status = "REBALANCE_ADD"
	StatusRebalanceRemove Status = "REBALANCE_REMOVE"
	StatusRebalanceOpen   Status = "REBALANCE_OPEN"
	StatusCompound        Status = "COMPOUND"
	StatusPaused          Status = "PAUSED"
	StatusRepay           Status = "REPAY"
	StatusRepaid          Status = "REPAID"
	StatusResume          Status = "RESUME"
	StatusClosed          Status = "CLOSED"
)

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a wire string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(raw))
	switch s {
	case StatusOpen, StatusDeposit, StatusDepositFailed, StatusWithdraw,
		StatusWithdrawFailed, StatusRebalanceAdd, StatusRebalanceRemove,
		StatusRebalanceOpen, StatusCompound, StatusPaused, StatusRepay,
		StatusRepaid, StatusResume, StatusClosed:
		return s, nil
	}
	return "", fmt.Errorf("unknown vault status %q", raw)
}

// QualifiedSourceStatesForDeposit returns the states from which a deposit may start.
func QualifiedSourceStatesForDeposit() []Status {
	return []Status{StatusOpen}
}

// QualifiedSourceStatesForWithdraw returns the states from which a withdraw may start.
func QualifiedSourceStatesForWithdraw() []Status {
	return []Status{StatusOpen}
}

// QualifiedSourceStatesForRebalance returns the states from which a rebalance may start.
// RebalanceOpen is included so a keeper can chain corrective rebalances without
// the vault having fully settled back to Open in between.
func QualifiedSourceStatesForRebalance() []Status {
	return []Status{StatusOpen, StatusRebalanceOpen}
}

// QualifiedSourceStatesForCompound returns the states from which a compound may start.
func QualifiedSourceStatesForCompound() []Status {
	return []Status{StatusOpen}
}

// QualifiedSourceStatesForEmergencyPause returns the states from which an
// emergency pause is allowed. Pausing an already-halted vault is rejected.
func QualifiedSourceStatesForEmergencyPause() []Status {
	return []Status{
		StatusOpen,
		StatusDeposit,
		StatusDepositFailed,
		StatusWithdraw,
		StatusWithdrawFailed,
		StatusRebalanceAdd,
		StatusRebalanceRemove,
		StatusRebalanceOpen,
		StatusCompound,
	}
}

// QualifiedSourceStatesForEmergencyRepay returns the states from which the
// emergency debt repayment may run.
func QualifiedSourceStatesForEmergencyRepay() []Status {
	return []Status{StatusPaused}
}

// QualifiedSourceStatesForEmergencyBorrow returns the states from which the
// emergency re-borrow may run.
func QualifiedSourceStatesForEmergencyBorrow() []Status {
	return []Status{StatusRepaid}
}

// QualifiedSourceStatesForEmergencyResume returns the states from which the
// vault may resume normal operation.
func QualifiedSourceStatesForEmergencyResume() []Status {
	return []Status{StatusPaused}
}

// QualifiedSourceStatesForEmergencyClose returns the states from which the
// vault may be closed. Close requires the debt to have been repaid first.
func QualifiedSourceStatesForEmergencyClose() []Status {
	return []Status{StatusRepaid}
}

// QualifiedSourceStatesForEmergencyWithdraw returns the states from which
// shareholders may exit pro-rata. Only a closed vault allows it.
func QualifiedSourceStatesForEmergencyWithdraw() []Status {
	return []Status{StatusClosed}
}

// BlockedSourceStatesForStatusOverride returns the states from which the
// administrative status override is NOT allowed. The override is an escape
// hatch for stuck vaults; a vault in the normal operating set or already
// terminal must not be overridden.
func BlockedSourceStatesForStatusOverride() []Status {
	return []Status{StatusOpen, StatusDeposit, StatusWithdraw, StatusClosed}
}

// IsQualified reports whether s is one of the qualified source states.
func (s Status) IsQualified(qualified []Status) bool {
	for _, q := range qualified {
		if s == q {
			return true
		}
	}
	return false
}
