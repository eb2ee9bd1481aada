package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kepfinance/kep-vault/internal/db"
	"github.com/kepfinance/kep-vault/internal/types"
	"github.com/kepfinance/kep-vault/internal/vault"
)

const callerHeader = "X-Vault-Caller"

type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Error().Err(err).Msg("failed to encode response")
		}
	}
}

// writeError maps domain errors onto http responses. A *types.Error carries
// its own status code; anything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	var typed *types.Error
	if errors.As(err, &typed) {
		writeJSON(w, typed.StatusCode, errorResponse{
			ErrorCode: string(typed.ErrorCode),
			Message:   typed.Error(),
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		ErrorCode: string(types.InternalServiceError),
		Message:   err.Error(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			ErrorCode: string(types.ValidationError),
			Message:   "invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := r.Header.Get(callerHeader)
	if caller == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			ErrorCode: string(types.ValidationError),
			Message:   callerHeader + " header must be set",
		})
		return "", false
	}
	return caller, true
}

func parseAmount(w http.ResponseWriter, field, raw string) (sdkmath.Int, bool) {
	amt, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			ErrorCode: string(types.ValidationError),
			Message:   field + " must be a base-10 integer, got " + raw,
		})
		return sdkmath.Int{}, false
	}
	return amt, true
}

// deadlineFrom resolves the request deadline, defaulting to now plus the
// given grace when the client sent none.
func deadlineFrom(unixSeconds int64, grace time.Duration) time.Time {
	if unixSeconds == 0 {
		return time.Now().Add(grace)
	}
	return time.Unix(unixSeconds, 0)
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if dbClient := s.service.Db(); dbClient != nil {
		if err := dbClient.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{
				ErrorCode: string(types.InternalServiceError),
				Message:   "db unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVaultHealth(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetVaultHealth(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	dbClient := s.service.Db()
	if dbClient == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{
			ErrorCode: string(types.NotFound),
			Message:   "event store is not configured",
		})
		return
	}
	events, err := dbClient.GetRecentOperationEvents(r.Context(), 50)
	if err != nil && !db.IsNotFoundError(err) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type depositRequest struct {
	Token       string `json:"token"`
	Amount      string `json:"amount"`
	SlippageBps int64  `json:"slippage_bps"`
	Deadline    int64  `json:"deadline"`
	Native      bool   `json:"native"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amt, ok := parseAmount(w, "amount", req.Amount)
	if !ok {
		return
	}

	p := vault.DepositParams{
		Token:       req.Token,
		Amt:         amt,
		SlippageBps: req.SlippageBps,
		Deadline:    deadlineFrom(req.Deadline, time.Minute),
	}

	var (
		ev  *types.OperationEvent
		err error
	)
	if req.Native {
		ev, err = s.service.ExecuteDepositNative(r.Context(), caller, p)
	} else {
		ev, err = s.service.ExecuteDeposit(r.Context(), caller, p)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type withdrawRequest struct {
	ShareAmount string `json:"share_amount"`
	SlippageBps int64  `json:"slippage_bps"`
	Deadline    int64  `json:"deadline"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req withdrawRequest
	if !decodeBody(w, r, &req) {
		return
	}
	shareAmt, ok := parseAmount(w, "share_amount", req.ShareAmount)
	if !ok {
		return
	}

	ev, err := s.service.ExecuteWithdraw(r.Context(), caller, vault.WithdrawParams{
		ShareAmt:    shareAmt,
		SlippageBps: req.SlippageBps,
		Deadline:    deadlineFrom(req.Deadline, time.Minute),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type rebalanceRequest struct {
	Direction      string `json:"direction"` // "add" or "remove"
	RebalanceType  string `json:"rebalance_type"`
	BorrowAmount   string `json:"borrow_amount,omitempty"`
	LrtAmtToRemove string `json:"lrt_amt_to_remove,omitempty"`
	SlippageBps    int64  `json:"slippage_bps"`
	Deadline       int64  `json:"deadline"`
}

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req rebalanceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rebalanceType := types.RebalanceType(req.RebalanceType)
	if rebalanceType != types.RebalanceDelta && rebalanceType != types.RebalanceDebt {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			ErrorCode: string(types.ValidationError),
			Message:   "rebalance_type must be DELTA or DEBT",
		})
		return
	}
	deadline := deadlineFrom(req.Deadline, time.Minute)

	var (
		ev  *types.OperationEvent
		err error
	)
	switch req.Direction {
	case "add":
		borrowAmt, ok := parseAmount(w, "borrow_amount", req.BorrowAmount)
		if !ok {
			return
		}
		ev, err = s.service.ExecuteRebalanceAdd(r.Context(), caller, vault.RebalanceAddParams{
			RebalanceType:   rebalanceType,
			BorrowTokenBAmt: borrowAmt,
			SlippageBps:     req.SlippageBps,
			Deadline:        deadline,
		})
	case "remove":
		lrtAmt, ok := parseAmount(w, "lrt_amt_to_remove", req.LrtAmtToRemove)
		if !ok {
			return
		}
		ev, err = s.service.ExecuteRebalanceRemove(r.Context(), caller, vault.RebalanceRemoveParams{
			RebalanceType:  rebalanceType,
			LrtAmtToRemove: lrtAmt,
			SlippageBps:    req.SlippageBps,
			Deadline:       deadline,
		})
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{
			ErrorCode: string(types.ValidationError),
			Message:   "direction must be add or remove",
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type compoundRequest struct {
	TokenIn     string `json:"token_in"`
	TokenOut    string `json:"token_out"`
	AmountIn    string `json:"amount_in"`
	SlippageBps int64  `json:"slippage_bps"`
	Deadline    int64  `json:"deadline"`
}

func (s *Server) handleCompound(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req compoundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amtIn, ok := parseAmount(w, "amount_in", req.AmountIn)
	if !ok {
		return
	}

	ev, err := s.service.ExecuteCompound(r.Context(), caller, vault.CompoundParams{
		TokenIn:     req.TokenIn,
		TokenOut:    req.TokenOut,
		AmtIn:       amtIn,
		SlippageBps: req.SlippageBps,
		Deadline:    deadlineFrom(req.Deadline, time.Minute),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type emergencyRequest struct {
	SlippageBps  int64  `json:"slippage_bps,omitempty"`
	Deadline     int64  `json:"deadline,omitempty"`
	BorrowAmount string `json:"borrow_amount,omitempty"`
	ShareAmount  string `json:"share_amount,omitempty"`
	NewStatus    string `json:"new_status,omitempty"`
}

func (s *Server) handleEmergency(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req emergencyRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	deadline := deadlineFrom(req.Deadline, 5*time.Minute)

	var (
		ev  *types.OperationEvent
		err error
	)
	switch action := chi.URLParam(r, "action"); action {
	case "pause":
		ev, err = s.service.ExecuteEmergencyPause(r.Context(), caller)
	case "repay":
		ev, err = s.service.ExecuteEmergencyRepay(r.Context(), caller, req.SlippageBps, deadline)
	case "borrow":
		borrowAmt, ok := parseAmount(w, "borrow_amount", req.BorrowAmount)
		if !ok {
			return
		}
		ev, err = s.service.ExecuteEmergencyBorrow(r.Context(), caller, borrowAmt, req.SlippageBps, deadline)
	case "resume":
		ev, err = s.service.ExecuteEmergencyResume(r.Context(), caller)
	case "close":
		ev, err = s.service.ExecuteEmergencyClose(r.Context(), caller, req.SlippageBps, deadline)
	case "withdraw":
		shareAmt, ok := parseAmount(w, "share_amount", req.ShareAmount)
		if !ok {
			return
		}
		ev, err = s.service.ExecuteEmergencyWithdraw(r.Context(), caller, shareAmt)
	case "status":
		newStatus, parseErr := types.ParseStatus(req.NewStatus)
		if parseErr != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				ErrorCode: string(types.ValidationError),
				Message:   parseErr.Error(),
			})
			return
		}
		ev, err = s.service.ExecuteEmergencyStatusChange(r.Context(), caller, newStatus)
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{
			ErrorCode: string(types.NotFound),
			Message:   "unknown emergency action " + action,
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
