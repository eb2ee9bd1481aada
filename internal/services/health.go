package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kepfinance/kep-vault/internal/db/model"
	"github.com/kepfinance/kep-vault/internal/observability/metrics"
	"github.com/kepfinance/kep-vault/internal/types"
	"github.com/kepfinance/kep-vault/internal/vault"
)

// VaultHealth is the read-only view served over the API.
type VaultHealth struct {
	Status             types.Status       `json:"status"`
	Health             types.HealthParams `json:"health"`
	Capacity           string             `json:"capacity"`
	AdditionalCapacity string             `json:"additional_capacity"`
}

// GetVaultHealth reads the vault's current solvency metrics. It never
// mutates the ledger.
func (s *Service) GetVaultHealth(ctx context.Context) (*VaultHealth, error) {
	store := s.vault.Store()

	health, err := vault.CaptureHealth(ctx, store)
	if err != nil {
		return nil, err
	}
	capacity, err := vault.Capacity(ctx, store)
	if err != nil {
		return nil, err
	}
	additional, err := vault.AdditionalCapacity(ctx, store)
	if err != nil {
		return nil, err
	}

	return &VaultHealth{
		Status:             store.Status,
		Health:             health,
		Capacity:           capacity.String(),
		AdditionalCapacity: additional.String(),
	}, nil
}

// StartHealthSnapshotPoller periodically persists the vault's health so the
// time series survives restarts. It runs until the context is cancelled.
func (s *Service) StartHealthSnapshotPoller(ctx context.Context, interval time.Duration) {
	if s.db == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.captureHealthSnapshot(ctx)
			}
		}
	}()
}

func (s *Service) captureHealthSnapshot(ctx context.Context) {
	view, err := s.GetVaultHealth(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to read vault health")
		return
	}

	metrics.RecordVaultHealth(
		view.Health.EquityValue,
		view.Health.DebtRatio,
		view.Health.Delta,
		view.Health.SvTokenValue,
	)

	doc := &model.VaultSnapshotDocument{
		ID:     uuid.New().String(),
		Status: view.Status.String(),
		Health: model.HealthDocument{
			EquityValue:  view.Health.EquityValue.String(),
			DebtRatio:    view.Health.DebtRatio.String(),
			Delta:        view.Health.Delta.String(),
			LrtAmt:       view.Health.LrtAmt.String(),
			SvTokenValue: view.Health.SvTokenValue.String(),
		},
		Timestamp: time.Now().UTC(),
	}
	if err := s.db.SaveVaultSnapshot(ctx, doc); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to persist vault snapshot")
	}
}
