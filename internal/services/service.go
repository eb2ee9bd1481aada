package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/kepfinance/kep-vault/internal/config"
	"github.com/kepfinance/kep-vault/internal/db"
	"github.com/kepfinance/kep-vault/internal/queue"
	"github.com/kepfinance/kep-vault/internal/vault"
)

// Service ties the vault engine to its surroundings: every executed
// operation is persisted to the event store, published to the queue and
// reflected in the exported health gauges.
type Service struct {
	cfg          *config.Config
	vault        *vault.Vault
	db           db.DbInterface
	queueManager *queue.QueueManager
}

func NewService(
	cfg *config.Config,
	v *vault.Vault,
	db db.DbInterface,
	qm *queue.QueueManager,
) *Service {
	return &Service{
		cfg:          cfg,
		vault:        v,
		db:           db,
		queueManager: qm,
	}
}

func (s *Service) Vault() *vault.Vault {
	return s.vault
}

func (s *Service) Db() db.DbInterface {
	return s.db
}

// Shutdown releases the service's external connections. The db client is
// owned by the caller that opened it and is closed there.
func (s *Service) Shutdown(ctx context.Context) {
	log.Ctx(ctx).Info().Msg("Shutting down vault service")
	if s.queueManager != nil {
		s.queueManager.Shutdown()
	}
}
