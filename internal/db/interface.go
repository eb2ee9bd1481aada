package db

import (
	"context"

	"github.com/kepfinance/kep-vault/internal/db/model"
)

type DbInterface interface {
	Ping(ctx context.Context) error
	SaveOperationEvent(ctx context.Context, eventDoc *model.OperationEventDocument) error
	GetOperationEventByID(ctx context.Context, eventID string) (*model.OperationEventDocument, error)
	GetRecentOperationEvents(ctx context.Context, limit int64) ([]model.OperationEventDocument, error)
	SaveVaultSnapshot(ctx context.Context, snapshotDoc *model.VaultSnapshotDocument) error
	GetLatestVaultSnapshot(ctx context.Context) (*model.VaultSnapshotDocument, error)
}
