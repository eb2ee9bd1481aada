package db

import (
	"context"
	"time"

	"github.com/kepfinance/kep-vault/internal/db/model"
	"github.com/kepfinance/kep-vault/internal/observability/metrics"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) SaveOperationEvent(ctx context.Context, eventDoc *model.OperationEventDocument) error {
	return d.run("SaveOperationEvent", func() error {
		return d.db.SaveOperationEvent(ctx, eventDoc)
	})
}

func (d *DbWithMetrics) GetOperationEventByID(ctx context.Context, eventID string) (result *model.OperationEventDocument, err error) {
	//nolint:errcheck
	d.run("GetOperationEventByID", func() error {
		result, err = d.db.GetOperationEventByID(ctx, eventID)
		return err
	})
	return
}

func (d *DbWithMetrics) GetRecentOperationEvents(ctx context.Context, limit int64) (result []model.OperationEventDocument, err error) {
	//nolint:errcheck
	d.run("GetRecentOperationEvents", func() error {
		result, err = d.db.GetRecentOperationEvents(ctx, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveVaultSnapshot(ctx context.Context, snapshotDoc *model.VaultSnapshotDocument) error {
	return d.run("SaveVaultSnapshot", func() error {
		return d.db.SaveVaultSnapshot(ctx, snapshotDoc)
	})
}

func (d *DbWithMetrics) GetLatestVaultSnapshot(ctx context.Context) (result *model.VaultSnapshotDocument, err error) {
	//nolint:errcheck
	d.run("GetLatestVaultSnapshot", func() error {
		result, err = d.db.GetLatestVaultSnapshot(ctx)
		return err
	})
	return
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
