package services

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/kepfinance/kep-vault/internal/clients/chain/sim"
	"github.com/kepfinance/kep-vault/internal/db"
	"github.com/kepfinance/kep-vault/internal/db/model"
	"github.com/kepfinance/kep-vault/internal/types"
	"github.com/kepfinance/kep-vault/internal/vault"
	"github.com/kepfinance/kep-vault/testutil"
)

// fakeDb is an in-memory DbInterface used in place of mongo.
type fakeDb struct {
	mu        sync.Mutex
	events    map[string]model.OperationEventDocument
	order     []string
	snapshots []model.VaultSnapshotDocument
}

var _ db.DbInterface = (*fakeDb)(nil)

func newFakeDb() *fakeDb {
	return &fakeDb{events: make(map[string]model.OperationEventDocument)}
}

func (f *fakeDb) Ping(_ context.Context) error { return nil }

func (f *fakeDb) SaveOperationEvent(_ context.Context, doc *model.OperationEventDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[doc.EventID]; ok {
		return &db.DuplicateKeyError{Key: doc.EventID}
	}
	f.events[doc.EventID] = *doc
	f.order = append(f.order, doc.EventID)
	return nil
}

func (f *fakeDb) GetOperationEventByID(_ context.Context, eventID string) (*model.OperationEventDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.events[eventID]
	if !ok {
		return nil, &db.NotFoundError{Key: eventID}
	}
	return &doc, nil
}

func (f *fakeDb) GetRecentOperationEvents(_ context.Context, limit int64) ([]model.OperationEventDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.OperationEventDocument
	for i := len(f.order) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, f.events[f.order[i]])
	}
	return out, nil
}

func (f *fakeDb) SaveVaultSnapshot(_ context.Context, doc *model.VaultSnapshotDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, *doc)
	return nil
}

func (f *fakeDb) GetLatestVaultSnapshot(_ context.Context) (*model.VaultSnapshotDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return nil, &db.NotFoundError{Key: "latest"}
	}
	doc := f.snapshots[len(f.snapshots)-1]
	return &doc, nil
}

type svcEnv struct {
	service *Service
	db      *fakeDb
	user    string
	keeper  string
}

func unit18(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).Mul(sdkmath.NewInt(1_000_000_000_000_000_000))
}

func newSvcEnv(t *testing.T) *svcEnv {
	t.Helper()

	world := sim.NewWorld(nil)
	for _, sym := range []string{"rsETH", "WETH", "stETH", "RWD", "svKEP"} {
		require.NoError(t, world.CreateToken(sym, 18))
		world.SetPrice(sym, unit18(1))
	}
	require.NoError(t, world.CreateToken("USDB", 6))
	world.SetPrice("USDB", unit18(1))
	require.NoError(t, world.InitLending("USDB", sdkmath.NewInt(1_000_000).Mul(sdkmath.NewInt(1_000_000))))

	user := testutil.RandomAccount()
	keeper := testutil.RandomAccount()
	require.NoError(t, world.FundToken("WETH", user, unit18(1000)))
	world.GrantRole(keeper, "*")

	collab := vault.Collaborators{
		Tokens: vault.Tokens{
			Lrt:    world.Token("rsETH"),
			Wnt:    world.WrappedNative("WETH"),
			Lst:    world.Token("stETH"),
			TokenB: world.Token("USDB"),
			Reward: world.Token("RWD"),
		},
		Lending: world.Lending(),
		Oracle:  world.Oracle(),
		Router:  world.Router(),
		Shares:  world.ShareToken("svKEP"),
		Native:  world.NativeBank(),
	}
	params := vault.Params{
		Leverage:               unit18(3),
		Delta:                  types.DeltaNeutral,
		FeePerSecond:           sdkmath.ZeroInt(),
		DebtRatioStepThreshold: 500,
		DebtRatioLowerLimit:    sdkmath.NewInt(600_000_000_000_000_000),
		DebtRatioUpperLimit:    sdkmath.NewInt(700_000_000_000_000_000),
		DeltaLowerLimit:        sdkmath.ZeroInt(),
		DeltaUpperLimit:        unit18(2),
		MinVaultSlippage:       10,
		SwapSlippage:           50,
		MinAssetValue:          unit18(1),
		MaxAssetValue:          unit18(1_000_000),
	}
	store := vault.NewStore("vault", "treasury", collab, params, nil)
	v := vault.New(store, world.Authority(), world)

	fake := newFakeDb()
	return &svcEnv{
		service: NewService(nil, v, fake, nil),
		db:      fake,
		user:    user,
		keeper:  keeper,
	}
}

func (e *svcEnv) deadline() time.Time {
	return time.Now().Add(time.Hour)
}
