package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	auditdomain "github.com/uplinelabs/upline/internal/audit/domain"
	auditservice "github.com/uplinelabs/upline/internal/audit/service"
	"github.com/uplinelabs/upline/internal/clock"
	commissiondomain "github.com/uplinelabs/upline/internal/commission/domain"
	"github.com/uplinelabs/upline/internal/commission/repository"
	"github.com/uplinelabs/upline/internal/events"
	ledgerdomain "github.com/uplinelabs/upline/internal/ledger/domain"
	ledgerrepository "github.com/uplinelabs/upline/internal/ledger/repository"
	ledgerservice "github.com/uplinelabs/upline/internal/ledger/service"
	memberdomain "github.com/uplinelabs/upline/internal/member/domain"
	memberrepository "github.com/uplinelabs/upline/internal/member/repository"
	rateconfigdomain "github.com/uplinelabs/upline/internal/rateconfig/domain"
	rateconfigrepository "github.com/uplinelabs/upline/internal/rateconfig/repository"
	rateconfigservice "github.com/uplinelabs/upline/internal/rateconfig/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  *Service
	rate *rateconfigservice.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&memberdomain.Member{},
		&rateconfigdomain.RateSchedule{},
		&commissiondomain.CommissionRecord{},
		&commissiondomain.CommissionAdjustment{},
		&ledgerdomain.LedgerTransaction{},
		&auditdomain.AuditLog{},
		&events.OutboxEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.New()

	auditSvc := auditservice.NewService(auditservice.ServiceParam{DB: db, Log: log, GenID: node})

	rateSvc := rateconfigservice.NewService(rateconfigservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo:     rateconfigrepository.Provide(),
		AuditSvc: auditSvc,
	})

	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo:     ledgerrepository.Provide(),
		AuditSvc: auditSvc,
	})

	svc := NewService(ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo:       repository.Provide(),
		MemberRepo: memberrepository.Provide(),
		RateSvc:    rateSvc,
		Ledger:     ledgerSvc,
		AuditSvc:   auditSvc,
	})

	return &testEnv{db: db, node: node, svc: svc, rate: rateSvc}
}

func (e *testEnv) seedSchedule(t *testing.T) {
	t.Helper()
	_, err := e.rate.Replace(context.Background(), rateconfigservice.ReplaceInput{
		BasePercentage:             10,
		NonKitMultiplierPercentage: 50,
		LevelRates:                 map[int]float64{1: 20, 2: 10, 3: 5},
		Enabled:                    true,
	})
	require.NoError(t, err)
}

func (e *testEnv) addMember(t *testing.T, name string, sponsorID *snowflake.ID, hasKit bool) *memberdomain.Member {
	t.Helper()
	m := &memberdomain.Member{
		ID:           e.node.Generate(),
		Name:         name,
		Email:        name + "@upline.local",
		ReferralCode: name,
		SponsorID:    sponsorID,
		HasKit:       hasKit,
		Tier:         1,
		Status:       memberdomain.MemberStatusActive,
	}
	require.NoError(t, e.db.Create(m).Error)
	return m
}

// chain builds root <- mid <- leaf and returns them in that order.
func (e *testEnv) seedChain(t *testing.T) (*memberdomain.Member, *memberdomain.Member, *memberdomain.Member) {
	t.Helper()
	root := e.addMember(t, "root", nil, true)
	mid := e.addMember(t, "mid", &root.ID, false)
	leaf := e.addMember(t, "leaf", &mid.ID, true)
	return root, mid, leaf
}

func TestProcessPurchaseWritesOneRecordPerAncestor(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	root, mid, leaf := env.seedChain(t)
	ctx := context.Background()

	records, err := env.svc.ProcessPurchase(ctx, PurchaseInput{
		RefereeID:     leaf.ID,
		PackageAmount: 1000,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	// mid is level 1 without a kit: 1000 * 10% * 20% * 50% = 10
	require.Equal(t, mid.ID, records[0].ReferrerID)
	require.Equal(t, 1, records[0].Level)
	require.Equal(t, 10.0, records[0].Amount)
	require.True(t, records[0].NonKitMultiplierApplied)
	require.False(t, records[0].ReferrerHadKit)
	require.Equal(t, commissiondomain.StatusPending, records[0].Status)

	// root is level 2 with a kit: 1000 * 10% * 10% = 10
	require.Equal(t, root.ID, records[1].ReferrerID)
	require.Equal(t, 2, records[1].Level)
	require.Equal(t, 10.0, records[1].Amount)
	require.False(t, records[1].NonKitMultiplierApplied)

	var eventCount int64
	require.NoError(t, env.db.Model(&events.OutboxEvent{}).
		Where("event_type = ?", events.EventCommissionEarned).
		Count(&eventCount).Error)
	require.EqualValues(t, 2, eventCount)
}

func TestProcessPurchaseStopsAtSevenAncestors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.rate.Replace(ctx, rateconfigservice.ReplaceInput{
		BasePercentage:             10,
		NonKitMultiplierPercentage: 50,
		LevelRates:                 map[int]float64{1: 20, 2: 10, 3: 5, 4: 3, 5: 2, 6: 1, 7: 1},
		Enabled:                    true,
	})
	require.NoError(t, err)

	// Nine generations above the buyer; only the nearest seven earn.
	ancestors := make([]*memberdomain.Member, 0, 9)
	var sponsorID *snowflake.ID
	for i := 0; i < 9; i++ {
		m := env.addMember(t, fmt.Sprintf("gen%d", i), sponsorID, true)
		ancestors = append(ancestors, m)
		sponsorID = &m.ID
	}
	buyer := env.addMember(t, "buyer", sponsorID, true)

	records, err := env.svc.ProcessPurchase(ctx, PurchaseInput{
		RefereeID:     buyer.ID,
		PackageAmount: 1000,
	})
	require.NoError(t, err)
	require.Len(t, records, memberdomain.MaxChainDepth)

	for i, rec := range records {
		require.Equal(t, i+1, rec.Level)
		require.Equal(t, ancestors[8-i].ID, rec.ReferrerID)
	}
	// gen0 and gen1 sit beyond the cap.
	for _, far := range ancestors[:2] {
		var count int64
		require.NoError(t, env.db.Model(&commissiondomain.CommissionRecord{}).
			Where("referrer_id = ?", far.ID).
			Count(&count).Error)
		require.Zero(t, count)
	}
}

func TestProcessPurchaseWithoutSponsorYieldsNoRecords(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	solo := env.addMember(t, "solo", nil, true)

	records, err := env.svc.ProcessPurchase(context.Background(), PurchaseInput{
		RefereeID:     solo.ID,
		PackageAmount: 1000,
	})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestProcessPurchaseWithoutScheduleIsSuppressed(t *testing.T) {
	env := newTestEnv(t)
	_, _, leaf := env.seedChain(t)

	records, err := env.svc.ProcessPurchase(context.Background(), PurchaseInput{
		RefereeID:     leaf.ID,
		PackageAmount: 1000,
	})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestBulkDecideApprovePostsLedgerEntry(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	_, mid, leaf := env.seedChain(t)
	ctx := context.Background()
	admin := env.node.Generate()

	records, err := env.svc.ProcessPurchase(ctx, PurchaseInput{RefereeID: leaf.ID, PackageAmount: 1000})
	require.NoError(t, err)
	require.Len(t, records, 2)

	result, err := env.svc.BulkDecide(ctx, BulkDecideInput{
		IDs:     []snowflake.ID{records[0].ID, records[1].ID},
		Action:  BulkActionApprove,
		ActorID: admin,
	})
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 2)
	require.Empty(t, result.Failed)

	var entries []ledgerdomain.LedgerTransaction
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", mid.ID, ledgerdomain.TypeCommission).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, 10.0, entries[0].Amount)
	require.Equal(t, ledgerdomain.StatusCompleted, entries[0].Status)
}

func TestBulkDecideMixedBatchReportsPerItemOutcome(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	_, _, leaf := env.seedChain(t)
	ctx := context.Background()
	admin := env.node.Generate()

	records, err := env.svc.ProcessPurchase(ctx, PurchaseInput{RefereeID: leaf.ID, PackageAmount: 1000})
	require.NoError(t, err)

	// Decide the first record up front so the batch hits one conflict.
	_, err = env.svc.BulkDecide(ctx, BulkDecideInput{
		IDs: []snowflake.ID{records[0].ID}, Action: BulkActionApprove, ActorID: admin,
	})
	require.NoError(t, err)

	result, err := env.svc.BulkDecide(ctx, BulkDecideInput{
		IDs:     []snowflake.ID{records[0].ID, records[1].ID},
		Action:  BulkActionApprove,
		ActorID: admin,
	})
	require.NoError(t, err)
	require.Len(t, result.Succeeded, 1)
	require.Len(t, result.Failed, 1)
	require.Equal(t, records[0].ID, result.Failed[0].ID)
	require.Contains(t, result.Failed[0].Error, "already decided")
}

func TestBulkDecideRejectRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	_, _, leaf := env.seedChain(t)
	ctx := context.Background()

	records, err := env.svc.ProcessPurchase(ctx, PurchaseInput{RefereeID: leaf.ID, PackageAmount: 1000})
	require.NoError(t, err)

	_, err = env.svc.BulkDecide(ctx, BulkDecideInput{
		IDs:    []snowflake.ID{records[0].ID},
		Action: BulkActionReject,
	})
	require.ErrorIs(t, err, commissiondomain.ErrReasonRequired)

	// Nothing was decided.
	rec, err := env.svc.GetByID(ctx, records[0].ID)
	require.NoError(t, err)
	require.Equal(t, commissiondomain.StatusPending, rec.Status)
}

func TestBulkDecideUnknownAction(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.BulkDecide(context.Background(), BulkDecideInput{
		IDs:    []snowflake.ID{env.node.Generate()},
		Action: "archive",
	})
	require.ErrorIs(t, err, commissiondomain.ErrInvalidAction)
}

func TestAdjustReplacesPayoutWithCompensatingEntries(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	_, mid, leaf := env.seedChain(t)
	ctx := context.Background()
	admin := env.node.Generate()

	records, err := env.svc.ProcessPurchase(ctx, PurchaseInput{RefereeID: leaf.ID, PackageAmount: 1000})
	require.NoError(t, err)
	_, err = env.svc.BulkDecide(ctx, BulkDecideInput{
		IDs: []snowflake.ID{records[0].ID}, Action: BulkActionApprove, ActorID: admin,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Adjust(ctx, AdjustInput{
		ID: records[0].ID, Amount: 15, Reason: "rate correction", ActorID: admin,
	}))

	rec, err := env.svc.GetByID(ctx, records[0].ID)
	require.NoError(t, err)
	require.Equal(t, commissiondomain.StatusAdjusted, rec.Status)
	require.Equal(t, 15.0, rec.Amount)

	// Original entry cancelled, replacement completed.
	var cancelled []ledgerdomain.LedgerTransaction
	require.NoError(t, env.db.
		Where("user_id = ? AND type = ? AND status = ?", mid.ID, ledgerdomain.TypeCommission, ledgerdomain.StatusCancelled).
		Find(&cancelled).Error)
	require.Len(t, cancelled, 1)
	require.Equal(t, 10.0, cancelled[0].Amount)

	var completed []ledgerdomain.LedgerTransaction
	require.NoError(t, env.db.
		Where("user_id = ? AND type = ? AND status = ?", mid.ID, ledgerdomain.TypeCommission, ledgerdomain.StatusCompleted).
		Find(&completed).Error)
	require.Len(t, completed, 1)
	require.Equal(t, 15.0, completed[0].Amount)

	var adjustments []commissiondomain.CommissionAdjustment
	require.NoError(t, env.db.Where("commission_id = ?", records[0].ID).Find(&adjustments).Error)
	require.Len(t, adjustments, 1)
	require.Equal(t, 10.0, adjustments[0].OldAmount)
	require.Equal(t, 15.0, adjustments[0].NewAmount)
}

func TestAdjustRejectsPendingRecord(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	_, _, leaf := env.seedChain(t)
	ctx := context.Background()

	records, err := env.svc.ProcessPurchase(ctx, PurchaseInput{RefereeID: leaf.ID, PackageAmount: 1000})
	require.NoError(t, err)

	err = env.svc.Adjust(ctx, AdjustInput{
		ID: records[0].ID, Amount: 15, Reason: "rate correction", ActorID: env.node.Generate(),
	})
	require.ErrorIs(t, err, commissiondomain.ErrNotPaid)
}

func TestResetReturnsDecidedRecordToPending(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	_, mid, leaf := env.seedChain(t)
	ctx := context.Background()
	admin := env.node.Generate()

	records, err := env.svc.ProcessPurchase(ctx, PurchaseInput{RefereeID: leaf.ID, PackageAmount: 1000})
	require.NoError(t, err)
	_, err = env.svc.BulkDecide(ctx, BulkDecideInput{
		IDs: []snowflake.ID{records[0].ID}, Action: BulkActionApprove, ActorID: admin,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Reset(ctx, records[0].ID, admin, "decided in error"))

	rec, err := env.svc.GetByID(ctx, records[0].ID)
	require.NoError(t, err)
	require.Equal(t, commissiondomain.StatusPending, rec.Status)
	require.Nil(t, rec.DecidedBy)

	var entries []ledgerdomain.LedgerTransaction
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", mid.ID, ledgerdomain.TypeCommission).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, ledgerdomain.StatusCancelled, entries[0].Status)
}

func TestResetPendingRecordFails(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t)
	_, _, leaf := env.seedChain(t)
	ctx := context.Background()

	records, err := env.svc.ProcessPurchase(ctx, PurchaseInput{RefereeID: leaf.ID, PackageAmount: 1000})
	require.NoError(t, err)

	err = env.svc.Reset(ctx, records[0].ID, env.node.Generate(), "noop")
	require.ErrorIs(t, err, commissiondomain.ErrAlreadyPending)
}
