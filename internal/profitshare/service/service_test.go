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
	"github.com/uplinelabs/upline/internal/events"
	ledgerdomain "github.com/uplinelabs/upline/internal/ledger/domain"
	ledgerrepository "github.com/uplinelabs/upline/internal/ledger/repository"
	ledgerservice "github.com/uplinelabs/upline/internal/ledger/service"
	memberdomain "github.com/uplinelabs/upline/internal/member/domain"
	profitsharedomain "github.com/uplinelabs/upline/internal/profitshare/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&memberdomain.Member{},
		&profitsharedomain.ProfitShareRun{},
		&profitsharedomain.ProfitShareAllocation{},
		&ledgerdomain.LedgerTransaction{},
		&auditdomain.AuditLog{},
		&events.OutboxEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.New()

	auditSvc := auditservice.NewService(auditservice.ServiceParam{DB: db, Log: log, GenID: node})

	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo:     ledgerrepository.Provide(),
		AuditSvc: auditSvc,
	})

	svc := NewService(ServiceParam{
		DB: db, Log: log, GenID: node, Clock: clk,
		Ledger:   ledgerSvc,
		AuditSvc: auditSvc,
	})
	return &testEnv{db: db, node: node, svc: svc}
}

func (e *testEnv) addMember(t *testing.T, bonusPoints float64, tier int, status memberdomain.MemberStatus) *memberdomain.Member {
	t.Helper()
	m := &memberdomain.Member{
		ID:           e.node.Generate(),
		Name:         fmt.Sprintf("member-%d", e.node.Generate()),
		Email:        fmt.Sprintf("%d@upline.local", e.node.Generate()),
		ReferralCode: fmt.Sprintf("code-%d", e.node.Generate()),
		BonusPoints:  bonusPoints,
		Tier:         tier,
		Status:       status,
	}
	require.NoError(t, e.db.Create(m).Error)
	return m
}

func TestCreateRunValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateRun(ctx, CreateRunInput{
		Year: 2026, Quarter: 1, TotalProfit: 0, Method: profitsharedomain.MethodBPBased,
	})
	require.ErrorIs(t, err, profitsharedomain.ErrInvalidProfit)

	_, err = env.svc.CreateRun(ctx, CreateRunInput{
		Year: 2026, Quarter: 5, TotalProfit: 1000, Method: profitsharedomain.MethodBPBased,
	})
	require.ErrorIs(t, err, profitsharedomain.ErrInvalidPeriod)

	_, err = env.svc.CreateRun(ctx, CreateRunInput{
		Year: 2026, Quarter: 1, TotalProfit: 1000, Method: "seniority",
	})
	require.ErrorIs(t, err, profitsharedomain.ErrInvalidMethod)

	_, err = env.svc.CreateRun(ctx, CreateRunInput{
		Year: 2026, Quarter: 1, TotalProfit: 1000, Method: profitsharedomain.MethodBPBased,
	})
	require.ErrorIs(t, err, profitsharedomain.ErrNoActiveMembers)
}

func TestCreateRunSnapshotsActiveMembersAndSplitsPool(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.addMember(t, 300, 1, memberdomain.MemberStatusActive)
	b := env.addMember(t, 100, 1, memberdomain.MemberStatusActive)
	env.addMember(t, 999, 1, memberdomain.MemberStatusInactive)

	run, err := env.svc.CreateRun(ctx, CreateRunInput{
		Year: 2026, Quarter: 1, TotalProfit: 1000, Method: profitsharedomain.MethodBPBased,
	})
	require.NoError(t, err)
	require.Equal(t, profitsharedomain.RunStatusDraft, run.Status)
	require.Equal(t, 600.0, run.MemberShareAmount)
	require.Equal(t, 400.0, run.CompanyRetained)
	require.Equal(t, 2, run.ActiveMemberCountAtCalculation)

	var allocations []profitsharedomain.ProfitShareAllocation
	require.NoError(t, env.db.Where("run_id = ?", run.ID).Find(&allocations).Error)
	require.Len(t, allocations, 2)

	byMember := map[snowflake.ID]profitsharedomain.ProfitShareAllocation{}
	for _, alloc := range allocations {
		byMember[alloc.MemberID] = alloc
	}
	require.Equal(t, 450.0, byMember[a.ID].Amount) // 600 * 300/400
	require.Equal(t, 150.0, byMember[b.ID].Amount) // 600 * 100/400
}

func TestCreateRunZeroPointPoolFallsBackToEqualSplit(t *testing.T) {
	env := newTestEnv(t)

	a := env.addMember(t, 0, 1, memberdomain.MemberStatusActive)
	b := env.addMember(t, 0, 1, memberdomain.MemberStatusActive)

	run, err := env.svc.CreateRun(context.Background(), CreateRunInput{
		Year: 2026, Quarter: 2, TotalProfit: 1000, Method: profitsharedomain.MethodBPBased,
	})
	require.NoError(t, err)

	var allocations []profitsharedomain.ProfitShareAllocation
	require.NoError(t, env.db.Where("run_id = ?", run.ID).Find(&allocations).Error)
	require.Len(t, allocations, 2)
	for _, alloc := range allocations {
		require.Equal(t, 300.0, alloc.Amount)
		require.Contains(t, []snowflake.ID{a.ID, b.ID}, alloc.MemberID)
	}
}

func TestDistributeRequiresApprovedRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addMember(t, 100, 1, memberdomain.MemberStatusActive)

	run, err := env.svc.CreateRun(ctx, CreateRunInput{
		Year: 2026, Quarter: 1, TotalProfit: 1000, Method: profitsharedomain.MethodBPBased,
	})
	require.NoError(t, err)

	err = env.svc.Distribute(ctx, run.ID)
	require.ErrorIs(t, err, profitsharedomain.ErrInvalidRunState)
}

func TestApproveOnlyFromDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addMember(t, 100, 1, memberdomain.MemberStatusActive)
	admin := env.node.Generate()

	run, err := env.svc.CreateRun(ctx, CreateRunInput{
		Year: 2026, Quarter: 1, TotalProfit: 1000, Method: profitsharedomain.MethodBPBased,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Approve(ctx, run.ID, admin))
	require.ErrorIs(t, env.svc.Approve(ctx, run.ID, admin), profitsharedomain.ErrInvalidRunState)
}

func TestDistributePostsOneTransactionPerMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.node.Generate()

	for i := 0; i < 3; i++ {
		env.addMember(t, float64(100*(i+1)), 1, memberdomain.MemberStatusActive)
	}

	run, err := env.svc.CreateRun(ctx, CreateRunInput{
		Year: 2026, Quarter: 3, TotalProfit: 1000, Method: profitsharedomain.MethodBPBased,
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.Approve(ctx, run.ID, admin))
	require.NoError(t, env.svc.Distribute(ctx, run.ID))

	var count int64
	require.NoError(t, env.db.Model(&ledgerdomain.LedgerTransaction{}).
		Where("run_id = ? AND type = ?", run.ID, ledgerdomain.TypeProfitShare).
		Count(&count).Error)
	require.EqualValues(t, 3, count)

	after, err := env.svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, profitsharedomain.RunStatusDistributed, after.Status)
	require.NotNil(t, after.DistributedAt)

	// Replaying a distributed run changes nothing.
	require.NoError(t, env.svc.Distribute(ctx, run.ID))
	require.NoError(t, env.db.Model(&ledgerdomain.LedgerTransaction{}).
		Where("run_id = ? AND type = ?", run.ID, ledgerdomain.TypeProfitShare).
		Count(&count).Error)
	require.EqualValues(t, 3, count)
}

func TestDistributeFansOutAcrossChunks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.node.Generate()

	// More members than fit in one chunk.
	total := DistributeChunkSize + 20
	for i := 0; i < total; i++ {
		env.addMember(t, 10, 1, memberdomain.MemberStatusActive)
	}

	run, err := env.svc.CreateRun(ctx, CreateRunInput{
		Year: 2026, Quarter: 1, TotalProfit: 24000, Method: profitsharedomain.MethodBPBased,
	})
	require.NoError(t, err)
	require.Equal(t, total, run.ActiveMemberCountAtCalculation)
	require.NoError(t, env.svc.Approve(ctx, run.ID, admin))
	require.NoError(t, env.svc.Distribute(ctx, run.ID))

	var count int64
	require.NoError(t, env.db.Model(&ledgerdomain.LedgerTransaction{}).
		Where("run_id = ? AND type = ?", run.ID, ledgerdomain.TypeProfitShare).
		Count(&count).Error)
	require.EqualValues(t, total, count)

	// Every member was paid exactly once, second chunk included.
	var distinct int64
	require.NoError(t, env.db.Model(&ledgerdomain.LedgerTransaction{}).
		Where("run_id = ?", run.ID).
		Distinct("user_id").
		Count(&distinct).Error)
	require.EqualValues(t, total, distinct)

	after, err := env.svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, profitsharedomain.RunStatusDistributed, after.Status)
}

func TestDistributeResumesAfterPartialFanOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.node.Generate()

	m1 := env.addMember(t, 100, 1, memberdomain.MemberStatusActive)
	m2 := env.addMember(t, 100, 1, memberdomain.MemberStatusActive)

	run, err := env.svc.CreateRun(ctx, CreateRunInput{
		Year: 2026, Quarter: 4, TotalProfit: 1000, Method: profitsharedomain.MethodBPBased,
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.Approve(ctx, run.ID, admin))

	// Simulate a crash that had already paid m1 before the run flipped.
	var alloc profitsharedomain.ProfitShareAllocation
	require.NoError(t, env.db.Where("run_id = ? AND member_id = ?", run.ID, m1.ID).First(&alloc).Error)
	require.NoError(t, env.db.Create(&ledgerdomain.LedgerTransaction{
		ID:              env.node.Generate(),
		UserID:          m1.ID,
		Type:            ledgerdomain.TypeProfitShare,
		Amount:          alloc.Amount,
		Status:          ledgerdomain.StatusCompleted,
		RelatedEntityID: &alloc.ID,
		RunID:           &run.ID,
	}).Error)

	require.NoError(t, env.svc.Distribute(ctx, run.ID))

	// m1 keeps a single payout; m2 got exactly one.
	var count int64
	require.NoError(t, env.db.Model(&ledgerdomain.LedgerTransaction{}).
		Where("run_id = ? AND user_id = ?", run.ID, m1.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.NoError(t, env.db.Model(&ledgerdomain.LedgerTransaction{}).
		Where("run_id = ? AND user_id = ?", run.ID, m2.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
