package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/uplinelabs/upline/internal/clock"
	memberdomain "github.com/uplinelabs/upline/internal/member/domain"
	"github.com/uplinelabs/upline/internal/member/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&memberdomain.Member{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.New(),
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestCreateResolvesSponsorFromReferralCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sponsor, err := svc.Create(ctx, CreateMemberInput{Name: "Ada Sponsor", Email: "ada@upline.local"})
	require.NoError(t, err)
	require.Nil(t, sponsor.SponsorID)
	require.NotEmpty(t, sponsor.ReferralCode)

	child, err := svc.Create(ctx, CreateMemberInput{
		Name:        "Ben Child",
		Email:       "ben@upline.local",
		SponsorCode: sponsor.ReferralCode,
	})
	require.NoError(t, err)
	require.NotNil(t, child.SponsorID)
	require.Equal(t, sponsor.ID, *child.SponsorID)
}

func TestCreateRejectsUnknownSponsorCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateMemberInput{
		Name: "Orphan", Email: "orphan@upline.local", SponsorCode: "no-such-code",
	})
	require.ErrorIs(t, err, memberdomain.ErrSponsorNotFound)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateMemberInput{Name: "First", Email: "same@upline.local"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateMemberInput{Name: "Second", Email: "SAME@upline.local"})
	require.ErrorIs(t, err, memberdomain.ErrEmailTaken)
}

func TestCreateRequiresName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateMemberInput{Name: "  ", Email: "x@upline.local"})
	require.ErrorIs(t, err, memberdomain.ErrInvalidMemberName)
}

func TestChainStopsAtSevenLevels(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Build a ten-deep straight line and read the chain from the bottom.
	prev, err := svc.Create(ctx, CreateMemberInput{Name: "Gen 0", Email: "gen0@upline.local"})
	require.NoError(t, err)
	members := []*memberdomain.Member{prev}
	for i := 1; i < 10; i++ {
		m, err := svc.Create(ctx, CreateMemberInput{
			Name:        fmt.Sprintf("Gen %d", i),
			Email:       fmt.Sprintf("gen%d@upline.local", i),
			SponsorCode: prev.ReferralCode,
		})
		require.NoError(t, err)
		members = append(members, m)
		prev = m
	}

	chain, err := svc.Chain(ctx, members[9].ID)
	require.NoError(t, err)
	require.Len(t, chain, memberdomain.MaxChainDepth)

	// Nearest sponsor first.
	require.Equal(t, members[8].ID, chain[0].ID)
	require.Equal(t, members[2].ID, chain[6].ID)
}

func TestChainWithDanglingSponsorTruncates(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	root, err := svc.Create(ctx, CreateMemberInput{Name: "Root", Email: "root@upline.local"})
	require.NoError(t, err)
	child, err := svc.Create(ctx, CreateMemberInput{
		Name: "Child", Email: "child@upline.local", SponsorCode: root.ReferralCode,
	})
	require.NoError(t, err)

	// Hard-delete the root to simulate a dangling reference.
	require.NoError(t, db.Delete(&memberdomain.Member{}, "id = ?", root.ID).Error)

	chain, err := svc.Chain(ctx, child.ID)
	require.NoError(t, err)
	require.Empty(t, chain)
}

func TestGrantKitIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateMemberInput{Name: "Kit Buyer", Email: "kit@upline.local"})
	require.NoError(t, err)
	require.False(t, m.HasKit)

	first, err := svc.GrantKit(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, first.HasKit)
	require.NotNil(t, first.KitPurchasedAt)

	second, err := svc.GrantKit(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, second.HasKit)
	require.Equal(t, first.KitPurchasedAt.Unix(), second.KitPurchasedAt.Unix())
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateMemberInput{Name: "Statusless", Email: "status@upline.local"})
	require.NoError(t, err)

	err = svc.SetStatus(ctx, m.ID, memberdomain.MemberStatus("banned"))
	require.ErrorIs(t, err, memberdomain.ErrInvalidStatus)

	got, err := svc.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, memberdomain.MemberStatusActive, got.Status)
}

func TestSetStatusUnknownMember(t *testing.T) {
	svc, _ := newTestService(t)
	node, _ := snowflake.NewNode(2)

	err := svc.SetStatus(context.Background(), node.Generate(), memberdomain.MemberStatusSuspended)
	require.ErrorIs(t, err, memberdomain.ErrMemberNotFound)
}
