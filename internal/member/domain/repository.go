package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/uplinelabs/upline/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListMemberFilter struct {
	Status MemberStatus
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, m *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	FindByReferralCode(ctx context.Context, db *gorm.DB, code string) (*Member, error)
	List(ctx context.Context, db *gorm.DB, filter ListMemberFilter, page pagination.Pagination) ([]Member, int64, error)
	// AncestorChain returns the ordered chain of sponsors for a member,
	// nearest first, at most maxDepth long.
	AncestorChain(ctx context.Context, db *gorm.DB, id snowflake.ID, maxDepth int) ([]Member, error)
	ListActiveIDs(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
	Update(ctx context.Context, db *gorm.DB, m *Member) error
}
