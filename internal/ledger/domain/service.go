package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type RecordInput struct {
	UserID          snowflake.ID
	Type            TransactionType
	Amount          float64
	Status          TransactionStatus
	RelatedEntityID *snowflake.ID
	RunID           *snowflake.ID
	Description     string
}

// Recorder is the write surface other components use to post ledger entries
// inside their own transaction boundaries.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, in RecordInput) (*LedgerTransaction, error)
	// CancelByRelatedEntity cancels the completed entries of the given type
	// linked to an entity. Entries are never deleted; a cancellation
	// supersedes them.
	CancelByRelatedEntity(ctx context.Context, tx *gorm.DB, relatedEntityID snowflake.ID, txType TransactionType) error
	// ExistsForRun reports whether a run has already posted a profit_share
	// entry to the given member.
	ExistsForRun(ctx context.Context, tx *gorm.DB, runID, userID snowflake.ID) (bool, error)
}
