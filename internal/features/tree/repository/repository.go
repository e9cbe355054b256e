package repository

import (
	"context"
	"errors"

	"qai-backend/internal/features/tree/models"
)

var (
	ErrMemberNotFound = errors.New("tree member not found")
	// ErrSlotTaken is returned by InsertEdge when the child already has an
	// edge or the (parent, group, position) slot is occupied.
	ErrSlotTaken = errors.New("tree slot already taken")
)

// EdgeStore is the set of reads and writes placement performs. Implementations
// are bound to one transaction.
type EdgeStore interface {
	// CountChildren returns the number of direct children of parentID.
	CountChildren(ctx context.Context, kind models.Kind, parentID string) (int, error)
	// GroupCounts returns children per group number for parentID.
	GroupCounts(ctx context.Context, kind models.Kind, parentID string) (map[int]int, error)
	// MaxPosition returns the highest position in (parentID, groupNo), 0 when empty.
	MaxPosition(ctx context.Context, kind models.Kind, parentID string, groupNo int) (int, error)
	// InboundDepth returns the depth of userID's own edge, found=false for roots.
	InboundDepth(ctx context.Context, kind models.Kind, userID string) (depth int, found bool, err error)
	InsertEdge(ctx context.Context, kind models.Kind, edge *models.Edge) error
	// UpsertGroupSummary recomputes the summary row of (parentID, groupNo).
	UpsertGroupSummary(ctx context.Context, kind models.Kind, parentID string, groupNo int) error
}

// TreeReader serves the org chart views.
type TreeReader interface {
	// Member loads a single user as the root of a walk.
	Member(ctx context.Context, userID string) (*models.Member, error)
	// Descendants returns members below rootID down to maxDepth levels,
	// ordered by depth then join time.
	Descendants(ctx context.Context, kind models.Kind, rootID string, maxDepth int) ([]models.Member, error)
	// EdgeOf returns the inbound edge of userID, nil for roots.
	EdgeOf(ctx context.Context, kind models.Kind, userID string) (*models.Edge, error)
}
