package service

import (
	"context"
	"fmt"

	"qai-backend/internal/features/tree/models"
	"qai-backend/internal/features/tree/repository"
)

// CheckCapacity fails with ErrChildLimitReached when parentID already holds
// kind.MaxChildren children. It performs no writes.
func CheckCapacity(ctx context.Context, store repository.EdgeStore, kind models.Kind, parentID string) error {
	if kind.MaxChildren <= 0 {
		return nil
	}
	n, err := store.CountChildren(ctx, kind, parentID)
	if err != nil {
		return err
	}
	if n >= kind.MaxChildren {
		return ErrChildLimitReached
	}
	return nil
}

// DecideGroupNo validates an explicit request or picks a default. A requested
// group must exist and have room; it is never coerced. The default is the
// open group with the fewest children, lowest number first.
func DecideGroupNo(kind models.Kind, counts map[int]int, requested *int) (int, error) {
	if kind.Groups < 1 {
		return 0, errNoGroups
	}
	full := func(g int) bool {
		return kind.GroupCapacity > 0 && counts[g] >= kind.GroupCapacity
	}

	if requested != nil {
		g := *requested
		if g < 1 || g > kind.Groups || full(g) {
			return 0, ErrInvalidGroupNo
		}
		return g, nil
	}

	best := 0
	for g := 1; g <= kind.Groups; g++ {
		if full(g) {
			continue
		}
		if best == 0 || counts[g] < counts[best] {
			best = g
		}
	}
	if best == 0 {
		return 0, ErrChildLimitReached
	}
	return best, nil
}

// Place attaches childID under parentID in one tree. store must be bound to
// the caller's transaction, and the caller must hold a lock on the parent so
// the position read and the insert are not interleaved with another placement
// under the same parent.
func Place(ctx context.Context, store repository.EdgeStore, kind models.Kind, parentID, childID string, requested *int) (*models.Edge, error) {
	if parentID == childID {
		return nil, fmt.Errorf("%s: user cannot be its own parent", kind.Name)
	}
	if err := CheckCapacity(ctx, store, kind, parentID); err != nil {
		return nil, err
	}

	counts, err := store.GroupCounts(ctx, kind, parentID)
	if err != nil {
		return nil, err
	}
	groupNo, err := DecideGroupNo(kind, counts, requested)
	if err != nil {
		return nil, err
	}

	maxPos, err := store.MaxPosition(ctx, kind, parentID, groupNo)
	if err != nil {
		return nil, err
	}

	// roots have no inbound edge and sit at depth 0
	parentDepth, _, err := store.InboundDepth(ctx, kind, parentID)
	if err != nil {
		return nil, err
	}

	edge := &models.Edge{
		ParentID: parentID,
		ChildID:  childID,
		GroupNo:  groupNo,
		Position: maxPos + 1,
		Depth:    parentDepth + 1,
	}
	if err := store.InsertEdge(ctx, kind, edge); err != nil {
		return nil, err
	}
	if err := store.UpsertGroupSummary(ctx, kind, parentID, groupNo); err != nil {
		return nil, err
	}
	return edge, nil
}

// EnsureParentGroupSummary makes sure the summary row of the bucket childID was
// placed into exists. It is idempotent and safe to call outside the
// placement transaction.
func EnsureParentGroupSummary(ctx context.Context, store repository.EdgeStore, reader repository.TreeReader, kind models.Kind, childID string) error {
	if !kind.HasSummary() {
		return nil
	}
	edge, err := reader.EdgeOf(ctx, kind, childID)
	if err != nil {
		return err
	}
	if edge == nil {
		return nil
	}
	return store.UpsertGroupSummary(ctx, kind, edge.ParentID, edge.GroupNo)
}
