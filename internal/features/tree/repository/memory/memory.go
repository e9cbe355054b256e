// Package memory is an in-process tree store used by placement and signup
// tests. Clone gives transaction-like snapshots: work on a clone and keep it
// only when the unit of work succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"qai-backend/internal/features/tree/models"
	"qai-backend/internal/features/tree/repository"
)

type slot struct {
	parent   string
	groupNo  int
	position int
}

type Store struct {
	mu        sync.Mutex
	edges     map[string]map[string]models.Edge // tree name -> child -> edge
	slots     map[string]map[slot]bool
	summaries map[string]map[slot]int // position unused
	members   map[string]models.Member
	now       func() time.Time
}

var (
	_ repository.EdgeStore  = (*Store)(nil)
	_ repository.TreeReader = (*Store)(nil)
)

func New() *Store {
	return &Store{
		edges:     make(map[string]map[string]models.Edge),
		slots:     make(map[string]map[slot]bool),
		summaries: make(map[string]map[slot]int),
		members:   make(map[string]models.Member),
		now:       time.Now,
	}
}

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := New()
	c.now = s.now
	for name, byChild := range s.edges {
		c.edges[name] = make(map[string]models.Edge, len(byChild))
		for k, v := range byChild {
			c.edges[name][k] = v
		}
	}
	for name, set := range s.slots {
		c.slots[name] = make(map[slot]bool, len(set))
		for k, v := range set {
			c.slots[name][k] = v
		}
	}
	for name, set := range s.summaries {
		c.summaries[name] = make(map[slot]int, len(set))
		for k, v := range set {
			c.summaries[name][k] = v
		}
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	return c
}

// AddMember registers a user for Member and Descendants lookups.
func (s *Store) AddMember(m models.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
}

// Edges returns every edge of a tree ordered by parent, group, position.
func (s *Store) Edges(kind models.Kind) []models.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Edge, 0, len(s.edges[kind.Name]))
	for _, e := range s.edges[kind.Name] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ParentID != b.ParentID {
			return a.ParentID < b.ParentID
		}
		if a.GroupNo != b.GroupNo {
			return a.GroupNo < b.GroupNo
		}
		return a.Position < b.Position
	})
	return out
}

// Summary returns the stored child count for (parent, group) and whether a row exists.
func (s *Store) Summary(kind models.Kind, parentID string, groupNo int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.summaries[kind.Name][slot{parent: parentID, groupNo: groupNo}]
	return n, ok
}

func (s *Store) CountChildren(ctx context.Context, kind models.Kind, parentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.edges[kind.Name] {
		if e.ParentID == parentID {
			n++
		}
	}
	return n, nil
}

func (s *Store) GroupCounts(ctx context.Context, kind models.Kind, parentID string) (map[int]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int]int)
	for _, e := range s.edges[kind.Name] {
		if e.ParentID == parentID {
			counts[e.GroupNo]++
		}
	}
	return counts, nil
}

func (s *Store) MaxPosition(ctx context.Context, kind models.Kind, parentID string, groupNo int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, e := range s.edges[kind.Name] {
		if e.ParentID == parentID && e.GroupNo == groupNo && e.Position > max {
			max = e.Position
		}
	}
	return max, nil
}

func (s *Store) InboundDepth(ctx context.Context, kind models.Kind, userID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[kind.Name][userID]
	if !ok {
		return 0, false, nil
	}
	return e.Depth, true, nil
}

// InsertEdge enforces the same keys as the schema: one edge per child and a
// unique (parent, group, position) slot.
func (s *Store) InsertEdge(ctx context.Context, kind models.Kind, edge *models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edges[kind.Name] == nil {
		s.edges[kind.Name] = make(map[string]models.Edge)
		s.slots[kind.Name] = make(map[slot]bool)
	}
	if _, dup := s.edges[kind.Name][edge.ChildID]; dup {
		return fmt.Errorf("duplicate %s edge for child %s: %w", kind.Name, edge.ChildID, repository.ErrSlotTaken)
	}
	key := slot{parent: edge.ParentID, groupNo: edge.GroupNo, position: edge.Position}
	if s.slots[kind.Name][key] {
		return fmt.Errorf("duplicate %s slot %v: %w", kind.Name, key, repository.ErrSlotTaken)
	}
	edge.CreatedAt = s.now()
	s.edges[kind.Name][edge.ChildID] = *edge
	s.slots[kind.Name][key] = true
	return nil
}

func (s *Store) UpsertGroupSummary(ctx context.Context, kind models.Kind, parentID string, groupNo int) error {
	if !kind.HasSummary() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.edges[kind.Name] {
		if e.ParentID == parentID && e.GroupNo == groupNo {
			n++
		}
	}
	if s.summaries[kind.Name] == nil {
		s.summaries[kind.Name] = make(map[slot]int)
	}
	s.summaries[kind.Name][slot{parent: parentID, groupNo: groupNo}] = n
	return nil
}

func (s *Store) Member(ctx context.Context, userID string) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[userID]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}
	return &m, nil
}

func (s *Store) Descendants(ctx context.Context, kind models.Kind, rootID string, maxDepth int) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Member
	frontier := []string{rootID}
	for lvl := 1; lvl <= maxDepth && len(frontier) > 0; lvl++ {
		var level []models.Member
		for _, parent := range frontier {
			for _, e := range s.edges[kind.Name] {
				if e.ParentID != parent {
					continue
				}
				m := s.members[e.ChildID]
				m.ID = e.ChildID
				m.ParentID = parent
				m.Depth = lvl
				level = append(level, m)
			}
		}
		sort.Slice(level, func(i, j int) bool {
			if !level[i].JoinedAt.Equal(level[j].JoinedAt) {
				return level[i].JoinedAt.Before(level[j].JoinedAt)
			}
			return level[i].ID < level[j].ID
		})
		frontier = frontier[:0]
		for _, m := range level {
			frontier = append(frontier, m.ID)
		}
		out = append(out, level...)
	}
	return out, nil
}

func (s *Store) EdgeOf(ctx context.Context, kind models.Kind, userID string) (*models.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[kind.Name][userID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}
