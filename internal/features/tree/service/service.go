package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qai-backend/internal/common/cache"
	apperrors "qai-backend/internal/common/errors"
	"qai-backend/internal/common/logger"
	"qai-backend/internal/features/tree/models"
	"qai-backend/internal/features/tree/repository"
)

const (
	ChartDepth    = 3
	chartCacheTTL = 30 * time.Second
	joinDateFmt   = "1/2/2006"
)

type treeService struct {
	reader repository.TreeReader
	cache  *cache.CacheService
	kinds  map[string]models.Kind
}

// NewTreeService serves org charts for the given kinds. cacheService may be nil.
func NewTreeService(reader repository.TreeReader, cacheService *cache.CacheService, kinds ...models.Kind) TreeService {
	byName := make(map[string]models.Kind, len(kinds))
	for _, k := range kinds {
		byName[k.Name] = k
	}
	return &treeService{reader: reader, cache: cacheService, kinds: byName}
}

func (s *treeService) OrgChart(ctx context.Context, treeName, userID string) (*models.OrgChart, error) {
	kind, ok := s.kinds[treeName]
	if !ok {
		return nil, ErrUnknownTree
	}

	if s.cache == nil {
		return s.buildChart(ctx, kind, userID)
	}

	var chart models.OrgChart
	key := fmt.Sprintf("tree:%s:%s", kind.Name, userID)
	err := s.cache.GetOrSet(ctx, key, &chart, chartCacheTTL, func() (interface{}, error) {
		return s.buildChart(ctx, kind, userID)
	})
	if err != nil {
		return nil, err
	}
	return &chart, nil
}

func (s *treeService) buildChart(ctx context.Context, kind models.Kind, userID string) (*models.OrgChart, error) {
	root, err := s.reader.Member(ctx, userID)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, apperrors.NewInternalError("load tree root", err)
	}

	members, err := s.reader.Descendants(ctx, kind, userID, ChartDepth)
	if err != nil {
		return nil, apperrors.NewInternalError("load tree descendants", err)
	}

	logger.Debug().
		Str("tree", kind.Name).
		Str("user_id", userID).
		Int("members", len(members)).
		Msg("Built org chart")

	return BuildOrgChart(*root, members), nil
}

// BuildOrgChart flattens a walk into nodes and parent->child edges. Every
// node starts at the origin, layout is left to the client.
func BuildOrgChart(root models.Member, members []models.Member) *models.OrgChart {
	chart := &models.OrgChart{
		Nodes: make([]models.ChartNode, 0, len(members)+1),
		Edges: make([]models.ChartEdge, 0, len(members)),
	}
	chart.Nodes = append(chart.Nodes, chartNode(root))
	for _, m := range members {
		chart.Nodes = append(chart.Nodes, chartNode(m))
		chart.Edges = append(chart.Edges, models.ChartEdge{
			ID:       fmt.Sprintf("e%s-%s", m.ParentID, m.ID),
			Source:   m.ParentID,
			Target:   m.ID,
			Type:     "smoothstep",
			Animated: true,
		})
	}
	return chart
}

func chartNode(m models.Member) models.ChartNode {
	return models.ChartNode{
		ID:   m.ID,
		Type: "customNode",
		Data: models.ChartNodeData{
			Label:    m.Username,
			Level:    m.Level,
			Code:     m.ReferralCode,
			JoinDate: m.JoinedAt.Format(joinDateFmt),
		},
	}
}
