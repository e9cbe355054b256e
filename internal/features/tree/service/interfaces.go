package service

import (
	"context"

	"qai-backend/internal/features/tree/models"
)

type TreeService interface {
	// OrgChart returns userID and three levels of descendants in the named tree.
	OrgChart(ctx context.Context, treeName, userID string) (*models.OrgChart, error)
}
