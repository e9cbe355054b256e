package service

import (
	"context"

	"qai-backend/internal/features/home/models"
)

type HomeService interface {
	Dashboard(ctx context.Context, userID string) (*models.Dashboard, error)
}
