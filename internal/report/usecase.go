package report

import (
	"context"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/report/dto"
)

type UseCase interface {
	Dashboard(ctx context.Context) (*dto.Dashboard, error)
	AdvancedStats(ctx context.Context) (*dto.AdvancedStats, error)
	RecentOrders(ctx context.Context, page, limit int) ([]model.Order, int, error)
}
