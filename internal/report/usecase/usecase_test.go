package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/buffet-service/internal/model"
	orderDTO "github.com/fekuna/buffet-service/internal/order/dto"
	"github.com/fekuna/buffet-service/internal/report/dto"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStore = errors.New("store down")

type stubRepo struct {
	countUsersFn    func() (int, error)
	countProductsFn func() (int, error)
	countOrdersFn   func(statuses []model.OrderStatus) (int, error)
	revenueFn       func(since time.Time) (decimal.Decimal, error)
	topProductsFn   func(limit int) ([]dto.ProductSales, error)
	seriesFn        func(since time.Time) ([]dto.MonthlyFigure, error)
	topCustomersFn  func(limit int) ([]dto.CustomerSpend, error)
}

func (s *stubRepo) CountUsers(context.Context) (int, error) {
	if s.countUsersFn == nil {
		return 0, nil
	}
	return s.countUsersFn()
}

func (s *stubRepo) CountProducts(context.Context) (int, error) {
	if s.countProductsFn == nil {
		return 0, nil
	}
	return s.countProductsFn()
}

func (s *stubRepo) CountOrders(_ context.Context, statuses ...model.OrderStatus) (int, error) {
	if s.countOrdersFn == nil {
		return 0, nil
	}
	return s.countOrdersFn(statuses)
}

func (s *stubRepo) Revenue(_ context.Context, since time.Time) (decimal.Decimal, error) {
	if s.revenueFn == nil {
		return decimal.Zero, nil
	}
	return s.revenueFn(since)
}

func (s *stubRepo) TopProducts(_ context.Context, limit int) ([]dto.ProductSales, error) {
	if s.topProductsFn == nil {
		return []dto.ProductSales{}, nil
	}
	return s.topProductsFn(limit)
}

func (s *stubRepo) MonthlySeries(_ context.Context, since time.Time) ([]dto.MonthlyFigure, error) {
	if s.seriesFn == nil {
		return []dto.MonthlyFigure{}, nil
	}
	return s.seriesFn(since)
}

func (s *stubRepo) TopCustomers(_ context.Context, limit int) ([]dto.CustomerSpend, error) {
	if s.topCustomersFn == nil {
		return []dto.CustomerSpend{}, nil
	}
	return s.topCustomersFn(limit)
}

type stubOrders struct {
	err error
}

func (s stubOrders) FindAll(_ context.Context, f *orderDTO.OrderFilters) ([]model.Order, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return []model.Order{{BaseModel: model.BaseModel{ID: 1}}}, 1, nil
}

func newUseCase(repo *stubRepo, orders stubOrders) *reportUseCase {
	uc := NewReportUseCase(repo, orders, logger.NewNop()).(*reportUseCase)
	uc.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return uc
}

func TestDashboardEmptyStoreReportsZeros(t *testing.T) {
	uc := newUseCase(&stubRepo{}, stubOrders{})

	res, err := uc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.Stats.TotalOrders)
	assert.True(t, res.Stats.TotalRevenue.IsZero())
	assert.True(t, res.Stats.AverageOrderValue.IsZero())
	assert.Empty(t, res.Degraded)
	assert.NotNil(t, res.TopProducts)
}

func TestDashboardIsolatesFailingFigure(t *testing.T) {
	repo := &stubRepo{
		countUsersFn: func() (int, error) { return 0, errStore },
		countOrdersFn: func(statuses []model.OrderStatus) (int, error) {
			if len(statuses) == 1 && statuses[0] == model.StatusDelivered {
				return 4, nil
			}
			return 9, nil
		},
		revenueFn: func(since time.Time) (decimal.Decimal, error) {
			if since.IsZero() {
				return decimal.NewFromInt(100), nil
			}
			return decimal.Zero, errStore
		},
	}
	uc := newUseCase(repo, stubOrders{err: errStore})

	res, err := uc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.Stats.TotalUsers)
	assert.Equal(t, 9, res.Stats.TotalOrders)
	assert.Equal(t, 4, res.Stats.DeliveredOrders)
	assert.Equal(t, "25", res.Stats.AverageOrderValue.String())
	assert.True(t, res.Stats.MonthlyRevenue.IsZero())
	assert.Empty(t, res.RecentOrders)
	assert.Equal(t, []string{"monthly_revenue", "recent_orders", "total_users"}, res.Degraded)
}

func TestDashboardMonthlyRevenueStartsAtMonth(t *testing.T) {
	var sinces []time.Time
	repo := &stubRepo{}
	uc := newUseCase(repo, stubOrders{})
	repo.revenueFn = func(since time.Time) (decimal.Decimal, error) {
		if !since.IsZero() {
			sinces = append(sinces, since)
		}
		return decimal.Zero, nil
	}

	_, err := uc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Len(t, sinces, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), sinces[0])
}

func TestAdvancedStatsFillsMissingMonths(t *testing.T) {
	repo := &stubRepo{
		seriesFn: func(since time.Time) ([]dto.MonthlyFigure, error) {
			assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), since)
			return []dto.MonthlyFigure{
				{Period: "2025-12", OrderCount: 3, Revenue: decimal.NewFromInt(45)},
				{Period: "2026-03", OrderCount: 1, Revenue: decimal.NewFromInt(10)},
			}, nil
		},
		topCustomersFn: func(int) ([]dto.CustomerSpend, error) { return nil, errStore },
	}
	uc := newUseCase(repo, stubOrders{})

	res, err := uc.AdvancedStats(context.Background())
	require.NoError(t, err)

	require.Len(t, res.MonthlyOrders, 6)
	periods := make([]string, 0, 6)
	for _, m := range res.MonthlyOrders {
		periods = append(periods, m.Period)
	}
	assert.Equal(t, []string{"2025-10", "2025-11", "2025-12", "2026-01", "2026-02", "2026-03"}, periods)
	assert.Equal(t, 3, res.MonthlyOrders[2].OrderCount)
	assert.Zero(t, res.MonthlyOrders[0].OrderCount)
	assert.True(t, res.MonthlyOrders[0].Revenue.IsZero())

	assert.Empty(t, res.TopUsers)
	assert.Equal(t, []string{"top_users"}, res.Degraded)
}

func TestRecentOrdersClampsPaging(t *testing.T) {
	var got *orderDTO.OrderFilters
	uc := NewReportUseCase(&stubRepo{}, listerFunc(func(f *orderDTO.OrderFilters) {
		got = f
	}), logger.NewNop())

	_, _, err := uc.RecentOrders(context.Background(), 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 20, got.PageSize)
}

type listerFunc func(f *orderDTO.OrderFilters)

func (fn listerFunc) FindAll(_ context.Context, f *orderDTO.OrderFilters) ([]model.Order, int, error) {
	fn(f)
	return []model.Order{}, 0, nil
}
