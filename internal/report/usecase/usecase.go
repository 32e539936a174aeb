package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/buffet-service/internal/model"
	orderDTO "github.com/fekuna/buffet-service/internal/order/dto"
	"github.com/fekuna/buffet-service/internal/report"
	"github.com/fekuna/buffet-service/internal/report/dto"
	"github.com/fekuna/buffet-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardRecent   = 10
	dashboardTop      = 5
	advancedTop       = 10
	seriesMonths      = 6
	maxRecentPageSize = 100
)

var openStatuses = []model.OrderStatus{
	model.StatusPending, model.StatusConfirmed, model.StatusPreparing, model.StatusReady,
}

type reportUseCase struct {
	repo   report.Repository
	orders report.OrderLister
	logger logger.ZapLogger
	now    func() time.Time
}

func NewReportUseCase(repo report.Repository, orders report.OrderLister, log logger.ZapLogger) report.UseCase {
	return &reportUseCase{repo: repo, orders: orders, logger: log, now: time.Now}
}

// degraded records figures that fell back to zero.
type degraded struct {
	mu    sync.Mutex
	names []string
}

func (d *degraded) add(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
}

func (d *degraded) list() []string {
	sort.Strings(d.names)
	return d.names
}

// figure runs one aggregate. A failure is logged and leaves the figure at
// its zero value instead of failing the report.
func (uc *reportUseCase) figure(g *errgroup.Group, d *degraded, name string, fn func() error) {
	g.Go(func() error {
		if err := fn(); err != nil {
			uc.logger.Warn("report figure unavailable", zap.String("figure", name), zap.Error(err))
			d.add(name)
		}
		return nil
	})
}

func (uc *reportUseCase) Dashboard(ctx context.Context) (*dto.Dashboard, error) {
	res := &dto.Dashboard{
		Stats: dto.DashboardStats{
			TotalRevenue:      decimal.Zero,
			MonthlyRevenue:    decimal.Zero,
			AverageOrderValue: decimal.Zero,
		},
		RecentOrders: []model.Order{},
		TopProducts:  []dto.ProductSales{},
	}
	s := &res.Stats
	now := uc.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var g errgroup.Group
	var d degraded
	uc.figure(&g, &d, "total_users", func() (err error) {
		s.TotalUsers, err = uc.repo.CountUsers(ctx)
		return err
	})
	uc.figure(&g, &d, "total_products", func() (err error) {
		s.TotalProducts, err = uc.repo.CountProducts(ctx)
		return err
	})
	uc.figure(&g, &d, "total_orders", func() (err error) {
		s.TotalOrders, err = uc.repo.CountOrders(ctx)
		return err
	})
	uc.figure(&g, &d, "open_orders", func() (err error) {
		s.OpenOrders, err = uc.repo.CountOrders(ctx, openStatuses...)
		return err
	})
	uc.figure(&g, &d, "delivered_orders", func() (err error) {
		s.DeliveredOrders, err = uc.repo.CountOrders(ctx, model.StatusDelivered)
		return err
	})
	uc.figure(&g, &d, "total_revenue", func() error {
		sum, err := uc.repo.Revenue(ctx, time.Time{})
		if err == nil {
			s.TotalRevenue = sum
		}
		return err
	})
	uc.figure(&g, &d, "monthly_revenue", func() error {
		sum, err := uc.repo.Revenue(ctx, monthStart)
		if err == nil {
			s.MonthlyRevenue = sum
		}
		return err
	})
	uc.figure(&g, &d, "recent_orders", func() error {
		orders, _, err := uc.orders.FindAll(ctx, &orderDTO.OrderFilters{Page: 1, PageSize: dashboardRecent})
		if err == nil {
			res.RecentOrders = orders
		}
		return err
	})
	uc.figure(&g, &d, "top_products", func() error {
		top, err := uc.repo.TopProducts(ctx, dashboardTop)
		if err == nil {
			res.TopProducts = top
		}
		return err
	})
	_ = g.Wait()

	if s.DeliveredOrders > 0 {
		s.AverageOrderValue = s.TotalRevenue.Div(decimal.NewFromInt(int64(s.DeliveredOrders))).Round(2)
	}
	res.Degraded = d.list()
	return res, nil
}

func (uc *reportUseCase) AdvancedStats(ctx context.Context) (*dto.AdvancedStats, error) {
	res := &dto.AdvancedStats{
		TopProducts: []dto.ProductSales{},
		TopUsers:    []dto.CustomerSpend{},
	}
	now := uc.now()
	first := time.Date(now.Year(), now.Month()-(seriesMonths-1), 1, 0, 0, 0, 0, now.Location())

	var series []dto.MonthlyFigure
	var g errgroup.Group
	var d degraded
	uc.figure(&g, &d, "monthly_orders", func() (err error) {
		series, err = uc.repo.MonthlySeries(ctx, first)
		return err
	})
	uc.figure(&g, &d, "top_products", func() error {
		top, err := uc.repo.TopProducts(ctx, advancedTop)
		if err == nil {
			res.TopProducts = top
		}
		return err
	})
	uc.figure(&g, &d, "top_users", func() error {
		top, err := uc.repo.TopCustomers(ctx, advancedTop)
		if err == nil {
			res.TopUsers = top
		}
		return err
	})
	_ = g.Wait()

	res.MonthlyOrders = fillMonths(first, seriesMonths, series)
	res.Degraded = d.list()
	return res, nil
}

// fillMonths returns one entry per month starting at first, zero where the
// store had no orders.
func fillMonths(first time.Time, months int, rows []dto.MonthlyFigure) []dto.MonthlyFigure {
	byPeriod := make(map[string]dto.MonthlyFigure, len(rows))
	for _, row := range rows {
		byPeriod[row.Period] = row
	}
	out := make([]dto.MonthlyFigure, 0, months)
	for i := 0; i < months; i++ {
		period := first.AddDate(0, i, 0).Format("2006-01")
		row, ok := byPeriod[period]
		if !ok {
			row = dto.MonthlyFigure{Period: period, Revenue: decimal.Zero}
		}
		out = append(out, row)
	}
	return out
}

func (uc *reportUseCase) RecentOrders(ctx context.Context, page, limit int) ([]model.Order, int, error) {
	if limit <= 0 || limit > maxRecentPageSize {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return uc.orders.FindAll(ctx, &orderDTO.OrderFilters{Page: page, PageSize: limit})
}
