package handler

import (
	"net/http"

	"github.com/fekuna/buffet-service/internal/httpx"
	"github.com/fekuna/buffet-service/internal/report"
	"github.com/fekuna/buffet-service/pkg/logger"
)

type ReportHandler struct {
	uc     report.UseCase
	logger logger.ZapLogger
}

func NewReportHandler(uc report.UseCase, log logger.ZapLogger) *ReportHandler {
	return &ReportHandler{uc: uc, logger: log}
}

func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	res, err := h.uc.Dashboard(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "dashboard", res)
}

func (h *ReportHandler) AdvancedStats(w http.ResponseWriter, r *http.Request) {
	res, err := h.uc.AdvancedStats(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Success(w, r, http.StatusOK, "advanced stats", res)
}

func (h *ReportHandler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := httpx.Page(r)
	orders, total, err := h.uc.RecentOrders(r.Context(), page, limit)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Paginated(w, r, "recent orders", orders, httpx.NewPagination(page, limit, total))
}
