package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/meridian/internal/domain"
	"github.com/aristath/meridian/internal/modules/market_hours"
	"github.com/aristath/meridian/internal/scheduler"
)

const defaultHistoryLimit = 100

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status   string               `json:"status"`
	Service  string               `json:"service"`
	Database string               `json:"database"`
	Market   *market_hours.Status `json:"market,omitempty"`
	System   SystemStats          `json:"system"`
}

// SystemStats describes the host
type SystemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
	Goroutines    int     `json:"goroutines"`
}

// TickerView is a ticker as exposed by the API
type TickerView struct {
	Symbol                string    `json:"symbol"`
	Active                bool      `json:"active"`
	PerformanceVector     float64   `json:"performance_vector"`
	HasBaselines          bool      `json:"has_baselines"`
	AveragesCalculated    time.Time `json:"averages_calculated"`
	PerformanceCalculated time.Time `json:"performance_calculated"`
}

// handleHealth reports store, market and host state. A failing store is 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:   "healthy",
		Service:  "meridian",
		Database: "ok",
		System:   s.systemStats(),
	}
	status := http.StatusOK

	if s.cfg.DB != nil {
		if err := s.cfg.DB.HealthCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("Database health check failed")
			response.Status = "unhealthy"
			response.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	if s.cfg.Market != nil {
		market, err := s.cfg.Market.Status(r.Context())
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to get market status")
		} else {
			response.Market = market
		}
	}

	s.writeJSON(w, status, response)
}

// handleTickers lists the universe with its latest scores
func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := s.cfg.Tickers.GetAll(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get tickers")
		s.writeError(w, http.StatusInternalServerError, "failed to get tickers")
		return
	}

	views := make([]TickerView, 0, len(tickers))
	for _, t := range tickers {
		views = append(views, TickerView{
			Symbol:                t.Symbol,
			Active:                t.Active,
			PerformanceVector:     t.PerformanceVector,
			HasBaselines:          t.Baselines.Established(),
			AveragesCalculated:    t.AveragesCalculated,
			PerformanceCalculated: t.PerformanceCalculated,
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

// handleOrders lists the orders decided for ?day=YYYY-MM-DD, today by default
func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	day := domain.TruncateDay(time.Now())
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "day must be formatted as YYYY-MM-DD")
			return
		}
		day = parsed
	}

	orders, err := s.cfg.Orders.GetForDay(r.Context(), s.cfg.AccountID, day)
	if err != nil {
		s.log.Error().Err(err).Time("day", day).Msg("Failed to get orders")
		s.writeError(w, http.StatusInternalServerError, "failed to get orders")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	s.writeJSON(w, http.StatusOK, orders)
}

// handleOrderHistory lists fills, optionally for one ?symbol=
func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var (
		history []domain.OrderHistory
		err     error
	)
	if symbol := strings.TrimSpace(r.URL.Query().Get("symbol")); symbol != "" {
		history, err = s.cfg.History.GetBySymbol(r.Context(), s.cfg.AccountID, symbol, limit)
	} else {
		history, err = s.cfg.History.GetRecent(r.Context(), s.cfg.AccountID, limit)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get order history")
		s.writeError(w, http.StatusInternalServerError, "failed to get order history")
		return
	}
	if history == nil {
		history = []domain.OrderHistory{}
	}
	s.writeJSON(w, http.StatusOK, history)
}

// handleJobs lists the registered job names
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Jobs.Jobs())
}

// handleRunJob runs a job now and waits for it
func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	start := time.Now()
	err := s.cfg.Jobs.RunNow(r.Context(), name)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, scheduler.ErrJobRunning):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":         name,
		"status":      "completed",
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// systemStats samples CPU, memory and disk usage
func (s *Server) systemStats() SystemStats {
	stats := SystemStats{Goroutines: runtime.NumGoroutine()}

	// Short interval keeps the endpoint responsive
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		stats.MemoryPercent = memStat.UsedPercent
	}

	path := s.cfg.DataDir
	if path == "" {
		path = "/"
	}
	if usage, err := disk.Usage(path); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Failed to get disk usage")
	} else {
		stats.DiskPercent = usage.UsedPercent
	}

	return stats
}

// writeJSON writes a JSON response wrapped in the standard envelope
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	envelope := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON error")
	}
}
