package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/servicekpi/internal/etl"
	"github.com/servicekpi/internal/export"
	"github.com/servicekpi/internal/link"
	"github.com/servicekpi/internal/metrics"
	"github.com/servicekpi/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warnf("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// current returns the served snapshot or replies 503 when no run has
// completed yet.
func (s *Server) current(w http.ResponseWriter) *etl.Snapshot {
	snap := s.Snapshot()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no pipeline run has completed yet")
	}
	return snap
}

type statsResponse struct {
	RunID       string            `json:"run_id"`
	CreatedAt   time.Time         `json:"created_at"`
	Fingerprint string            `json:"fingerprint"`
	Rows        int               `json:"rows"`
	Links       link.LinkStats    `json:"links"`
	MatchRate   float64           `json:"match_rate"`
	GPSLinked   int               `json:"gps_linked"`
	Coercions   etl.CoerceStats   `json:"coercions"`
	Loads       []*etl.LoadReport `json:"loads"`
	Warnings    []string          `json:"warnings,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}

	resp := statsResponse{
		RunID:       snap.RunID,
		CreatedAt:   snap.CreatedAt,
		Fingerprint: snap.Fingerprint,
		Rows:        len(snap.Rows),
		Links:       snap.LinkStats,
		GPSLinked:   snap.GPSLinked,
		Loads:       snap.Loads,
		Warnings:    snap.Warnings,
	}
	if snap.LinkStats.Jobs > 0 {
		resp.MatchRate = float64(snap.LinkStats.Matched) / float64(snap.LinkStats.Jobs)
	}
	for _, load := range snap.Loads {
		resp.Coercions.Timestamps += load.Coercions.Timestamps
		resp.Coercions.Numbers += load.Coercions.Numbers
		resp.Coercions.Booleans += load.Coercions.Booleans
		resp.Coercions.Durations += load.Coercions.Durations
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type kpiResponse struct {
	Revenue       []metrics.TechRevenue      `json:"revenue"`
	Performance   []metrics.TechPerformance  `json:"performance"`
	Cancellations []metrics.TechCancellation `json:"cancellations"`
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}

	resp := kpiResponse{
		Revenue:       snap.Revenue,
		Performance:   snap.Performance,
		Cancellations: snap.Cancellations,
	}
	if tech := r.URL.Query().Get("tech"); tech != "" {
		resp.Revenue = filterRevenue(resp.Revenue, tech)
		resp.Performance = filterPerformance(resp.Performance, tech)
		resp.Cancellations = filterCancellations(resp.Cancellations, tech)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func filterRevenue(rows []metrics.TechRevenue, tech string) []metrics.TechRevenue {
	out := rows[:0:0]
	for _, row := range rows {
		if strings.EqualFold(row.Tech, tech) {
			out = append(out, row)
		}
	}
	return out
}

func filterPerformance(rows []metrics.TechPerformance, tech string) []metrics.TechPerformance {
	out := rows[:0:0]
	for _, row := range rows {
		if strings.EqualFold(row.Tech, tech) {
			out = append(out, row)
		}
	}
	return out
}

func filterCancellations(rows []metrics.TechCancellation, tech string) []metrics.TechCancellation {
	out := rows[:0:0]
	for _, row := range rows {
		if strings.EqualFold(row.Tech, tech) {
			out = append(out, row)
		}
	}
	return out
}

func (s *Server) handleCancellations(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"company":     snap.Company,
		"technicians": snap.Cancellations,
	})
}

func (s *Server) handleDriving(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Driving)
}

func (s *Server) handleOrphans(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, filterRows(snap.Rows, func(lj *model.LinkedJob) bool {
		return lj.LinkStatus == model.LinkOrphan
	}))
}

func (s *Server) handleMismatches(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, filterRows(snap.Rows, func(lj *model.LinkedJob) bool {
		return lj.TechMismatch
	}))
}

func filterRows(rows []model.LinkedJob, keep func(*model.LinkedJob) bool) []model.LinkedJob {
	out := make([]model.LinkedJob, 0)
	for i := range rows {
		if keep(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

type jobsResponse struct {
	Total  int               `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
	Rows   []model.LinkedJob `json:"rows"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}

	limit, err := queryInt(r, "limit", 100)
	if err != nil || limit <= 0 {
		s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	resp := jobsResponse{Total: len(snap.Rows), Offset: offset, Limit: limit}
	if offset < len(snap.Rows) {
		end := offset + limit
		if end > len(snap.Rows) {
			end = len(snap.Rows)
		}
		resp.Rows = snap.Rows[offset:end]
	} else {
		resp.Rows = []model.LinkedJob{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

type refreshResponse struct {
	Recomputed bool   `json:"recomputed"`
	RunID      string `json:"run_id"`
}

// handleRefresh re-runs the pipeline. With an unchanged dataset the run is
// a cache hit and nothing is recomputed.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	prev := s.Snapshot()

	snap, err := s.pipe.Run(r.Context(), s.opts)
	if err != nil {
		s.log.Errorf("refresh failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("refresh failed: %v", err))
		return
	}
	s.SetSnapshot(snap)

	s.writeJSON(w, http.StatusOK, refreshResponse{
		Recomputed: prev == nil || prev.RunID != snap.RunID,
		RunID:      snap.RunID,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}

	table := r.URL.Query().Get("table")
	known := false
	for _, name := range export.Tables() {
		if name == table {
			known = true
			break
		}
	}
	if !known {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown table %q, expected one of %s", table, strings.Join(export.Tables(), ", ")))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", table))
	if err := export.NewWriter(snap).WriteTable(w, table); err != nil {
		s.log.Errorf("export of %s failed: %v", table, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
