package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/glimpse/glimpse/internal/capture"
	"github.com/glimpse/glimpse/internal/config"
	"github.com/glimpse/glimpse/internal/models"
	"github.com/glimpse/glimpse/internal/reporter"
)

// Store is the slice of the repository the status API reads
type Store interface {
	reporter.SummaryStore
	Count() (int64, error)
	GetByID(id uint) (*models.Entry, error)
	GetEntriesSince(since time.Time) ([]*models.Entry, error)
	GetLatest() (*models.Entry, error)
	RecentErrors(limit int) ([]models.ErrorLog, error)
}

// StatsProvider exposes live loop counters
type StatsProvider interface {
	Stats() capture.Stats
}

type Handler struct {
	config   *config.Config
	repo     Store
	stats    StatsProvider
	reporter *reporter.Reporter
	logger   *slog.Logger
	started  time.Time
}

// NewHandler builds the API handler. stats may be nil when no loop runs in
// this process.
func NewHandler(cfg *config.Config, repo Store, stats StatsProvider, logger *slog.Logger) *Handler {
	return &Handler{
		config:   cfg,
		repo:     repo,
		stats:    stats,
		reporter: reporter.New(repo),
		logger:   logger,
		started:  time.Now(),
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/entries", h.handleEntries)
	mux.HandleFunc("/api/entries/latest", h.handleLatestEntry)
	mux.HandleFunc("/api/entries/{id}", h.handleEntry)
	mux.HandleFunc("/api/errors", h.handleErrors)
	mux.HandleFunc("/api/report", h.handleReport)
	mux.HandleFunc("/api/status", h.handleStatus)

	mux.HandleFunc("/health", h.handleHealth)
}

// handleEntries lists entries captured since ?since=, given as RFC 3339 or
// as a duration back from now. The default is the last hour.
func (h *Handler) handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	since, err := parseSince(r.URL.Query().Get("since"), time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.repo.GetEntriesSince(since)
	if err != nil {
		h.fail(w, "failed to fetch entries", err)
		return
	}
	if entries == nil {
		entries = []*models.Entry{}
	}

	h.respondJSON(w, entries)
}

func parseSince(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now.Add(-time.Hour), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("invalid since %q (use RFC 3339 or a duration like 2h)", raw)
}

func (h *Handler) handleEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	entry, err := h.repo.GetByID(uint(id))
	if err != nil {
		h.fail(w, "failed to fetch entry", err)
		return
	}
	if entry == nil {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}

	h.respondJSON(w, entry)
}

func (h *Handler) handleLatestEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entry, err := h.repo.GetLatest()
	if err != nil {
		h.fail(w, "failed to fetch latest entry", err)
		return
	}

	if entry == nil {
		http.Error(w, "No entries found", http.StatusNotFound)
		return
	}

	h.respondJSON(w, entry)
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if l, err := strconv.Atoi(raw); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	logs, err := h.repo.RecentErrors(limit)
	if err != nil {
		h.fail(w, "failed to fetch error logs", err)
		return
	}

	h.respondJSON(w, logs)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	if _, err := reporter.Period(periodType, time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		h.fail(w, "failed to generate report", err)
		return
	}

	h.respondJSON(w, report)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	count, err := h.repo.Count()
	if err != nil {
		h.fail(w, "failed to count entries", err)
		return
	}

	status := map[string]interface{}{
		"pid":           os.Getpid(),
		"uptime":        time.Since(h.started).Round(time.Second).String(),
		"interval":      h.config.Capture.Interval.String(),
		"threshold":     h.config.Capture.Threshold,
		"backend":       h.config.Capture.Backend,
		"database_path": h.config.Database.Path,
		"artifact_dir":  h.config.Capture.ArtifactDir,
		"entry_count":   count,
	}

	if h.stats != nil {
		status["loop"] = h.stats.Stats()
	}

	if latest, err := h.repo.GetLatest(); err == nil && latest != nil {
		status["latest_entry"] = map[string]interface{}{
			"app_name":      latest.AppName,
			"window_title":  latest.WindowTitle,
			"timestamp":     latest.Timestamp,
			"monitor_index": latest.MonitorIndex,
			"artifact_path": latest.ArtifactPath,
		}
	}

	h.respondJSON(w, status)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("error encoding JSON", "error", err)
	}
}
