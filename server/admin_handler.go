package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"AirgapFM/core/evictor"
	"AirgapFM/core/playlist"
	"AirgapFM/core/worker"
	"AirgapFM/logger"
	"AirgapFM/model"
	"AirgapFM/repository"
	"AirgapFM/storage"

	"github.com/disgoorg/snowflake/v2"
	"github.com/gorilla/mux"
)

// SessionReader 读取同步到缓存的播放状态
type SessionReader interface {
	Sessions(ctx context.Context) ([]snowflake.ID, error)
	GetSnapshot(ctx context.Context, id snowflake.ID) (*model.PlaybackSnapshot, error)
}

// AdminHandler 管理接口处理器
type AdminHandler struct {
	worker   *worker.Worker
	history  repository.HistoryRepository
	sessions SessionReader
}

func NewAdminHandler(w *worker.Worker) *AdminHandler {
	return &AdminHandler{worker: w}
}

// SetHistory 启用 /api/history
func (h *AdminHandler) SetHistory(repo repository.HistoryRepository) {
	h.history = repo
}

// SetSessions 启用 /api/sessions
func (h *AdminHandler) SetSessions(r SessionReader) {
	h.sessions = r
}

// CacheStats GET /api/cache/stats 的响应
type CacheStats struct {
	Files           int     `json:"files"`
	TotalBytes      int64   `json:"totalBytes"`
	TotalSize       string  `json:"totalSize"`
	MaxBytes        int64   `json:"maxBytes"`
	UsagePercent    float64 `json:"usagePercent"`
	FailedDeletions int64   `json:"failedDeletions"`
	PendingReclaims int     `json:"pendingReclaims"`
}

// CleanupRequest POST /api/cache/cleanup 的请求体
type CleanupRequest struct {
	FilePath string `json:"file_path"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *AdminHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	processed, failed := h.worker.Consumer().Counters()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"processed": processed,
		"failed":    failed,
	})
}

func (h *AdminHandler) CacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	count, total, err := h.worker.Media().Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ev := h.worker.Evictor()
	stats := CacheStats{
		Files:           count,
		TotalBytes:      total,
		TotalSize:       storage.FormatSize(total),
		MaxBytes:        ev.Config().MaxSize,
		FailedDeletions: ev.FailedDeletions(),
		PendingReclaims: h.worker.Reclaimer().Pending(),
	}
	if stats.MaxBytes > 0 {
		stats.UsagePercent = float64(total) / float64(stats.MaxBytes) * 100
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) SweepHandler(w http.ResponseWriter, r *http.Request) {
	report := h.worker.Evictor().RunFullSweep()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed":    report.Total(),
		"freedBytes": report.Freed(),
		"report":     report,
	})
}

func (h *AdminHandler) CleanupHandler(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}
	if err := h.worker.Evictor().CleanupFile(req.FilePath); err != nil {
		if errors.Is(err, evictor.ErrOutsideLibrary) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cleaned up"})
}

func (h *AdminHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.worker.Playlists().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	pl, err := h.worker.Playlists().Get(name)
	if err != nil {
		if errors.Is(err, playlist.ErrPlaylistNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pl)
}

func (h *AdminHandler) QueueHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.worker.Consumer().Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "request history is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats, err := h.history.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":   stats,
		"entries": entries,
	})
}

func (h *AdminHandler) SessionsHandler(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session mirror is disabled")
		return
	}
	ids, err := h.sessions.Sessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]*model.PlaybackSnapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := h.sessions.GetSnapshot(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if snap != nil {
			out = append(out, snap)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session mirror is disabled")
		return
	}
	id, err := snowflake.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	snap, err := h.sessions.GetSnapshot(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no such session")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// RegisterAdminRoutes 注册管理相关的API端点
func RegisterAdminRoutes(router *mux.Router, h *AdminHandler) {
	router.HandleFunc("/api/health", h.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/cache/stats", h.CacheStatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/cache/sweep", h.SweepHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/cache/cleanup", h.CleanupHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists", h.ListPlaylistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{name}", h.GetPlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/queue", h.QueueHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/history", h.HistoryHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/sessions", h.SessionsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/sessions/{id}", h.SessionHandler).Methods(http.MethodGet)
}
