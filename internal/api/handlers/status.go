package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Kamal2131/stock-etl-airflow/internal/lake"
	"github.com/Kamal2131/stock-etl-airflow/internal/ledger"
	"github.com/Kamal2131/stock-etl-airflow/internal/scheduler"
	"github.com/Kamal2131/stock-etl-airflow/pkg/config"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// StatusHandler serves read-only operational endpoints: job state,
// partition inventory and recent run history.
type StatusHandler struct {
	scheduler *scheduler.Scheduler
	store     *lake.Store
	ledger    *ledger.Repository
	config    *config.Config
	logger    *logger.Logger
}

func NewStatusHandler(sched *scheduler.Scheduler, store *lake.Store, repo *ledger.Repository, cfg *config.Config, log *logger.Logger) *StatusHandler {
	return &StatusHandler{
		scheduler: sched,
		store:     store,
		ledger:    repo,
		config:    cfg,
		logger:    log,
	}
}

func (h *StatusHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

func (h *StatusHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// GetJobs returns per-job scheduler statistics.
func (h *StatusHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.scheduler.Stats())
}

// TriggerJob starts a job outside its schedule.
func (h *StatusHandler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	jobName := mux.Vars(r)["name"]

	if err := h.scheduler.TriggerJob(jobName); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"job":    jobName,
		"status": "triggered",
	})
}

type partitionInfo struct {
	Domain string `json:"domain"`
	Key    string `json:"key"`
	Layer  string `json:"layer"`
	Date   string `json:"date"`
	Path   string `json:"path"`
	Size   int64  `json:"size_bytes"`
}

// GetPartitions lists every partition in the lake across the configured
// scopes and both layers.
func (h *StatusHandler) GetPartitions(w http.ResponseWriter, r *http.Request) {
	scopes := make([]lake.Scope, 0, len(h.config.ETL.Underlyings)+1)
	for _, underlying := range h.config.ETL.Underlyings {
		scopes = append(scopes, lake.FNOScope(underlying))
	}
	scopes = append(scopes, lake.EquityScope("nifty500"))

	infos := make([]partitionInfo, 0)
	for _, scope := range scopes {
		for _, layer := range []lake.Layer{lake.LayerRaw, lake.LayerProcessed} {
			partitions, err := h.store.ListPartitions(scope, layer)
			if err != nil {
				h.writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			for _, p := range partitions {
				infos = append(infos, partitionInfo{
					Domain: p.Scope.Domain,
					Key:    p.Scope.Key,
					Layer:  string(p.Layer),
					Date:   p.Date.Format("2006-01-02"),
					Path:   p.Path,
					Size:   p.Size,
				})
			}
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":      len(infos),
		"partitions": infos,
	})
}

// GetRuns returns recent pipeline runs from the ledger. Without a
// configured database the history is empty.
func (h *StatusHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	pipeline := r.URL.Query().Get("pipeline")
	if pipeline == "" {
		pipeline = "fno"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	runs, err := h.ledger.LatestRuns(ctx, pipeline, 20)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []ledger.Run{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"pipeline": pipeline,
		"runs":     runs,
	})
}
