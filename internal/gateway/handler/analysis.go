package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	analysisrepo "savedanalysis/internal/gateway/repository/analysis"
	"savedanalysis/internal/gateway/service/loader"
	"savedanalysis/internal/schema"
	"savedanalysis/internal/util/jsonutil"
)

const maxDocumentBytes = 32 << 20

type AnalysisHandler struct {
	svc *loader.Service
}

func NewAnalysisHandler(svc *loader.Service) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

type analysisResponse struct {
	ID               string                `json:"id"`
	SourceShape      string                `json:"source_shape"`
	SourceVersion    string                `json:"source_version,omitempty"`
	FormatUpgraded   bool                  `json:"format_upgraded"`
	NeedsStepUpgrade bool                  `json:"needs_step_upgrade"`
	StepUpgrades     int                   `json:"step_upgrades"`
	Document         *schema.SavedAnalysis `json:"document"`
}

func toAnalysisResponse(res *loader.Result) analysisResponse {
	return analysisResponse{
		ID:               res.ID,
		SourceShape:      res.SourceShape.String(),
		SourceVersion:    res.SourceVersion,
		FormatUpgraded:   res.FormatUpgraded,
		NeedsStepUpgrade: res.NeedsStepUpgrade,
		StepUpgrades:     res.StepUpgrades,
		Document:         res.Document,
	}
}

func (h *AnalysisHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

func (h *AnalysisHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnalysisResponse(res))
}

func (h *AnalysisHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}
	if len(raw) > maxDocumentBytes {
		http.Error(w, "document too large", http.StatusRequestEntityTooLarge)
		return
	}
	res, err := h.svc.Save(r.Context(), r.PathValue("id"), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnalysisResponse(res))
}

func (h *AnalysisHandler) HandleMigrate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Migrate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnalysisResponse(res))
}

func (h *AnalysisHandler) HandleMigrateAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.MigrateAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	failed := make(map[string]string, len(report.Failed))
	for id, ferr := range report.Failed {
		failed[id] = ferr.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"migrated":  nonNil(report.Migrated),
		"unchanged": nonNil(report.Unchanged),
		"failed":    failed,
	})
}

func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// statusFor maps load-path errors onto HTTP statuses. Malformed documents
// are the caller's problem, everything else is ours.
func statusFor(err error) int {
	switch {
	case errors.Is(err, analysisrepo.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, jsonutil.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrMissingField), errors.Is(err, schema.ErrParse), errors.Is(err, schema.ErrShape):
		return http.StatusUnprocessableEntity
	case errors.Is(err, analysisrepo.ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("analysis handler: %v", err)
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
