package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/extrememax/expo-feria/internal/dedupe"
	"github.com/extrememax/expo-feria/internal/model"
	"github.com/extrememax/expo-feria/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.deps.Store.Version(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"location": s.deps.Store.Location(),
		"version":  version,
	})
}

func (s *Server) handleStands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"stands": s.deps.Intake.Stands()})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	idx, err := s.deps.Locations.Index(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	prov, canton := q.Get("province"), q.Get("canton")
	switch {
	case prov != "" && canton != "":
		writeJSON(w, http.StatusOK, map[string]any{"province": prov, "canton": canton, "parishes": idx.Parishes(prov, canton)})
	case prov != "":
		writeJSON(w, http.StatusOK, map[string]any{"province": prov, "cantons": idx.Cantons(prov)})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"provinces": idx.Provinces()})
	}
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matches, err := s.finder.Find(r.Context(), q.Get("document"), q.Get("email"), q.Get("phone"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if matches == nil {
		matches = []dedupe.Match{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"duplicates": matches})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	cat, err := model.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}

	var p model.Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		badRequest(w, "cuerpo de solicitud inválido")
		return
	}
	p.Category = cat

	res, err := s.deps.Intake.Submit(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string `json:"code"`
		Score *int   `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "cuerpo de solicitud inválido")
		return
	}
	if req.Score == nil {
		badRequest(w, "score is required")
		return
	}

	res, err := s.deps.Intake.SetScore(r.Context(), req.Code, *req.Score)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePrize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string `json:"code"`
		Prize string `json:"prize"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "cuerpo de solicitud inválido")
		return
	}

	res, err := s.deps.Intake.RecordPrize(r.Context(), req.Code, req.Prize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleCodes lists the registry of codes. Without a query the list is
// ordered by score; with one it keeps registry order.
func (s *Server) handleCodes(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Reports.View(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query().Get("q")
	rows := report.FilterByQuery(v.Codes, q)
	if q == "" {
		rows = report.SortByScore(rows)
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": rows})
}

func (s *Server) handleTopCodes(w http.ResponseWriter, r *http.Request) {
	n := s.opts.TopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			badRequest(w, "n must be a positive integer")
			return
		}
		n = parsed
	}

	v, err := s.deps.Reports.View(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": report.TopN(v.Codes, n)})
}

func (s *Server) handleCodeIDs(w http.ResponseWriter, r *http.Request) {
	codes, err := s.deps.Intake.Registry().Codes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": codes})
}

func (s *Server) handlePrizes(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Reports.View(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prizes": report.FilterByQuery(v.Prizes, r.URL.Query().Get("q"))})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Reports.View(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Summarize(v))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Reports.View(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="reporte-expo-feria.xlsx"`)
	if err := report.WriteXLSX(w, v); err != nil {
		writeError(w, r, err)
	}
}
