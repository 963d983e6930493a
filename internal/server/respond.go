package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/extrememax/expo-feria/internal/intake"
	"github.com/extrememax/expo-feria/internal/registry"
	"github.com/extrememax/expo-feria/internal/workbook"
)

type errorBody struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

// writeError maps an error to a status code and a readable message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *intake.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ve.Error(), Problems: ve.Problems})
	case errors.Is(err, registry.ErrCodeRequired),
		errors.Is(err, registry.ErrPrizeRequired),
		errors.Is(err, registry.ErrScoreRange):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, workbook.ErrLocked):
		zap.L().Warn("workbook locked", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusLocked, errorBody{Error: "el archivo está bloqueado: cierra el Excel o pausa OneDrive e intenta de nuevo"})
	default:
		zap.L().Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
