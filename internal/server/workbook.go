package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/extrememax/expo-feria/internal/resilience"
	"github.com/extrememax/expo-feria/internal/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Workbook == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "el almacenamiento actual no usa un archivo Excel"})
		return
	}
	path := s.deps.Workbook.Location()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "aún no hay Excel; se creará al guardar el primer registro"})
		return
	}
	if err != nil {
		writeError(w, r, wrapLocked(err, path))
		return
	}
	defer f.Close() //nolint:errcheck

	fi, err := f.Stat()
	if err != nil {
		writeError(w, r, eris.Wrap(err, "server: stat workbook"))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeContent(w, r, filepath.Base(path), fi.ModTime(), f)
}

// handleUpload replaces the workbook with the request body after checking
// it opens as a spreadsheet, then adds any missing sheets or headers.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Workbook == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "el almacenamiento actual no usa un archivo Excel"})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "archivo demasiado grande"})
			return
		}
		badRequest(w, "no se pudo leer el archivo")
		return
	}

	check, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		badRequest(w, "el archivo no es un Excel válido (.xlsx)")
		return
	}
	check.Close() //nolint:errcheck

	path := s.deps.Workbook.Location()
	var changed bool
	err = s.deps.Intake.Exclusive(func() error {
		if err := replaceFile(path, data); err != nil {
			return err
		}
		var err error
		changed, err = s.deps.Workbook.EnsureSchema(r.Context())
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	zap.L().Info("workbook replaced", zap.String("path", path), zap.Int("bytes", len(data)), zap.Bool("schema_updated", changed))
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "bytes": len(data), "schema_updated": changed})
}

// replaceFile writes data next to path and renames it into place so readers
// never see a half-written workbook.
func replaceFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "server: create workbook dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*.xlsx")
	if err != nil {
		return eris.Wrap(err, "server: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "server: write upload")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "server: close upload")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return wrapLocked(err, path)
	}
	return nil
}

func wrapLocked(err error, path string) error {
	if resilience.IsLocked(err) {
		return eris.Wrapf(workbook.ErrLocked, "server: %s: %v", path, err)
	}
	return eris.Wrapf(err, "server: %s", path)
}
