package restapi

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/archiveflow/coordinator/apperrors"
)

// handleDownload serves a file under <output_base>/<subdir>/<filename>,
// per spec.md §6.5. Any request whose resolved absolute path escapes
// output_base is rejected with 4xx before any filesystem access, per
// testable property 9.
func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	subdir := chi.URLParam(r, "subdir")
	filename := chi.URLParam(r, "filename")

	path, err := resolveDownloadPath(s.deps.OutputBase, subdir, filename)
	if err != nil {
		writeError(w, err)
		return
	}

	http.ServeFile(w, r, path)
}

// resolveDownloadPath joins base/subdir/filename, cleans the result, and
// verifies it is still a descendant of base. The check happens purely on
// the resolved path string — no filesystem access occurs until it passes.
func resolveDownloadPath(base, subdir, filename string) (string, error) {
	base = filepath.Clean(base)
	joined := filepath.Join(base, subdir, filename)
	cleaned := filepath.Clean(joined)

	rel, err := filepath.Rel(base, cleaned)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperrors.NewValidationf("requested path escapes the output directory")
	}
	return cleaned, nil
}
