package restapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/archiveflow/coordinator/apperrors"
)

// errorResponse is the shape every non-2xx public/internal response body
// takes. Messages are short and actionable and never echo stack traces or
// implementation details, per spec.md §7.
type errorResponse struct {
	Error string `json:"error"`
}

func decodeRaw(r *http.Request) (json.RawMessage, error) {
	defer func() { _ = r.Body.Close() }()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}
	return raw, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps an apperrors-taxonomy error to its HTTP status and a
// short message, per spec.md §7's propagation rule.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.HTTPStatus(err), errorResponse{Error: err.Error()})
}

// writeSchemaError always surfaces as 422, per spec.md §6.1.
func writeSchemaError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "request failed schema validation: " + err.Error()})
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
