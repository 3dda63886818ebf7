package response

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
)

// errorBody is the uniform failure shape: a small JSON object with a
// human-readable message, plus an optional debug detail on the
// admin-facing endpoints.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorBody{Error: message})
}

// ErrorDetail carries an operator-facing detail string; use only on
// admin endpoints, never on the public surface.
func ErrorDetail(w http.ResponseWriter, status int, message, detail string) {
	JSON(w, status, errorBody{Error: message, Detail: detail})
}

var errNotJSON = errors.New("Content-Type must be application/json")

// Decode parses a JSON request body into dst. The request must declare
// a JSON content type.
func Decode(r *http.Request, dst any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errNotJSON
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
