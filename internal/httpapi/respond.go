// Package httpapi implements every HTTP route from spec.md §6 over the
// standard library's http.ServeMux (Go 1.22+ method+pattern routing),
// the same stdlib-router idiom internal/healthserver already uses.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/casatico/stayfly/internal/apperr"
	"github.com/casatico/stayfly/internal/jsonx"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonx.NewEncoder(w).Encode(v)
}

// errorBody is the wire shape spec.md §6/§7 mandates for every failure
// response: {error: true, status_code, message, errors?}.
type errorBody struct {
	Error      bool              `json:"error"`
	StatusCode int               `json:"status_code"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// writeError renders err as the taxonomy's JSON body, deriving the
// status code from its apperr.Kind (internal for anything unclassified,
// per spec.md §7's propagation policy: no raw upstream error ever
// reaches the client).
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	body := errorBody{
		Error:      true,
		StatusCode: status,
		Message:    http.StatusText(status),
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Message = ae.Message
		body.Errors = ae.Fields
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	if err := jsonx.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "malformed JSON body")
	}
	return nil
}
