// Package httputil centralizes domain error translation and JSON writing so
// handlers stay thin and error envelopes stay consistent.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "audiograph/pkg/domain-errors"
)

// WriteError renders a domain error as a JSON envelope. Internal and
// schema-validation failures omit the description: the detail is logged
// server-side and never exposes upstream payloads to the end user.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}

	switch code {
	case dErrors.CodeInternal, dErrors.CodeSchemaValidation:
		// description withheld
	default:
		var de *dErrors.Error
		if errors.As(err, &de) && de.Message != "" {
			body["error_description"] = de.Message
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
