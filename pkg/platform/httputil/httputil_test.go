package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "audiograph/pkg/domain-errors"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantStatus      int
		wantCode        string
		wantDescription string
	}{
		{
			name:            "bad request carries its message",
			err:             dErrors.New(dErrors.CodeBadRequest, "ids query parameter is required"),
			wantStatus:      http.StatusBadRequest,
			wantCode:        "bad_request",
			wantDescription: "ids query parameter is required",
		},
		{
			name:            "exchange failure maps to bad gateway",
			err:             dErrors.New(dErrors.CodeAuthExchange, "token endpoint returned status 400"),
			wantStatus:      http.StatusBadGateway,
			wantCode:        "auth_exchange_failed",
			wantDescription: "token endpoint returned status 400",
		},
		{
			name:       "schema failure withholds the description",
			err:        dErrors.New(dErrors.CodeSchemaValidation, "user payload failed schema validation"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "schema_validation_failed",
		},
		{
			name:       "internal error withholds the description",
			err:        dErrors.New(dErrors.CodeInternal, "persisting session failed"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
		{
			name:       "uncoded error becomes internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, test.err)

			assert.Equal(t, test.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			body := decode(t, rec)
			assert.Equal(t, test.wantCode, body["error"])
			if test.wantDescription == "" {
				assert.NotContains(t, body, "error_description")
			} else {
				assert.Equal(t, test.wantDescription, body["error_description"])
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"total": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"total": 3}`, rec.Body.String())
}
