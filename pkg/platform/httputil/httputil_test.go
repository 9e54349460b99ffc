package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "engage/pkg/domain-errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error withholds message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("db failed: password=hunter2"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, false, body["success"])
		assert.NotContains(t, body["message"], "hunter2")
		assert.Equal(t, "internal_error", body["error"].(map[string]any)["code"])
	})

	t.Run("internal error exposed in development", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteErrorMode(w, errors.New("db failed"), true)

		body := decode(t, w)
		assert.Equal(t, "db failed", body["message"])
	})

	t.Run("validation error carries field details", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Validation(dErrors.FieldError{Location: "body", Field: "points", Message: "points is required"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		details := body["error"].(map[string]any)["details"].([]any)
		require.Len(t, details, 1)
		assert.Equal(t, "points", details[0].(map[string]any)["field"])
	})

	t.Run("status follows code", func(t *testing.T) {
		cases := map[dErrors.Code]int{
			dErrors.CodeUnauthorized: http.StatusUnauthorized,
			dErrors.CodeForbidden:    http.StatusForbidden,
			dErrors.CodeNotFound:     http.StatusNotFound,
			dErrors.CodeRateLimited:  http.StatusTooManyRequests,
			dErrors.CodeTimeout:      http.StatusRequestTimeout,
		}
		for code, status := range cases {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(code, "x"))
			assert.Equal(t, status, w.Code, code)
		}
	})
}

func TestWritePaginated(t *testing.T) {
	w := httptest.NewRecorder()
	WritePaginated(w, []string{"a", "b"}, NewPagination(2, 2, 5))

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "v1", body["version"])
	p := body["pagination"].(map[string]any)
	assert.Equal(t, float64(3), p["totalPages"])
	assert.Equal(t, true, p["hasNext"])
	assert.Equal(t, true, p["hasPrev"])
}
