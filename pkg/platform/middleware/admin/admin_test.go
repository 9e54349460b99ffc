package admin

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "engage/pkg/domain-errors"
	"engage/pkg/requestcontext"
)

func TestAuthorize(t *testing.T) {
	manager := requestcontext.Principal{UserID: "u1", Roles: []string{"manager"}}
	admin := requestcontext.Principal{UserID: "u2", Admin: true}

	assert.NoError(t, Authorize(manager, nil, false))
	assert.NoError(t, Authorize(manager, []string{"hr", "manager"}, false))
	assert.True(t, dErrors.HasCode(Authorize(manager, []string{"hr"}, false), dErrors.CodeForbidden))
	assert.True(t, dErrors.HasCode(Authorize(manager, nil, true), dErrors.CodeForbidden))
	assert.NoError(t, Authorize(admin, []string{"hr"}, true))
}

func TestRequireRoles(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := RequireRoles([]string{"hr"}, false, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	t.Run("unauthenticated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{UserID: "u", Roles: []string{"employee"}}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("matching role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{UserID: "u", Roles: []string{"hr"}}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
