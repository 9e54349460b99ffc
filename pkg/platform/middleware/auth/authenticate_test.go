package auth_test

//go:generate mockgen -source=auth.go -destination=mocks/mocks.go -package=mocks Authenticator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	dErrors "engage/pkg/domain-errors"
	"engage/pkg/platform/middleware/auth"
	"engage/pkg/platform/middleware/auth/mocks"
	"engage/pkg/requestcontext"
)

func TestAuthenticate(t *testing.T) {
	bearer := func(token string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	t.Run("passes the trimmed token to the verifier", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		authn := mocks.NewMockAuthenticator(ctrl)
		authn.EXPECT().Authenticate(gomock.Any(), "abc").
			Return(&requestcontext.Principal{UserID: "u-1", OrganizationID: "org-1"}, nil)

		principal, err := auth.Authenticate(bearer(" abc "), authn)
		require.NoError(t, err)
		assert.Equal(t, "u-1", principal.UserID)
	})

	t.Run("verifier errors become unauthorized", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		authn := mocks.NewMockAuthenticator(ctrl)
		expired := errors.New("token expired")
		authn.EXPECT().Authenticate(gomock.Any(), "abc").Return(nil, expired)

		_, err := auth.Authenticate(bearer("abc"), authn)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.ErrorIs(t, err, expired)
	})

	t.Run("principal without a user is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		authn := mocks.NewMockAuthenticator(ctrl)
		authn.EXPECT().Authenticate(gomock.Any(), "abc").Return(&requestcontext.Principal{}, nil)

		_, err := auth.Authenticate(bearer("abc"), authn)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("missing header never reaches the verifier", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		authn := mocks.NewMockAuthenticator(ctrl)

		_, err := auth.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil), authn)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
