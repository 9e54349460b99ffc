package jwttoken

import (
	"context"

	"engage/pkg/platform/middleware/auth"
	pstrings "engage/pkg/platform/strings"
	"engage/pkg/requestcontext"
)

var _ auth.Authenticator = (*JWTServiceAdapter)(nil)

// ToPrincipal maps verified claims onto the request principal.
func ToPrincipal(claims *Claims) *requestcontext.Principal {
	return &requestcontext.Principal{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
		Roles:          pstrings.DedupeAndTrimLower(claims.Roles),
		Admin:          claims.Admin,
	}
}

// JWTServiceAdapter lets the gateway authenticate with a JWTService.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) Authenticate(_ context.Context, token string) (*requestcontext.Principal, error) {
	claims, err := a.service.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return ToPrincipal(claims), nil
}
