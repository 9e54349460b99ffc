// Package handler exposes recognitions and the rewards marketplace as gateway
// routes.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"engage/internal/featureflag"
	"engage/internal/gateway"
	"engage/internal/ratelimit/limiter"
	"engage/internal/recognition/models"
	"engage/pkg/platform/httputil"
	"engage/pkg/requestcontext"
)

// Flag keys read by these routes.
const (
	FlagMarketplace = "marketplace"
	// FlagMaxPoints caps the points of a single recognition.
	FlagMaxPoints = "recognition-max-points"
)

// Service defines the interface for recognition operations.
type Service interface {
	Create(ctx context.Context, cmd models.CreateCommand) (*models.Recognition, error)
	Approve(ctx context.Context, organizationID, id, approverID string) (*models.Recognition, error)
	Reject(ctx context.Context, organizationID, id, reviewerID, reason string) (*models.Recognition, error)
	Get(ctx context.Context, organizationID, id string) (*models.Recognition, error)
	List(ctx context.Context, organizationID string, page, limit int) ([]models.Recognition, int, error)
	Balance(ctx context.Context, organizationID, userID string) (int, error)
}

// Handler handles recognition endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	listTTL time.Duration
}

// New creates a new recognition Handler. listTTL is how long listing pages are
// cached; writes invalidate them early.
func New(service Service, logger *slog.Logger, listTTL time.Duration) *Handler {
	return &Handler{service: service, logger: logger, listTTL: listTTL}
}

type createRequest struct {
	ReceiverID string `json:"receiverId" validate:"required"`
	Points     int    `json:"points" validate:"required,min=1"`
	Message    string `json:"message" validate:"required,max=500"`
	Category   string `json:"category" validate:"omitempty,oneof=teamwork innovation leadership customer values"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type listQuery struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

type idParams struct {
	ID string `param:"id" validate:"required,uuid"`
}

// MarketplaceItem is a reward that points can be redeemed for.
type MarketplaceItem struct {
	SKU    string `json:"sku"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

var marketplaceItems = []MarketplaceItem{
	{SKU: "mug-01", Name: "Team mug", Points: 150},
	{SKU: "day-off", Name: "Extra day off", Points: 2000},
	{SKU: "donate-10", Name: "Charity donation", Points: 100},
}

// Routes returns the route configurations served by this handler.
func (h *Handler) Routes() []gateway.RouteConfig {
	member := gateway.AuthConfig{Required: true}
	reviewer := gateway.AuthConfig{Roles: []string{"manager", "hr"}}

	return []gateway.RouteConfig{
		{
			Method:     http.MethodPost,
			Path:       "/api/v1/recognitions",
			Handler:    h.handleCreate,
			Auth:       member,
			Validation: gateway.ValidationConfig{Body: gateway.Struct[createRequest]()},
			RateLimit:  gateway.RateLimitConfig{Window: time.Minute, Max: 20, KeyFunc: limiter.UserOrIPKey},
			FeatureFlag: gateway.FeatureFlagConfig{
				Key: FlagMaxPoints,
			},
		},
		{
			Method:     http.MethodGet,
			Path:       "/api/v1/recognitions",
			Handler:    h.handleList,
			Auth:       member,
			Validation: gateway.ValidationConfig{Query: gateway.Struct[listQuery]()},
			Cache:      gateway.CacheConfig{TTL: h.listTTL, KeyFunc: organizationCacheKey},
		},
		{
			Method:     http.MethodGet,
			Path:       "/api/v1/recognitions/{id}",
			Handler:    h.handleGet,
			Auth:       member,
			Validation: gateway.ValidationConfig{Params: gateway.Struct[idParams]()},
		},
		{
			Method:     http.MethodPost,
			Path:       "/api/v1/recognitions/{id}/approve",
			Handler:    h.handleApprove,
			Auth:       reviewer,
			Validation: gateway.ValidationConfig{Params: gateway.Struct[idParams]()},
		},
		{
			Method:  http.MethodPost,
			Path:    "/api/v1/recognitions/{id}/reject",
			Handler: h.handleReject,
			Auth:    reviewer,
			Validation: gateway.ValidationConfig{
				Params: gateway.Struct[idParams](),
				Body:   gateway.Struct[rejectRequest](),
			},
		},
		{
			Method:  http.MethodGet,
			Path:    "/api/v1/wallet",
			Handler: h.handleWallet,
			Auth:    member,
		},
		{
			Method:      http.MethodGet,
			Path:        "/api/v1/marketplace/items",
			Handler:     h.handleMarketplace,
			Auth:        member,
			FeatureFlag: gateway.FeatureFlagConfig{Key: FlagMarketplace, Required: true},
			Cache:       gateway.CacheConfig{TTL: 5 * time.Minute},
		},
	}
}

// organizationCacheKey keeps listings of different tenants apart while
// keeping the default key as prefix, so invalidating the path drops them all.
func organizationCacheKey(r *http.Request) string {
	return gateway.DefaultCacheKey(r) + "|org=" + requestcontext.OrganizationID(r.Context())
}

func (h *Handler) handleCreate(r *http.Request) (*gateway.Response, error) {
	ctx := r.Context()
	req, _ := gateway.Body[createRequest](r)
	principal, _ := requestcontext.PrincipalFrom(ctx)

	maxPoints := featureflag.FromContext(ctx).NumericValue(ctx, FlagMaxPoints, 1000)
	if float64(req.Points) > maxPoints {
		return nil, pointsTooHigh(int(maxPoints))
	}

	rec, err := h.service.Create(ctx, models.CreateCommand{
		OrganizationID: principal.OrganizationID,
		GiverID:        principal.UserID,
		ReceiverID:     req.ReceiverID,
		Points:         req.Points,
		Message:        req.Message,
		Category:       req.Category,
	})
	if err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "recognition created",
		"recognition_id", rec.ID,
		"requires_review", rec.RequiresReview,
		"request_id", requestcontext.RequestID(ctx),
	)
	return gateway.Created(rec, "recognition created"), nil
}

func (h *Handler) handleList(r *http.Request) (*gateway.Response, error) {
	ctx := r.Context()
	q, _ := gateway.Query[listQuery](r)
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	items, total, err := h.service.List(ctx, requestcontext.OrganizationID(ctx), q.Page, q.Limit)
	if err != nil {
		return nil, err
	}
	return gateway.Paginated(items, httputil.NewPagination(q.Page, q.Limit, total)), nil
}

func (h *Handler) handleGet(r *http.Request) (*gateway.Response, error) {
	ctx := r.Context()
	p, _ := gateway.Params[idParams](r)
	rec, err := h.service.Get(ctx, requestcontext.OrganizationID(ctx), p.ID)
	if err != nil {
		return nil, err
	}
	return gateway.OK(rec), nil
}

func (h *Handler) handleApprove(r *http.Request) (*gateway.Response, error) {
	ctx := r.Context()
	p, _ := gateway.Params[idParams](r)
	rec, err := h.service.Approve(ctx, requestcontext.OrganizationID(ctx), p.ID, requestcontext.UserID(ctx))
	if err != nil {
		return nil, err
	}
	return &gateway.Response{Status: http.StatusOK, Data: rec, Message: "recognition approved"}, nil
}

func (h *Handler) handleReject(r *http.Request) (*gateway.Response, error) {
	ctx := r.Context()
	p, _ := gateway.Params[idParams](r)
	body, _ := gateway.Body[rejectRequest](r)
	rec, err := h.service.Reject(ctx, requestcontext.OrganizationID(ctx), p.ID, requestcontext.UserID(ctx), body.Reason)
	if err != nil {
		return nil, err
	}
	return &gateway.Response{Status: http.StatusOK, Data: rec, Message: "recognition rejected"}, nil
}

func (h *Handler) handleWallet(r *http.Request) (*gateway.Response, error) {
	ctx := r.Context()
	balance, err := h.service.Balance(ctx, requestcontext.OrganizationID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		return nil, err
	}
	return gateway.OK(map[string]any{
		"userId":            requestcontext.UserID(ctx),
		"balance":           balance,
		"marketplaceActive": featureflag.FromContext(ctx).IsEnabled(ctx, FlagMarketplace),
	}), nil
}

func (h *Handler) handleMarketplace(*http.Request) (*gateway.Response, error) {
	return gateway.OK(marketplaceItems), nil
}
