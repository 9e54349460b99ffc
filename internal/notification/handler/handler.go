// Package handler serves the caller's notification inbox.
package handler

import (
	"context"
	"net/http"

	"engage/internal/gateway"
	"engage/internal/notification/models"
	"engage/pkg/requestcontext"
)

// Reader reads notification inboxes.
type Reader interface {
	Recent(ctx context.Context, organizationID, userID string, limit int) ([]models.Notification, error)
}

type Handler struct {
	inbox Reader
}

func New(inbox Reader) *Handler {
	return &Handler{inbox: inbox}
}

type inboxQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// Routes returns the route configurations served by this handler.
func (h *Handler) Routes() []gateway.RouteConfig {
	return []gateway.RouteConfig{
		{
			Method:     http.MethodGet,
			Path:       "/api/v1/notifications",
			Handler:    h.handleInbox,
			Auth:       gateway.AuthConfig{Required: true},
			Validation: gateway.ValidationConfig{Query: gateway.Struct[inboxQuery]()},
		},
	}
}

func (h *Handler) handleInbox(r *http.Request) (*gateway.Response, error) {
	ctx := r.Context()
	q, _ := gateway.Query[inboxQuery](r)
	if q.Limit == 0 {
		q.Limit = 20
	}
	items, err := h.inbox.Recent(ctx, requestcontext.OrganizationID(ctx), requestcontext.UserID(ctx), q.Limit)
	if err != nil {
		return nil, err
	}
	return gateway.OK(items), nil
}
