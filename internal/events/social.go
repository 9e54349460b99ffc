package events

import "engage/internal/eventbus"

const (
	TypePostCreated   = "social.post_created"
	TypeCommentAdded  = "social.comment_added"
	TypeReactionAdded = "social.reaction_added"
)

type PostCreated struct {
	PostID         string   `json:"postId" validate:"required"`
	OrganizationID string   `json:"organizationId" validate:"required"`
	AuthorID       string   `json:"authorId" validate:"required"`
	Visibility     string   `json:"visibility" validate:"required,oneof=organization team private"`
	Mentions       []string `json:"mentions,omitempty" validate:"dive,required"`
	RecognitionID  string   `json:"recognitionId,omitempty"`
}

type CommentAdded struct {
	CommentID      string `json:"commentId" validate:"required"`
	PostID         string `json:"postId" validate:"required"`
	OrganizationID string `json:"organizationId" validate:"required"`
	AuthorID       string `json:"authorId" validate:"required"`
	PostAuthorID   string `json:"postAuthorId" validate:"required"`
}

type ReactionAdded struct {
	PostID         string `json:"postId" validate:"required"`
	OrganizationID string `json:"organizationId" validate:"required"`
	UserID         string `json:"userId" validate:"required"`
	PostAuthorID   string `json:"postAuthorId" validate:"required"`
	Reaction       string `json:"reaction" validate:"required,oneof=like celebrate support insightful"`
}

func NewPostCreated(p PostCreated) eventbus.Draft {
	return draft(TypePostCreated, SourceSocial, p.PostID, p.OrganizationID, p)
}

func NewCommentAdded(p CommentAdded) eventbus.Draft {
	return draft(TypeCommentAdded, SourceSocial, p.CommentID, p.OrganizationID, p)
}

func NewReactionAdded(p ReactionAdded) eventbus.Draft {
	return draft(TypeReactionAdded, SourceSocial, p.PostID, p.OrganizationID, p)
}
