package events

import (
	"time"

	"engage/internal/eventbus"
)

const (
	TypeSurveyPublished         = "survey.published"
	TypeSurveyResponseSubmitted = "survey.response_submitted"
	TypeSurveyClosed            = "survey.closed"
)

type SurveyPublished struct {
	SurveyID       string    `json:"surveyId" validate:"required"`
	OrganizationID string    `json:"organizationId" validate:"required"`
	Title          string    `json:"title" validate:"required,max=200"`
	CreatedBy      string    `json:"createdBy" validate:"required"`
	Anonymous      bool      `json:"anonymous"`
	AudienceIDs    []string  `json:"audienceIds" validate:"required,min=1,dive,required"`
	ClosesAt       time.Time `json:"closesAt" validate:"required"`
}

// SurveyResponseSubmitted omits the respondent for anonymous surveys.
type SurveyResponseSubmitted struct {
	SurveyID       string `json:"surveyId" validate:"required"`
	ResponseID     string `json:"responseId" validate:"required"`
	OrganizationID string `json:"organizationId" validate:"required"`
	Anonymous      bool   `json:"anonymous"`
	RespondentID   string `json:"respondentId,omitempty" validate:"required_if=Anonymous false,excluded_if=Anonymous true"`
}

type SurveyClosed struct {
	SurveyID       string `json:"surveyId" validate:"required"`
	OrganizationID string `json:"organizationId" validate:"required"`
	ClosedBy       string `json:"closedBy" validate:"required"`
	ResponseCount  int    `json:"responseCount" validate:"min=0"`
}

func NewSurveyPublished(p SurveyPublished) eventbus.Draft {
	return draft(TypeSurveyPublished, SourceSurvey, p.SurveyID, p.OrganizationID, p)
}

func NewSurveyResponseSubmitted(p SurveyResponseSubmitted) eventbus.Draft {
	return draft(TypeSurveyResponseSubmitted, SourceSurvey, p.ResponseID, p.OrganizationID, p)
}

func NewSurveyClosed(p SurveyClosed) eventbus.Draft {
	return draft(TypeSurveyClosed, SourceSurvey, p.SurveyID, p.OrganizationID, p)
}
