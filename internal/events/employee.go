package events

import (
	"time"

	"engage/internal/eventbus"
)

const (
	TypeEmployeeOnboarded  = "employee.onboarded"
	TypeEmployeeUpdated    = "employee.updated"
	TypeEmployeeOffboarded = "employee.offboarded"
)

type EmployeeOnboarded struct {
	EmployeeID     string    `json:"employeeId" validate:"required"`
	OrganizationID string    `json:"organizationId" validate:"required"`
	Email          string    `json:"email" validate:"required,email"`
	DisplayName    string    `json:"displayName" validate:"required,max=120"`
	Department     string    `json:"department,omitempty"`
	ManagerID      string    `json:"managerId,omitempty" validate:"omitempty,nefield=EmployeeID"`
	StartDate      time.Time `json:"startDate" validate:"required"`
}

type EmployeeUpdated struct {
	EmployeeID     string   `json:"employeeId" validate:"required"`
	OrganizationID string   `json:"organizationId" validate:"required"`
	UpdatedBy      string   `json:"updatedBy" validate:"required"`
	ChangedFields  []string `json:"changedFields" validate:"required,min=1,dive,required"`
}

type EmployeeOffboarded struct {
	EmployeeID     string    `json:"employeeId" validate:"required"`
	OrganizationID string    `json:"organizationId" validate:"required"`
	OffboardedBy   string    `json:"offboardedBy" validate:"required"`
	EffectiveDate  time.Time `json:"effectiveDate" validate:"required"`
}

func NewEmployeeOnboarded(p EmployeeOnboarded) eventbus.Draft {
	return draft(TypeEmployeeOnboarded, SourceEmployee, p.EmployeeID, p.OrganizationID, p)
}

func NewEmployeeUpdated(p EmployeeUpdated) eventbus.Draft {
	return draft(TypeEmployeeUpdated, SourceEmployee, p.EmployeeID, p.OrganizationID, p)
}

func NewEmployeeOffboarded(p EmployeeOffboarded) eventbus.Draft {
	return draft(TypeEmployeeOffboarded, SourceEmployee, p.EmployeeID, p.OrganizationID, p)
}
