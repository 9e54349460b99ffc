package events

import (
	"time"

	"engage/internal/eventbus"
)

const (
	TypeLeaveRequested = "leave.requested"
	TypeLeaveApproved  = "leave.approved"
	TypeLeaveRejected  = "leave.rejected"
)

type LeaveRequested struct {
	LeaveRequestID string    `json:"leaveRequestId" validate:"required"`
	OrganizationID string    `json:"organizationId" validate:"required"`
	EmployeeID     string    `json:"employeeId" validate:"required"`
	ApproverID     string    `json:"approverId" validate:"required,nefield=EmployeeID"`
	LeaveType      string    `json:"leaveType" validate:"required,oneof=annual sick parental unpaid other"`
	StartDate      time.Time `json:"startDate" validate:"required"`
	EndDate        time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	Days           float64   `json:"days" validate:"gt=0"`
}

// LeaveApproved carries the employee's leave balance movement for LeaveType.
type LeaveApproved struct {
	LeaveRequestID string  `json:"leaveRequestId" validate:"required"`
	OrganizationID string  `json:"organizationId" validate:"required"`
	EmployeeID     string  `json:"employeeId" validate:"required"`
	ApprovedBy     string  `json:"approvedBy" validate:"required"`
	LeaveType      string  `json:"leaveType" validate:"required,oneof=annual sick parental unpaid other"`
	Days           float64 `json:"days" validate:"gt=0"`
	BalanceBefore  float64 `json:"balanceBefore" validate:"gte=0"`
	BalanceAfter   float64 `json:"balanceAfter" validate:"gte=0,ltefield=BalanceBefore"`
}

type LeaveRejected struct {
	LeaveRequestID string `json:"leaveRequestId" validate:"required"`
	OrganizationID string `json:"organizationId" validate:"required"`
	EmployeeID     string `json:"employeeId" validate:"required"`
	RejectedBy     string `json:"rejectedBy" validate:"required"`
	Reason         string `json:"reason" validate:"required,max=500"`
}

func NewLeaveRequested(p LeaveRequested) eventbus.Draft {
	return draft(TypeLeaveRequested, SourceLeave, p.LeaveRequestID, p.OrganizationID, p)
}

func NewLeaveApproved(p LeaveApproved) eventbus.Draft {
	return draft(TypeLeaveApproved, SourceLeave, p.LeaveRequestID, p.OrganizationID, p)
}

func NewLeaveRejected(p LeaveRejected) eventbus.Draft {
	return draft(TypeLeaveRejected, SourceLeave, p.LeaveRequestID, p.OrganizationID, p)
}
