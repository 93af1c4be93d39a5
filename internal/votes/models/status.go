package models

import (
	"strings"

	dErrors "electiondesk/pkg/domain-errors"
)

// Status is the verification state of a vote record.
// submitted is initial; verified and rejected are terminal.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusVerified  Status = "verified"
	StatusRejected  Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusVerified, StatusRejected:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// CanTransitionTo allows only submitted → verified and submitted → rejected.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusSubmitted && target.IsTerminal()
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "status must be submitted, verified or rejected")
	}
	return s, nil
}

// Decision is the verifier's verdict on a submitted record.
type Decision string

const (
	DecisionVerify Decision = "verify"
	DecisionReject Decision = "reject"
)

func ParseDecision(raw string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(raw))) {
	case DecisionVerify:
		return DecisionVerify, nil
	case DecisionReject:
		return DecisionReject, nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "decision must be verify or reject")
}

// Target is the status a decision moves a record to.
func (d Decision) Target() Status {
	if d == DecisionReject {
		return StatusRejected
	}
	return StatusVerified
}
