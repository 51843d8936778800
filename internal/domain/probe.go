package domain

import (
	"context"
	"errors"
)

// ProbeResult is the outcome of a read-only existence check. It is a closed
// set: Exists, NotFound, or ProbeFailed.
type ProbeResult interface {
	probeResult()
}

// Exists reports that at least one matching row was found.
type Exists struct{}

// NotFound reports that no matching row exists. Absence is not a failure.
type NotFound struct{}

// ProbeFailed reports that the backend could not be reached or refused the read.
type ProbeFailed struct {
	Err error
}

func (Exists) probeResult()      {}
func (NotFound) probeResult()    {}
func (ProbeFailed) probeResult() {}

// ProbeOf converts a row count or read error into a ProbeResult.
func ProbeOf(probe string, count int, err error) ProbeResult {
	if err != nil {
		return ProbeFailed{Err: &ProbeTransportError{
			Probe:   probe,
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Err:     err,
		}}
	}
	if count > 0 {
		return Exists{}
	}
	return NotFound{}
}

// Probe names used in errors, logs, and span attributes.
const (
	ProbeSuperAdmin   = "super_admin"
	ProbeOrganisation = "organisation"
	ProbeAdmin        = "admin"
	ProbeSession      = "session"
)
