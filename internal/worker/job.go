package worker

import (
	"context"

	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

// Job represents one check invocation for one monitoring request
type Job struct {
	RequestID     string
	CorrelationID string
	Context       context.Context
}

// Result represents the result of a check invocation
type Result struct {
	RequestID string
	Record    *model.CheckRecord
	Error     error
}
