// Package classify asks a generative-AI model to sort alert emails into
// remediation categories.
package classify

import (
	"context"
	"errors"

	"alertiq/internal/mail"
)

// Action is the remediation category assigned to an alert.
type Action string

const (
	// ActionRehit marks transient issues resolved by retrying the process.
	ActionRehit Action = "Re-hit"
	// ActionBackend marks infrastructure or configuration issues.
	ActionBackend Action = "Backend"
	// ActionCode marks software bugs needing development intervention.
	ActionCode Action = "Code"
)

// Valid reports whether a is one of the three known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionRehit, ActionBackend, ActionCode:
		return true
	}
	return false
}

// DefaultConfidence is assumed when the model omits a confidence score.
const DefaultConfidence = 0.8

// Analysis is the model's verdict for one alert email.
type Analysis struct {
	Action     Action
	Reason     string
	Confidence float64
}

// ErrBadResponse marks a model response that could not be turned into an
// Analysis (no JSON object, missing fields, unknown action, out-of-range
// confidence). It is a permanent per-item failure, never retried.
var ErrBadResponse = errors.New("unusable classifier response")

// Classifier produces an Analysis for an alert email.
type Classifier interface {
	Analyze(ctx context.Context, email mail.EmailData) (*Analysis, error)
	Ping(ctx context.Context) error
}
