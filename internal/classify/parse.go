package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

type rawAnalysis struct {
	Action     string   `json:"action"`
	Reason     string   `json:"reason"`
	Confidence *float64 `json:"confidence"`
}

// ParseResponse extracts an Analysis from free-form model output. The JSON
// object is located between the first '{' and the last '}'; anything the
// model wrapped around it (markdown fences, prose) is ignored. Every
// failure path wraps ErrBadResponse.
func ParseResponse(text string) (*Analysis, error) {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrBadResponse)
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	if raw.Action == "" || raw.Reason == "" {
		return nil, fmt.Errorf("%w: missing action or reason", ErrBadResponse)
	}

	action := Action(raw.Action)
	if !action.Valid() {
		return nil, fmt.Errorf("%w: invalid action %q", ErrBadResponse, raw.Action)
	}

	reason := strings.TrimSpace(raw.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: blank reason", ErrBadResponse)
	}

	confidence := DefaultConfidence
	if raw.Confidence != nil {
		confidence = *raw.Confidence
		if confidence < 0 || confidence > 1 {
			return nil, fmt.Errorf("%w: confidence %v out of range", ErrBadResponse, confidence)
		}
	}

	return &Analysis{
		Action:     action,
		Reason:     reason,
		Confidence: confidence,
	}, nil
}
