// Package analysis defines the request sent to the analysis service, the
// loosely typed response it returns, and input validation.
package analysis

import (
	"strings"
)

// Platform names understood by the analysis service.
const (
	PlatformCodeforces = "codeforces"
	PlatformLeetCode   = "leetcode"
)

// FormInput is the raw submission from the form or CLI flags.
type FormInput struct {
	UserID     string `json:"user_id"`
	Codeforces string `json:"codeforces"`
	LeetCode   string `json:"leetcode"`
}

// Normalize returns a copy with every field trimmed.
func (in FormInput) Normalize() FormInput {
	return FormInput{
		UserID:     strings.TrimSpace(in.UserID),
		Codeforces: strings.TrimSpace(in.Codeforces),
		LeetCode:   strings.TrimSpace(in.LeetCode),
	}
}

// Validate reports the first missing required field. Input is expected to be normalized.
func (in FormInput) Validate() error {
	if in.UserID == "" {
		return ErrMissingUserID
	}
	if in.Codeforces == "" && in.LeetCode == "" {
		return ErrMissingHandle
	}
	return nil
}

// Request is the body of POST /analyze.
type Request struct {
	UserID    string            `json:"user_id"`
	Handles   map[string]string `json:"handles"`
	SessionID string            `json:"session_id,omitempty"`
}

// NewRequest validates the input and builds a Request containing only the
// handles that were supplied.
func NewRequest(in FormInput) (Request, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return Request{}, err
	}
	req := Request{UserID: in.UserID, Handles: make(map[string]string, 2)}
	if in.Codeforces != "" {
		req.Handles[PlatformCodeforces] = in.Codeforces
	}
	if in.LeetCode != "" {
		req.Handles[PlatformLeetCode] = in.LeetCode
	}
	return req, nil
}
