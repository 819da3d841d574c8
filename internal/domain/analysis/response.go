package analysis

import (
	"encoding/json"
	"fmt"
)

// StatusFailed is the application-level failure marker in a response body.
const StatusFailed = "failed"

// Response is the decoded body of a successful POST /analyze. The service
// owns the schema; every field is optional and each accessor tolerates a
// missing or mistyped value.
type Response map[string]any

// DecodeResponse parses a JSON object body.
func DecodeResponse(data []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("decode analysis response: body is not an object")
	}
	return r, nil
}

// Status returns the "status" field when it is a string.
func (r Response) Status() string {
	s, _ := r["status"].(string)
	return s
}

// Failed reports whether the body carries status "failed".
func (r Response) Failed() bool {
	return r.Status() == StatusFailed
}

// ErrorMessage returns the "error" field when it is a non-empty string.
func (r Response) ErrorMessage() string {
	s, _ := r["error"].(string)
	return s
}

// SessionID returns the upstream session id, if any.
func (r Response) SessionID() string {
	s, _ := r["session_id"].(string)
	return s
}

// Field returns a top-level field, nil when absent.
func (r Response) Field(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}
