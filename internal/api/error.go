package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrConnectivity marks transport-level failures (DNS, refused connection,
// timeout). Callers show a generic "try again" message for these.
var ErrConnectivity = errors.New("cannot reach the analysis server")

// Error is a non-2xx response from the backend. It keeps both the extracted
// human-readable message and the raw status/body for callers that branch on
// specific shapes (a 404 "email not found" vs. a 400 validation failure).
type Error struct {
	StatusCode int
	Body       map[string]any
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// IsAuth reports whether the response means the session is no longer valid.
func (e *Error) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports a 404, used by the password-reset flow to send the
// user back to the request-code step.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// errorBody is the strict decode of a backend error payload. The backend is
// inconsistent about which field carries the message, so detail is kept raw
// and resolved with fallbacks.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// imageValidationDetail is the nested shape the upload endpoint returns when
// the submitted file fails the image-type sanity check.
type imageValidationDetail struct {
	Error               string  `json:"error"`
	SeparatorPrediction string  `json:"separator_prediction"`
	MRIProbability      float64 `json:"mri_probability"`
	Message             string  `json:"message"`
}

// newError builds an *Error from a response body, preferring detail over
// message over error, with the image-validation shape handled explicitly.
func newError(status int, raw []byte) *Error {
	e := &Error{StatusCode: status}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &e.Body)
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		e.Message = resolveMessage(body)
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed: %d %s", status, http.StatusText(status))
	}
	return e
}

func resolveMessage(body errorBody) string {
	if len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			return s
		}
		var detail imageValidationDetail
		if err := json.Unmarshal(body.Detail, &detail); err == nil {
			if msg := imageValidationMessage(detail); msg != "" {
				return msg
			}
		}
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func imageValidationMessage(d imageValidationDetail) string {
	if containsInvalidImageType(d.Error) {
		kind := d.SeparatorPrediction
		if kind == "" {
			kind = "Non-medical"
		}
		return fmt.Sprintf(
			"image validation failed: this appears to be a %s image (MRI probability: %.1f%%); upload an MRI brain scan for tumor analysis",
			kind, d.MRIProbability*100,
		)
	}
	if d.Message != "" {
		return d.Message
	}
	return d.Error
}

func containsInvalidImageType(s string) bool {
	return strings.Contains(s, "Invalid image type")
}
