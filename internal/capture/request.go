package capture

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/raysh454/pageshot/internal/utils"
)

const (
	msgInvalidURL      = "please provide a valid URL"
	msgInvalidWaitTime = "please provide a valid wait time (milliseconds)"
)

// MaxWaitTimeMs is the largest waitTime the API accepts.
const MaxWaitTimeMs = math.MaxInt32

// CaptureRequest is one validated capture call.
type CaptureRequest struct {
	URL    string
	Device Device

	// WaitTime is an extra pause after auto-scrolling. Zero skips it.
	WaitTime time.Duration
}

// RawCaptureRequest is the body of POST /api/capture before validation.
// Fields stay raw so type mistakes can be reported per field.
type RawCaptureRequest struct {
	URL      json.RawMessage `json:"url"`
	Device   json.RawMessage `json:"device"`
	WaitTime json.RawMessage `json:"waitTime"`
}

// ValidationError describes one rejected field.
type ValidationError struct {
	Type     string `json:"type"`
	Value    any    `json:"value,omitempty"`
	Msg      string `json:"msg"`
	Path     string `json:"path,omitempty"`
	Location string `json:"location"`
}

// ValidationErrors is returned when a request fails validation.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		if e.Path != "" {
			parts = append(parts, e.Path+": "+e.Msg)
		} else {
			parts = append(parts, e.Msg)
		}
	}
	return "invalid capture request: " + strings.Join(parts, "; ")
}

// Has reports whether a field error for path is present.
func (v ValidationErrors) Has(path string) bool {
	for _, e := range v {
		if e.Path == path {
			return true
		}
	}
	return false
}

func fieldError(path, msg string, value any) ValidationError {
	return ValidationError{Type: "field", Value: value, Msg: msg, Path: path, Location: "body"}
}

// BodyError reports a body that could not be decoded at all.
func BodyError(msg string) ValidationErrors {
	return ValidationErrors{{Type: "body", Msg: msg, Location: "body"}}
}

// ParseCaptureRequest validates raw and converts it into a CaptureRequest.
// Every field is checked so callers get the full list of problems at once.
func ParseCaptureRequest(raw RawCaptureRequest) (*CaptureRequest, ValidationErrors) {
	var errs ValidationErrors
	req := &CaptureRequest{Device: DeviceDesktop}

	if u, ok := decodeString(raw.URL); !ok || !utils.IsAbsoluteURL(u) {
		errs = append(errs, fieldError("url", msgInvalidURL, decodeAny(raw.URL)))
	} else {
		req.URL = strings.TrimSpace(u)
	}

	// Anything other than a mobile device name gets the desktop profile.
	if d, ok := decodeString(raw.Device); ok {
		req.Device = NormalizeDevice(Device(d))
	}

	if !isNull(raw.WaitTime) {
		ms, ok := parseWaitTime(raw.WaitTime)
		if !ok {
			errs = append(errs, fieldError("waitTime", msgInvalidWaitTime, decodeAny(raw.WaitTime)))
		} else {
			req.WaitTime = time.Duration(ms) * time.Millisecond
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return req, nil
}

// Validate checks a request built in code rather than decoded from JSON.
func (r *CaptureRequest) Validate() ValidationErrors {
	var errs ValidationErrors
	if r == nil {
		return BodyError("missing capture request")
	}
	if !utils.IsAbsoluteURL(r.URL) {
		errs = append(errs, fieldError("url", msgInvalidURL, r.URL))
	}
	if r.WaitTime < 0 {
		errs = append(errs, fieldError("waitTime", msgInvalidWaitTime, r.WaitTime.Milliseconds()))
	}
	return errs
}

var intPattern = regexp.MustCompile(`^[-+]?(?:0|[1-9][0-9]*)$`)

// parseWaitTime accepts a JSON integer (integral floats included) or a
// string holding an integer. Negative values are rejected.
func parseWaitTime(raw json.RawMessage) (int64, bool) {
	v := decodeAny(raw)
	var n int64
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			n = i
		} else {
			f, err := t.Float64()
			if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) || f > MaxWaitTimeMs {
				return 0, false
			}
			n = int64(f)
		}
	case string:
		if !intPattern.MatchString(t) {
			return 0, false
		}
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		n = i
	default:
		return 0, false
	}
	if n < 0 || n > MaxWaitTimeMs {
		return 0, false
	}
	return n, true
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeAny returns raw as a generic value for error reporting. Numbers
// keep their literal form.
func decodeAny(raw json.RawMessage) any {
	if isNull(raw) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
