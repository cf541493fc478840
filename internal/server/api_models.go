package server

import "github.com/raysh454/pageshot/internal/capture"

// CaptureRequestBody is the payload of POST /api/capture and the first
// message on /ws/capture.
type CaptureRequestBody struct {
	URL      string `json:"url" example:"https://example.com"`
	Device   string `json:"device,omitempty" enums:"desktop,mobile" example:"mobile"`
	WaitTime int    `json:"waitTime,omitempty" example:"1000"`
}

// ValidationErrorResponse lists every rejected field.
type ValidationErrorResponse struct {
	Errors []capture.ValidationError `json:"errors"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"failed to capture screenshot, please try again later"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// Websocket message types.
const (
	WSTypeStage   = "stage"
	WSTypeError   = "error"
	WSTypeInvalid = "invalid"
)

// WSMessage is a text frame sent on /ws/capture. A successful capture ends
// with one binary frame holding the PNG instead.
type WSMessage struct {
	Type   string                    `json:"type"`
	Stage  capture.Stage             `json:"stage,omitempty"`
	Error  string                    `json:"error,omitempty"`
	Errors []capture.ValidationError `json:"errors,omitempty"`
}
