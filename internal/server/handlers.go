package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/logging"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>Screenshot service</title></head>
<body>
<h1>Screenshot service</h1>
<p>Send a POST request to <code>/api/capture</code> with a JSON body such as
<code>{"url":"https://example.com","device":"desktop","waitTime":0}</code> to get a full-page PNG.</p>
<p>Streaming progress is available on <code>/ws/capture</code>. API docs: <a href="/swagger/index.html">/swagger/</a>.</p>
</body>
</html>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(indexHTML))
}

// handleHealth godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleCapture godoc
// @Summary Capture a full-page screenshot
// @Description Loads the URL in a fresh headless browser, scrolls so lazy content loads, and returns the whole page as PNG.
// @Tags capture
// @Accept json
// @Produce png
// @Param request body CaptureRequestBody true "Capture request"
// @Success 200 {file} binary
// @Failure 400 {object} ValidationErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/capture [post]
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r.Context(), s.logger)

	req, verrs := decodeCaptureRequest(r)
	if len(verrs) > 0 {
		log.Warn("rejected capture request", logging.Field{Key: "errors", Value: verrs.Error()})
		writeValidation(w, verrs)
		return
	}

	// The capture runs to completion even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	res, err := s.orchestrator.Capture(ctx, req)
	if err != nil {
		var ve capture.ValidationErrors
		if errors.As(err, &ve) {
			writeValidation(w, ve)
			return
		}
		writeError(w, http.StatusInternalServerError, capture.GenericFailureMessage)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Image); err != nil {
		log.Warn("writing screenshot response", logging.Err(err))
	}
}

// decodeCaptureRequest reads and validates one JSON capture request.
func decodeCaptureRequest(r *http.Request) (*capture.CaptureRequest, capture.ValidationErrors) {
	var raw capture.RawCaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, capture.BodyError("request body too large")
		}
		return nil, capture.BodyError("request body must be a JSON object")
	}
	return capture.ParseCaptureRequest(raw)
}
