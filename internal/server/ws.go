package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/logging"
)

const (
	wsReadTimeout  = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// wsConn serializes writes and stops writing after the first failure.
type wsConn struct {
	conn   *websocket.Conn
	log    logging.Logger
	broken bool
}

func (c *wsConn) writeJSON(v any) {
	if c.broken {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteJSON(v); err != nil {
		c.broken = true
		c.log.Warn("writing websocket message", logging.Err(err))
	}
}

func (c *wsConn) writeBinary(b []byte) {
	if c.broken {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		c.broken = true
		c.log.Warn("writing websocket screenshot", logging.Err(err))
	}
}

func (c *wsConn) close(code int, reason string) {
	if !c.broken {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
	}
	_ = c.conn.Close()
}

// handleCaptureWS reads one capture request, streams stage events and ends
// with the PNG as a binary frame.
func (s *Server) handleCaptureWS(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r.Context(), s.logger)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("upgrading to websocket", logging.Err(err))
		return
	}
	conn.SetReadLimit(s.cfg.MaxBodyBytes)
	c := &wsConn{conn: conn, log: log}

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		log.Warn("reading websocket capture request", logging.Err(err))
		c.broken = true
		c.close(websocket.CloseNormalClosure, "")
		return
	}

	var raw capture.RawCaptureRequest
	var req *capture.CaptureRequest
	var verrs capture.ValidationErrors
	if err := json.Unmarshal(payload, &raw); err != nil {
		verrs = capture.BodyError("request body must be a JSON object")
	} else {
		req, verrs = capture.ParseCaptureRequest(raw)
	}
	if len(verrs) > 0 {
		log.Warn("rejected capture request", logging.Field{Key: "errors", Value: verrs.Error()})
		c.writeJSON(WSMessage{Type: WSTypeInvalid, Errors: verrs})
		c.close(websocket.ClosePolicyViolation, "invalid request")
		return
	}

	progress := func(st capture.Stage) {
		c.writeJSON(WSMessage{Type: WSTypeStage, Stage: st})
	}

	res, err := s.orchestrator.CaptureWithProgress(context.WithoutCancel(r.Context()), req, progress)
	if err != nil {
		var ve capture.ValidationErrors
		if errors.As(err, &ve) {
			c.writeJSON(WSMessage{Type: WSTypeInvalid, Errors: ve})
			c.close(websocket.ClosePolicyViolation, "invalid request")
			return
		}
		c.writeJSON(WSMessage{Type: WSTypeError, Error: capture.GenericFailureMessage})
		c.close(websocket.CloseInternalServerErr, "capture failed")
		return
	}

	c.writeBinary(res.Image)
	c.close(websocket.CloseNormalClosure, "")
}
