package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/varenhold/scriven/internal/observe"
	"github.com/varenhold/scriven/internal/registry"
	"github.com/varenhold/scriven/pkg/event"
)

// handleStream upgrades the connection and ingests events as they happen in
// the front-end editor: each text frame carries one tagged-envelope event.
// The session stays alive when the socket closes — the client finalizes (or
// abandons) it over plain HTTP afterwards.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, err := registry.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Reject unknown sessions before the upgrade so the client gets a clean
	// 404 instead of an immediate close frame.
	if _, err := s.registry.Preview(id, ""); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The Origin header is not checked: any origin may open the stream.
		// The CORS middleware only sets response headers and does not
		// reject requests.
		InsecureSkipVerify: true,
	})
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()
	log := observe.Logger(ctx).With("session", id.String())
	log.Debug("event stream opened")

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				log.Debug("event stream closed")
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			log.Warn("event stream read failed", "err", err)
			return
		}
		if msgType != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "text frames only")
			return
		}

		e, err := event.Unmarshal(data)
		if err != nil {
			conn.Close(websocket.StatusInvalidFramePayloadData, err.Error())
			return
		}
		if err := s.registry.Push(id, e); err != nil {
			// The session was finalized out from under the stream.
			conn.Close(websocket.StatusPolicyViolation, "session gone")
			return
		}
		s.metrics.EventsIngested.Add(ctx, 1,
			metric.WithAttributes(attribute.String("type", string(e.Kind()))))
	}
}
