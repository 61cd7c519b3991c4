package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/dungeontower/pkg/anneal"
	"github.com/matzehuels/dungeontower/pkg/errors"
	"github.com/matzehuels/dungeontower/pkg/maplayout"
	"github.com/matzehuels/dungeontower/pkg/observability"
	"github.com/matzehuels/dungeontower/pkg/pipeline"
)

// Stream message types.
const (
	MessageEvent  = "event"
	MessageResult = "result"
	MessageError  = "error"
)

// StreamMessage is one server message on the stream endpoint.
type StreamMessage struct {
	Type   string              `json:"type"`
	Event  *anneal.Event       `json:"event,omitempty"`
	ID     string              `json:"id,omitempty"`
	Layout *maplayout.Document `json:"layout,omitempty"`
	Error  *ErrorResponse      `json:"error,omitempty"`
}

// handleStream runs one generation per connection. Every "every"-th
// annealing event is forwarded (default DefaultStreamEvery). Closing the
// connection cancels the generation.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	observability.Server().OnRequest(r.Context(), r.Method, "/v1/stream")
	every, err := intParam(r, "every", DefaultStreamEvery)
	if err != nil || every == 0 {
		every = DefaultStreamEvery
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, err := s.stream(r.Context(), conn, every)
	observability.Server().OnStream(r.Context(), events, err)
	if err != nil {
		_ = conn.WriteJSON(StreamMessage{Type: MessageError, Error: &ErrorResponse{
			Error: errors.UserMessage(err),
			Code:  errors.GetCode(err),
		}})
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn, every int) (int, error) {
	var opts pipeline.Options
	if err := conn.ReadJSON(&opts); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request")
	}
	opts, err := s.prepare(opts)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()

	// The reader only watches for the client going away.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	events := 0
	opts.Observer = func(e anneal.Event) {
		events++
		if events%every == 0 {
			if err := conn.WriteJSON(StreamMessage{Type: MessageEvent, Event: &e}); err != nil {
				cancel()
			}
		}
	}

	res, err := s.runner.Execute(ctx, opts)
	if err != nil {
		return events, err
	}
	return events, conn.WriteJSON(StreamMessage{Type: MessageResult, ID: res.Record.ID, Layout: res.Layout})
}
