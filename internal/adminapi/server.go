package adminapi

import (
	"context"
)

// StatusSource is implemented by the bridge Gateway; it keeps adminapi
// decoupled from the bridge package's internals (and avoids an import
// cycle, since bridge publishes events into this package's Hub).
type StatusSource interface {
	AdminStatus() StatusResponse
}

// Server implements DiagnosticsServer over a StatusSource snapshot
// function and a Hub of live events.
type Server struct {
	source StatusSource
	hub    *Hub
}

// NewServer builds a Server. hub may be shared with the component that
// publishes events (typically bridge.Gateway).
func NewServer(source StatusSource, hub *Hub) *Server {
	return &Server{source: source, hub: hub}
}

func (s *Server) GetStatus(ctx context.Context, _ *StatusRequest) (*StatusResponse, error) {
	status := s.source.AdminStatus()
	return &status, nil
}

func (s *Server) StreamEvents(_ *StreamEventsRequest, stream DiagnosticsStreamEventsServer) error {
	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.Send(e); err != nil {
				return err
			}
		}
	}
}
