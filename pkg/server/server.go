// Package server exposes the facade's HTTP surface: board, flight,
// position, map, and airport endpoints, plus health and metrics. The
// routing layer is thin; all caching decisions live in the board and
// resolver packages.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/flightboard/aeroapi-proxy/pkg/board"
	"github.com/flightboard/aeroapi-proxy/pkg/logging"
	"github.com/flightboard/aeroapi-proxy/pkg/resolver"
	"github.com/flightboard/aeroapi-proxy/pkg/upstream"
)

// Server dispatches inbound requests to the orchestration components.
type Server struct {
	boards   *board.Assembler
	resolver *resolver.Resolver
	logger   zerolog.Logger
}

// New creates a server.
func New(boards *board.Assembler, res *resolver.Resolver) (*Server, error) {
	if boards == nil || res == nil {
		return nil, fmt.Errorf("board assembler and resolver are required")
	}
	return &Server{
		boards:   boards,
		resolver: res,
		logger:   logging.NewLogger("server"),
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /positions/{id}", s.handlePositions)
	mux.HandleFunc("GET /flights/{$}", s.handleRandomFlight)
	mux.HandleFunc("GET /flights/{id}", s.handleFlight)
	mux.HandleFunc("GET /airports/{$}", s.handleBusiestAirports)
	mux.HandleFunc("GET /airports/{code}/arrivals", s.handleBoard(board.KindArrivals))
	mux.HandleFunc("GET /airports/{code}/departures", s.handleBoard(board.KindDepartures))
	mux.HandleFunc("GET /airports/{code}/enroute", s.handleBoard(board.KindEnroute))
	mux.HandleFunc("GET /airports/{code}/scheduledto", s.handleBoard(board.KindEnroute))
	mux.HandleFunc("GET /airports/{code}/scheduled", s.handleBoard(board.KindScheduled))
	mux.HandleFunc("GET /airports/{code}/scheduledfrom", s.handleBoard(board.KindScheduled))
	mux.HandleFunc("GET /map/{id}", s.handleMap)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (s *Server) handleBoard(kind board.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flights, err := s.boards.Board(r.Context(), r.PathValue("code"), kind)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, flights)
	}
}

func (s *Server) handleFlight(w http.ResponseWriter, r *http.Request) {
	flight, err := s.resolver.FlightByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, flight)
}

func (s *Server) handleRandomFlight(w http.ResponseWriter, r *http.Request) {
	flight, err := s.resolver.RandomFlight(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, flight)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.resolver.Positions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, positions)
}

func (s *Server) handleBusiestAirports(w http.ResponseWriter, r *http.Request) {
	airports, err := s.resolver.BusiestAirports(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, airports)
}

// handleMap is the one non-JSON endpoint: the base64 image goes out as
// a raw text body.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	image, err := s.resolver.MapImage(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(image)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write map response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// writeJSON serializes v as the 200 response body. A failed
// serialization is reported as a 500 envelope with the error message,
// never a half-written body.
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("Response serialization failed")
		envelope, _ := json.Marshal(upstream.Envelope{
			Title:  "SerializationError",
			Detail: err.Error(),
			Status: http.StatusInternalServerError,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(envelope)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

// writeError maps orchestration failures to terminal responses: a
// StatusError propagates the upstream status and body verbatim,
// anything else becomes a 500 envelope.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusErr.StatusCode)
		w.Write(statusErr.Body)
		return
	}

	s.logger.Error().Err(err).Msg("Request failed")
	envelope, _ := json.Marshal(upstream.Envelope{
		Title:  "InternalError",
		Detail: err.Error(),
		Status: http.StatusInternalServerError,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write(envelope)
}
