package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
	"github.com/nemanja-m/gomandel/internal/scheduler/service"
)

func ToViewResponse(state core.ViewState, generation uint64) ViewResponse {
	return ViewResponse{
		Real:       state.Centre.Real,
		Imag:       state.Centre.Imag,
		Zoom:       state.Zoom,
		Iterations: state.Iterations,
		Hash:       core.FormatViewHash(state),
		Generation: generation,
	}
}

// ToViewState merges req into current. The result is not validated.
func (req *SetViewRequest) ToViewState(current core.ViewState) (core.ViewState, error) {
	state := current
	if req.Real != nil {
		state.Centre.Real = *req.Real
	}
	if req.Imag != nil {
		state.Centre.Imag = *req.Imag
	}
	if req.Zoom != nil {
		state.Zoom = *req.Zoom
	}
	if len(req.Iterations) > 0 {
		n, err := parseIterations(req.Iterations)
		if err != nil {
			return core.ViewState{}, err
		}
		state.Iterations = n
	}
	return state, nil
}

func ToPointResponse(p service.Probe) PointResponse {
	return PointResponse{
		Real:       p.Point.Real,
		Imag:       p.Point.Imag,
		Iterations: p.Iterations,
		Formatted:  p.Formatted,
	}
}

func ToStatsResponse(s service.Stats) StatsResponse {
	return StatsResponse{
		Workers:     s.Pool.Workers,
		Idle:        s.Pool.Idle,
		Posted:      s.Pool.Posted,
		Pending:     s.Pool.Pending,
		Generation:  s.Generation,
		Requests:    s.Requests,
		TrackedJobs: s.TrackedJobs,
		CachedTiles: s.CachedTiles,
		Hash:        core.FormatViewHash(s.View),
	}
}

// parseIterations reads a JSON number or a quoted decimal string.
func parseIterations(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("iterations: %w", core.ErrInvalidIterations)
		}
		return core.ParseIterations(s)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("iterations %s: %w", raw, core.ErrInvalidIterations)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d: %w", n, core.ErrInvalidIterations)
	}
	return n, nil
}

// statusFor maps scheduler errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidIterations),
		errors.Is(err, core.ErrInvalidZoom),
		errors.Is(err, core.ErrInvalidView),
		errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, core.ErrWorkerFailed):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrClosed), errors.Is(err, core.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
