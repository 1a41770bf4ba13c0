package grpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"math"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
	"github.com/nemanja-m/gomandel/internal/scheduler/service"
	"github.com/nemanja-m/gomandel/internal/shared/logging"
)

// TileRenderer is the part of the scheduler the tile service needs.
type TileRenderer interface {
	RenderTile(t core.TileCoords, iterations int) (*service.Pending, error)
	Cancel(id uuid.UUID, cause error) bool
	View() core.ViewState
}

type TileService struct {
	renderer TileRenderer
	logger   logging.Logger
}

func NewTileService(renderer TileRenderer, logger logging.Logger) *TileService {
	return &TileService{
		renderer: renderer,
		logger:   logger,
	}
}

func (s *TileService) RenderTile(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	tile, iterations, err := s.parseRequest(req)
	if err != nil {
		s.logger.Debug("Invalid tile request", "error", err)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	pending, err := s.renderer.RenderTile(tile, iterations)
	if err != nil {
		return nil, toStatus(err)
	}

	img, err := pending.Wait(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.renderer.Cancel(pending.ID(), ctxErr)
			return nil, status.FromContextError(ctxErr).Err()
		}
		s.logger.Warn("Tile render failed",
			"z", tile.Z, "x", tile.X, "y", tile.Y,
			"iterations", iterations,
			"error", err,
		)
		return nil, toStatus(err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding tile: %v", err)
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

func (s *TileService) parseRequest(req *structpb.Struct) (core.TileCoords, int, error) {
	fields := req.GetFields()
	var tile core.TileCoords
	var err error
	if tile.X, err = intField(fields, "x"); err != nil {
		return core.TileCoords{}, 0, err
	}
	if tile.Y, err = intField(fields, "y"); err != nil {
		return core.TileCoords{}, 0, err
	}
	if tile.Z, err = intField(fields, "z"); err != nil {
		return core.TileCoords{}, 0, err
	}

	iterations := s.renderer.View().Iterations
	if _, ok := fields["iterations"]; ok {
		if iterations, err = intField(fields, "iterations"); err != nil {
			return core.TileCoords{}, 0, err
		}
	}
	return tile, iterations, nil
}

func intField(fields map[string]*structpb.Value, name string) (int, error) {
	v, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("missing field %q", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("field %q must be a number", name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("field %q must be an integer, got %v", name, f)
	}
	return int(f), nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, core.ErrInvalidIterations),
		errors.Is(err, core.ErrInvalidZoom),
		errors.Is(err, core.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, core.ErrSuperseded):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, core.ErrWorkerFailed):
		return status.Error(codes.Internal, err.Error())
	case errors.Is(err, core.ErrClosed), errors.Is(err, core.ErrPoolClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}
