package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
)

// TileClient fetches rendered tiles from a remote tile service.
type TileClient struct {
	conn *grpc.ClientConn
	addr string
}

// NewTileClient connects lazily to addr. Extra options are appended to the
// defaults.
func NewTileClient(addr string, opts ...grpc.DialOption) (*TileClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(
			keepalive.ClientParameters{
				Time:                30 * time.Second,
				Timeout:             5 * time.Second,
				PermitWithoutStream: true,
			},
		),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tile service: %w", err)
	}
	return &TileClient{conn: conn, addr: addr}, nil
}

// RenderTile returns the PNG encoded tile. A non-positive iterations value
// leaves the budget to the server's current view.
func (c *TileClient) RenderTile(ctx context.Context, tile core.TileCoords, iterations int) ([]byte, error) {
	fields := map[string]any{
		"x": tile.X,
		"y": tile.Y,
		"z": tile.Z,
	}
	if iterations > 0 {
		fields["iterations"] = iterations
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build tile request: %w", err)
	}

	resp := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, renderTileMethod, req, resp); err != nil {
		return nil, fmt.Errorf("failed to render tile %d/%d/%d: %w", tile.Z, tile.X, tile.Y, err)
	}
	return resp.GetValue(), nil
}

func (c *TileClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
