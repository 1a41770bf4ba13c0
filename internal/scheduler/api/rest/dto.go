package rest

import "encoding/json"

type ViewResponse struct {
	Real       float64 `json:"real"`
	Imag       float64 `json:"imag"`
	Zoom       float64 `json:"zoom"`
	Iterations int     `json:"iterations"`
	Hash       string  `json:"hash"`
	Generation uint64  `json:"generation"`
}

// SetViewRequest replaces the view. Hash, when set, takes precedence over
// the individual fields; omitted fields keep their current value.
type SetViewRequest struct {
	Hash       string          `json:"hash,omitempty"`
	Real       *float64        `json:"real,omitempty"`
	Imag       *float64        `json:"imag,omitempty"`
	Zoom       *float64        `json:"zoom,omitempty"`
	Iterations json.RawMessage `json:"iterations,omitempty"`
}

// PanRequest moves the centre by a plane offset.
type PanRequest struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

// ZoomRequest multiplies the zoom by Factor and recentres on the focus point.
// Without a focus the centre is kept.
type ZoomRequest struct {
	Factor float64  `json:"factor"`
	Real   *float64 `json:"real,omitempty"`
	Imag   *float64 `json:"imag,omitempty"`
}

// IterationsRequest accepts the budget as a JSON number or a decimal string.
type IterationsRequest struct {
	Iterations json.RawMessage `json:"iterations"`
}

type FocusRequest struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imag"`
}

type PointResponse struct {
	Real       float64 `json:"real"`
	Imag       float64 `json:"imag"`
	Iterations int     `json:"iterations"`
	Formatted  string  `json:"formatted"`
}

type StatsResponse struct {
	Workers     int    `json:"workers"`
	Idle        int    `json:"idle"`
	Posted      int    `json:"posted"`
	Pending     int    `json:"pending"`
	Generation  uint64 `json:"generation"`
	Requests    int    `json:"requests"`
	TrackedJobs int    `json:"tracked_jobs"`
	CachedTiles int    `json:"cached_tiles"`
	Hash        string `json:"hash"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
