package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
	"github.com/nemanja-m/gomandel/internal/scheduler/service"
	"github.com/nemanja-m/gomandel/internal/shared/config"
	"github.com/nemanja-m/gomandel/internal/shared/logging"
	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

// Renderer is the part of the scheduler the HTTP API drives.
type Renderer interface {
	RenderTile(t core.TileCoords, iterations int) (*service.Pending, error)
	RenderFrame(size core.Size) (*service.Pending, error)
	CurrentFrame(size core.Size) *service.Pending
	Cancel(id uuid.UUID, cause error) bool
	View() core.ViewState
	SetView(state core.ViewState) (*service.Pending, error)
	ApplyHash(hash string) (*service.Pending, error)
	Pan(delta mandelbrot.Complex) (*service.Pending, error)
	Zoom(factor float64, focus mandelbrot.Complex) (*service.Pending, error)
	SetIterations(n int) (*service.Pending, error)
	MultiplyIterations(f float64) (*service.Pending, error)
	Focus(c mandelbrot.Complex)
	Probe(p core.Coords, size core.Size) service.Probe
	Generation() uint64
	Stats() service.Stats
}

type API struct {
	renderer Renderer
	canvas   core.Size
	logger   logging.Logger
}

// NewAPI serves renderer. canvas is the frame size used when a request does
// not name one.
func NewAPI(renderer Renderer, canvas core.Size, logger logging.Logger) *API {
	return &API{
		renderer: renderer,
		canvas:   canvas,
		logger:   logger,
	}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /tiles/{z}/{x}/{y}", a.getTile)
	mux.HandleFunc("GET /api/frame", a.getFrame)
	mux.HandleFunc("GET /api/view", a.getView)
	mux.HandleFunc("PUT /api/view", a.setView)
	mux.HandleFunc("POST /api/view/pan", a.pan)
	mux.HandleFunc("POST /api/view/zoom", a.zoom)
	mux.HandleFunc("POST /api/view/iterations", a.setIterations)
	mux.HandleFunc("POST /api/view/iterations/increase", a.scaleIterations(2))
	mux.HandleFunc("POST /api/view/iterations/decrease", a.scaleIterations(0.5))
	mux.HandleFunc("POST /api/view/focus", a.focus)
	mux.HandleFunc("GET /api/point", a.getPoint)
	mux.HandleFunc("GET /api/stats", a.getStats)
}

// getTile handles GET /tiles/{z}/{x}/{y}[.png]
func (a *API) getTile(w http.ResponseWriter, r *http.Request) {
	var tile core.TileCoords
	var err error
	if tile.Z, err = strconv.Atoi(r.PathValue("z")); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid zoom level", err.Error())
		return
	}
	if tile.X, err = strconv.Atoi(r.PathValue("x")); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid tile column", err.Error())
		return
	}
	if tile.Y, err = strconv.Atoi(strings.TrimSuffix(r.PathValue("y"), ".png")); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid tile row", err.Error())
		return
	}

	iterations := a.renderer.View().Iterations
	if s := r.URL.Query().Get("iterations"); s != "" {
		if iterations, err = core.ParseIterations(s); err != nil {
			a.respondError(w, http.StatusBadRequest, "invalid iterations", err.Error())
			return
		}
	}

	pending, err := a.renderer.RenderTile(tile, iterations)
	if err != nil {
		a.respondError(w, statusFor(err), "tile render failed", err.Error())
		return
	}
	a.respondImage(w, r, pending)
}

// getFrame handles GET /api/frame?width=&height=
func (a *API) getFrame(w http.ResponseWriter, r *http.Request) {
	size, err := a.parseSize(r)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid frame size", err.Error())
		return
	}

	pending := a.renderer.CurrentFrame(size)
	if pending == nil {
		if pending, err = a.renderer.RenderFrame(size); err != nil {
			a.respondError(w, statusFor(err), "frame render failed", err.Error())
			return
		}
	}
	a.respondImage(w, r, pending)
}

func (a *API) getView(w http.ResponseWriter, r *http.Request) {
	a.respondView(w)
}

// setView handles PUT /api/view
func (a *API) setView(w http.ResponseWriter, r *http.Request) {
	var req SetViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	var err error
	if req.Hash != "" {
		_, err = a.renderer.ApplyHash(req.Hash)
		if err != nil {
			a.logger.Warn("Ignoring invalid view hash", "hash", req.Hash, "error", err)
		}
	} else {
		var state core.ViewState
		if state, err = req.ToViewState(a.renderer.View()); err == nil {
			_, err = a.renderer.SetView(state)
		}
	}
	if err != nil {
		a.respondError(w, statusFor(err), "view update failed", err.Error())
		return
	}
	a.respondView(w)
}

func (a *API) pan(w http.ResponseWriter, r *http.Request) {
	var req PanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	a.applyView(w, func() error {
		_, err := a.renderer.Pan(mandelbrot.Complex{Real: req.Real, Imag: req.Imag})
		return err
	})
}

func (a *API) zoom(w http.ResponseWriter, r *http.Request) {
	var req ZoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	focus := a.renderer.View().Centre
	if req.Real != nil {
		focus.Real = *req.Real
	}
	if req.Imag != nil {
		focus.Imag = *req.Imag
	}
	a.applyView(w, func() error {
		_, err := a.renderer.Zoom(req.Factor, focus)
		return err
	})
}

func (a *API) setIterations(w http.ResponseWriter, r *http.Request) {
	var req IterationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	n, err := parseIterations(req.Iterations)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid iterations", err.Error())
		return
	}
	a.applyView(w, func() error {
		_, err := a.renderer.SetIterations(n)
		return err
	})
}

func (a *API) scaleIterations(factor float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.applyView(w, func() error {
			_, err := a.renderer.MultiplyIterations(factor)
			return err
		})
	}
}

func (a *API) focus(w http.ResponseWriter, r *http.Request) {
	var req FocusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	a.renderer.Focus(mandelbrot.Complex{Real: req.Real, Imag: req.Imag})
	w.WriteHeader(http.StatusNoContent)
}

// getPoint handles GET /api/point?x=&y=&width=&height=
func (a *API) getPoint(w http.ResponseWriter, r *http.Request) {
	size, err := a.parseSize(r)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid canvas size", err.Error())
		return
	}
	query := r.URL.Query()
	x, errX := strconv.Atoi(query.Get("x"))
	y, errY := strconv.Atoi(query.Get("y"))
	if err := errors.Join(errX, errY); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid pixel coordinates", err.Error())
		return
	}

	probe := a.renderer.Probe(core.Coords{X: x, Y: y}, size)
	a.respondJSON(w, http.StatusOK, ToPointResponse(probe))
}

func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, ToStatsResponse(a.renderer.Stats()))
}

func (a *API) applyView(w http.ResponseWriter, fn func() error) {
	if err := fn(); err != nil {
		a.respondError(w, statusFor(err), "view update failed", err.Error())
		return
	}
	a.respondView(w)
}

func (a *API) respondView(w http.ResponseWriter) {
	a.respondJSON(w, http.StatusOK, ToViewResponse(a.renderer.View(), a.renderer.Generation()))
}

// parseSize reads width and height, falling back to the canvas size.
func (a *API) parseSize(r *http.Request) (core.Size, error) {
	size := a.canvas
	query := r.URL.Query()
	if s := query.Get("width"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return core.Size{}, err
		}
		size.Width = n
	}
	if s := query.Get("height"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return core.Size{}, err
		}
		size.Height = n
	}
	if !size.Valid() {
		return core.Size{}, fmt.Errorf("size %dx%d must be positive", size.Width, size.Height)
	}
	return size, nil
}

// respondImage waits for pending and writes it as PNG. A client that goes
// away cancels the request.
func (a *API) respondImage(w http.ResponseWriter, r *http.Request, pending *service.Pending) {
	img, err := pending.Wait(r.Context())
	if err != nil {
		if ctxErr := r.Context().Err(); ctxErr != nil {
			a.renderer.Cancel(pending.ID(), ctxErr)
		}
		a.respondError(w, statusFor(err), "render failed", err.Error())
		return
	}

	var buf bytes.Buffer
	if err := encodePNG(&buf, img); err != nil {
		a.respondError(w, http.StatusInternalServerError, "encoding failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func encodePNG(buf *bytes.Buffer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(buf, img)
}

func (a *API) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (a *API) respondError(w http.ResponseWriter, statusCode int, error string, message string) {
	resp := ErrorResponse{
		Error:   error,
		Message: message,
		Code:    statusCode,
	}
	a.respondJSON(w, statusCode, resp)
}

// NewServer builds the HTTP server. gatherer, when set, is exposed on /metrics.
func NewServer(
	cfg config.HTTPConfig,
	renderer Renderer,
	canvas core.Size,
	gatherer prometheus.Gatherer,
	logger logging.Logger,
) *http.Server {
	api := NewAPI(renderer, canvas, logger)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	handler := ChainMiddleware(
		mux,
		RequestIDMiddleware,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
