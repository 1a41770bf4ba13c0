package service

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
	"github.com/nemanja-m/gomandel/internal/shared/logging"
	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
	"github.com/nemanja-m/gomandel/pkg/palette"
)

// CancelPolicy decides which in-flight requests survive a view change.
type CancelPolicy string

const (
	// CancelTargeted keeps requests the change does not affect.
	CancelTargeted CancelPolicy = "targeted"
	// CancelClearAll drops every request on any change.
	CancelClearAll CancelPolicy = "clear_all"
)

type requestKind string

const (
	kindFrame  requestKind = "frame"
	kindTile   requestKind = "tile"
	kindRegion requestKind = "region"
)

// Config holds the scheduler's rendering settings.
type Config struct {
	TileSize  int
	Palette   palette.Func
	Policy    CancelPolicy
	AutoFrame bool
	// Canvas is the client's visible size. It bounds targeted cancellation on
	// pan and sizes automatic frame renders.
	Canvas core.Size
}

// RenderRequest describes an image of Size pixels sampling Region.
type RenderRequest struct {
	Region     core.Region
	Size       core.Size
	Iterations int
	Layout     Layout
	// TileSize is the block size for LayoutTiles.
	TileSize int
	// Zoom is the view zoom this request belongs to. Zero means the current
	// viewport zoom.
	Zoom float64
	// OnPaint, if set, is called after each job's pixels are painted.
	OnPaint func(job core.Job, img *image.RGBA)
}

type request struct {
	id         uuid.UUID
	kind       requestKind
	region     core.Region
	size       core.Size
	iterations int
	zoom       float64
	img        *image.RGBA
	counts     []int
	tileKey    core.TileKey
	remaining  map[uint64]struct{}
	pending    *Pending
	onPaint    func(core.Job, *image.RGBA)
	created    time.Time
}

// viewChange records which parts of the view moved.
type viewChange struct {
	iterations bool
	zoom       bool
	centre     bool
}

func (c viewChange) any() bool {
	return c.iterations || c.zoom || c.centre
}

func diffViews(old, next core.ViewState) viewChange {
	return viewChange{
		iterations: old.Iterations != next.Iterations,
		zoom:       old.Zoom != next.Zoom,
		centre:     old.Centre != next.Centre,
	}
}

// Stats is a snapshot of the scheduler and its pool.
type Stats struct {
	Pool        core.PoolStats `json:"pool"`
	Generation  uint64         `json:"generation"`
	Requests    int            `json:"requests"`
	TrackedJobs int            `json:"tracked_jobs"`
	CachedTiles int            `json:"cached_tiles"`
	View        core.ViewState `json:"-"`
}

// Probe describes one canvas pixel.
type Probe struct {
	Point      mandelbrot.Complex
	Iterations int
	Formatted  string
}

// Scheduler turns render requests into pool jobs and assembles their results.
// Lock order is scheduler mutex, then pool mutex; the pool invokes the result
// handler without holding its own mutex.
type Scheduler struct {
	mu         sync.Mutex
	pool       core.WorkerPool
	viewport   *core.Viewport
	cache      core.TileCache
	cfg        Config
	generation uint64
	nextJobID  uint64
	jobs       map[uint64]*request
	requests   map[uuid.UUID]*request
	lastFrame  *Pending
	closed     bool

	metrics *Metrics
	logger  logging.Logger
}

func NewScheduler(
	pool core.WorkerPool,
	viewport *core.Viewport,
	cache core.TileCache,
	cfg Config,
	metrics *Metrics,
	logger logging.Logger,
) (*Scheduler, error) {
	if pool == nil || viewport == nil {
		return nil, errors.New("scheduler needs a pool and a viewport")
	}
	if cfg.TileSize < 1 {
		return nil, fmt.Errorf("tile size must be positive, got %d", cfg.TileSize)
	}
	if !cfg.Canvas.Valid() {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", cfg.Canvas.Width, cfg.Canvas.Height)
	}
	switch cfg.Policy {
	case "":
		cfg.Policy = CancelTargeted
	case CancelTargeted, CancelClearAll:
	default:
		return nil, fmt.Errorf("unknown cancel policy %q", cfg.Policy)
	}
	if cfg.Palette == nil {
		cfg.Palette = palette.HSL
	}
	if cache == nil {
		cache = noopCache{}
	}

	s := &Scheduler{
		pool:     pool,
		viewport: viewport,
		cache:    cache,
		cfg:      cfg,
		jobs:     make(map[uint64]*request),
		requests: make(map[uuid.UUID]*request),
		metrics:  metrics,
		logger:   logger,
	}
	pool.OnResult(s.handleResult)
	return s, nil
}

// RequestRender splits req into jobs for the current generation and submits
// them. The returned Pending settles when every job has been painted or one
// of them failed.
func (s *Scheduler) RequestRender(req RenderRequest) (*Pending, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, core.ErrClosed
	}
	zoom := req.Zoom
	if zoom == 0 {
		zoom = s.viewport.State().Zoom
	}
	r := s.newRequestLocked(kindRegion, req.Region, req.Size, req.Iterations, zoom)
	r.onPaint = req.OnPaint

	layout, tileSize := req.Layout, req.TileSize
	if layout == "" {
		layout = LayoutRows
	}
	var jobs []core.Job
	if layout == LayoutTiles {
		jobs = splitTiles(req.Region, req.Size, tileSize)
	} else {
		jobs = splitRows(req.Region, req.Size)
	}
	if err := s.submitLocked(r, jobs); err != nil {
		return nil, err
	}
	return r.pending, nil
}

// RenderTile renders map tile t. A tile at a different zoom level or iteration
// count than the viewport first moves the viewport there, cancelling work per
// the policy. Cached tiles are returned already resolved.
func (s *Scheduler) RenderTile(t core.TileCoords, iterations int) (*Pending, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("%d: %w", iterations, core.ErrInvalidIterations)
	}
	zoom := core.ZoomForLevel(t.Z)
	if zoom == 0 || zoom > 1e300 || math.IsInf(core.UnitsPerPixel(zoom), 0) {
		return nil, fmt.Errorf("tile zoom level %d: %w", t.Z, core.ErrInvalidZoom)
	}
	region := core.TileRegion(t)
	if !region.Valid() || region.Width() <= 0 || region.Height() <= 0 {
		return nil, fmt.Errorf("tile %d/%d/%d bounds %s: %w", t.Z, t.X, t.Y, region, core.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, core.ErrClosed
	}

	old := s.viewport.State()
	if old.Iterations != iterations || old.Zoom != zoom {
		next := old
		next.Iterations = iterations
		next.Zoom = zoom
		if err := s.viewport.Set(next); err != nil {
			return nil, err
		}
		s.advanceLocked(old, next)
	}

	size := core.Size{Width: s.cfg.TileSize, Height: s.cfg.TileSize}
	key := core.TileKey{Tile: t, Iterations: iterations, TileSize: s.cfg.TileSize}
	if counts, ok := s.cache.Get(key); ok && len(counts) == size.Width*size.Height {
		s.metrics.cache(true)
		s.metrics.request(kindTile, "cached")
		p := newPending(uuid.New(), size)
		p.resolve(s.paintCounts(counts, size, iterations))
		return p, nil
	}
	s.metrics.cache(false)

	r := s.newRequestLocked(kindTile, region, size, iterations, zoom)
	r.counts = make([]int, size.Width*size.Height)
	r.tileKey = key

	job := core.Job{
		Kind:   core.JobKindTile,
		Region: region,
		Width:  size.Width,
		Height: size.Height,
	}
	if err := s.submitLocked(r, []core.Job{job}); err != nil {
		return nil, err
	}
	return r.pending, nil
}

// RenderFrame renders the whole viewport at the given size, one job per row.
func (s *Scheduler) RenderFrame(size core.Size) (*Pending, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("frame size %dx%d: %w", size.Width, size.Height, core.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, core.ErrClosed
	}
	return s.renderFrameLocked(size)
}

func (s *Scheduler) renderFrameLocked(size core.Size) (*Pending, error) {
	state := s.viewport.State()
	region := core.VisibleRegion(state, size)
	r := s.newRequestLocked(kindFrame, region, size, state.Iterations, state.Zoom)
	if err := s.submitLocked(r, splitRows(region, size)); err != nil {
		return nil, err
	}
	s.lastFrame = r.pending
	return r.pending, nil
}

// LastFrame returns the most recently started frame render, or nil.
func (s *Scheduler) LastFrame() *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}

// CurrentFrame returns the last frame render if it has the given size and
// has not been superseded or failed.
func (s *Scheduler) CurrentFrame(size core.Size) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.lastFrame
	if p == nil || p.Size() != size {
		return nil
	}
	if _, running := s.requests[p.ID()]; running {
		return p
	}
	select {
	case <-p.Done():
		if p.err == nil {
			return p
		}
	default:
	}
	return nil
}

func (s *Scheduler) SetIterations(n int) (*Pending, error) {
	return s.mutate(func(v *core.Viewport) error { return v.SetIterations(n) })
}

// MultiplyIterations scales the iteration budget by f (2 to increase, 0.5
// to decrease).
func (s *Scheduler) MultiplyIterations(f float64) (*Pending, error) {
	return s.mutate(func(v *core.Viewport) error {
		_, err := v.MultiplyIterations(f)
		return err
	})
}

func (s *Scheduler) Pan(delta mandelbrot.Complex) (*Pending, error) {
	return s.mutate(func(v *core.Viewport) error { return v.Pan(delta) })
}

// Zoom multiplies the zoom by factor and recentres on focus.
func (s *Scheduler) Zoom(factor float64, focus mandelbrot.Complex) (*Pending, error) {
	return s.mutate(func(v *core.Viewport) error { return v.ZoomBy(factor, focus) })
}

func (s *Scheduler) SetView(state core.ViewState) (*Pending, error) {
	return s.mutate(func(v *core.Viewport) error { return v.Set(state) })
}

// ApplyHash sets the view from a "#real,imag,zoom,iterations" hash. An
// invalid hash leaves the view untouched.
func (s *Scheduler) ApplyHash(hash string) (*Pending, error) {
	state, err := core.ParseViewHash(hash)
	if err != nil {
		return nil, err
	}
	return s.SetView(state)
}

// View returns the current view state.
func (s *Scheduler) View() core.ViewState {
	return s.viewport.State()
}

// mutate applies fn to the viewport. If the view changed the generation is
// bumped and stale work cancelled before any new job is submitted. With
// AutoFrame a fresh frame render is returned.
func (s *Scheduler) mutate(fn func(*core.Viewport) error) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, core.ErrClosed
	}

	old := s.viewport.State()
	if err := fn(s.viewport); err != nil {
		return nil, err
	}
	next := s.viewport.State()
	if !diffViews(old, next).any() {
		if s.cfg.AutoFrame {
			return s.lastFrame, nil
		}
		return nil, nil
	}

	s.advanceLocked(old, next)
	if !s.cfg.AutoFrame {
		return nil, nil
	}
	return s.renderFrameLocked(s.cfg.Canvas)
}

// Focus sets the point pending jobs are prioritised around.
func (s *Scheduler) Focus(c mandelbrot.Complex) {
	s.pool.SetFocus(c)
}

// Cancel abandons a request. Its queued jobs are removed and its Pending
// fails with cause. It reports whether the request was still running.
func (s *Scheduler) Cancel(id uuid.UUID, cause error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return false
	}
	s.dropRequestJobsLocked(r)
	s.forgetLocked(r)
	r.pending.fail(cause)
	s.metrics.request(r.kind, "cancelled")
	s.logger.Debug("Render request cancelled", "request_id", id.String(), "cause", cause)
	return true
}

// Probe maps a canvas pixel to the plane and runs the kernel on it.
func (s *Scheduler) Probe(p core.Coords, size core.Size) Probe {
	state := s.viewport.State()
	c := core.PixelToComplex(p, state, size)
	return Probe{
		Point:      c,
		Iterations: mandelbrot.IterateFast(c, state.Iterations),
		Formatted:  core.FormatComplex(c, state.Zoom),
	}
}

func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Pool:        s.pool.Stats(),
		Generation:  s.generation,
		Requests:    len(s.requests),
		TrackedJobs: len(s.jobs),
		CachedTiles: s.cache.Len(),
		View:        s.viewport.State(),
	}
}

// Close fails every running request and drops queued work. Later calls
// return core.ErrClosed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.pool.CancelAll()
	s.pool.Discard(func(*core.Job) bool { return true })
	for _, r := range s.requests {
		s.forgetLocked(r)
		r.pending.fail(core.ErrClosed)
	}
}

func (s *Scheduler) newRequestLocked(kind requestKind, region core.Region, size core.Size, iterations int, zoom float64) *request {
	id := uuid.New()
	return &request{
		id:         id,
		kind:       kind,
		region:     region,
		size:       size,
		iterations: iterations,
		zoom:       zoom,
		img:        image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)),
		remaining:  make(map[uint64]struct{}),
		pending:    newPending(id, size),
		created:    time.Now(),
	}
}

// submitLocked tags jobs with ids and the current generation, registers them
// under r and hands them to the pool. On failure every job of r already in
// the pool is withdrawn.
func (s *Scheduler) submitLocked(r *request, jobs []core.Job) error {
	now := time.Now()
	for i := range jobs {
		s.nextJobID++
		jobs[i].ID = s.nextJobID
		jobs[i].Generation = s.generation
		jobs[i].RequestID = r.id
		jobs[i].Iterations = r.iterations
		jobs[i].Zoom = r.zoom
		jobs[i].SubmittedAt = now
		s.jobs[jobs[i].ID] = r
		r.remaining[jobs[i].ID] = struct{}{}
	}
	s.requests[r.id] = r

	for i := range jobs {
		if err := s.pool.Submit(&jobs[i]); err != nil {
			s.dropRequestJobsLocked(r)
			s.forgetLocked(r)
			r.pending.fail(err)
			s.metrics.request(r.kind, "failed")
			return fmt.Errorf("error submitting job %d: %w", jobs[i].ID, err)
		}
	}

	s.logger.Debug("Render request submitted",
		"request_id", r.id.String(),
		"kind", string(r.kind),
		"jobs", len(jobs),
		"generation", s.generation,
	)
	return nil
}

// advanceLocked bumps the generation and cancels requests the change from old
// to next invalidates. Survivors are retagged with the new generation.
func (s *Scheduler) advanceLocked(old, next core.ViewState) {
	change := diffViews(old, next)
	s.generation++
	generation := s.generation

	visible := core.VisibleRegion(next, s.cfg.Canvas).
		Expand(float64(s.cfg.TileSize) * core.UnitsPerPixel(next.Zoom))

	kept := make(map[uuid.UUID]bool, len(s.requests))
	var dropped []*request
	for id, r := range s.requests {
		if s.keepLocked(r, change, next, visible) {
			kept[id] = true
		} else {
			dropped = append(dropped, r)
		}
	}

	cancelled := s.pool.Advance(generation, func(j *core.Job) bool {
		return kept[j.RequestID]
	})
	for _, r := range dropped {
		s.forgetLocked(r)
		r.pending.fail(core.ErrSuperseded)
		s.metrics.request(r.kind, "superseded")
	}

	s.metrics.generation(generation)
	s.logger.Info("View changed",
		"generation", generation,
		"hash", core.FormatViewHash(next),
		"kept_requests", len(kept),
		"dropped_requests", len(dropped),
		"cancelled_jobs", cancelled,
	)
}

func (s *Scheduler) keepLocked(r *request, change viewChange, next core.ViewState, visible core.Region) bool {
	if s.cfg.Policy == CancelClearAll || r.kind == kindFrame {
		return false
	}
	if change.iterations && r.iterations != next.Iterations {
		return false
	}
	if change.zoom && r.zoom != next.Zoom {
		return false
	}
	if change.centre && !r.region.Intersects(visible) {
		return false
	}
	return true
}

// dropRequestJobsLocked removes the queued jobs of r and discards its posted ones.
func (s *Scheduler) dropRequestJobsLocked(r *request) {
	match := func(j *core.Job) bool { return j.RequestID == r.id }
	s.pool.CancelWhere(match)
	s.pool.Discard(match)
}

func (s *Scheduler) forgetLocked(r *request) {
	for id := range r.remaining {
		delete(s.jobs, id)
	}
	clear(r.remaining)
	delete(s.requests, r.id)
}

// handleResult runs on the pool's collector goroutine, one call at a time.
func (s *Scheduler) handleResult(result core.JobResult, job core.Job) {
	s.mu.Lock()

	r, ok := s.jobs[result.JobID]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("Dropped result for untracked job", "job_id", result.JobID)
		return
	}

	if result.Err != nil {
		s.dropRequestJobsLocked(r)
		s.forgetLocked(r)
		s.mu.Unlock()

		s.metrics.request(r.kind, "failed")
		s.logger.Error("Render request failed",
			"request_id", r.id.String(),
			"job_id", job.ID,
			"error", result.Err,
		)
		r.pending.fail(result.Err)
		return
	}

	delete(s.jobs, result.JobID)
	delete(r.remaining, result.JobID)
	s.paintLocked(r, job, result.Counts)

	done := len(r.remaining) == 0
	if done {
		delete(s.requests, r.id)
		if r.kind == kindTile {
			s.cache.Put(r.tileKey, r.counts)
		}
	}
	s.mu.Unlock()

	if r.onPaint != nil {
		r.onPaint(job, r.img)
	}
	if done {
		s.metrics.request(r.kind, "completed")
		s.logger.Debug("Render request completed",
			"request_id", r.id.String(),
			"kind", string(r.kind),
			"elapsed", time.Since(r.created),
		)
		r.pending.resolve(r.img)
	}
}

func (s *Scheduler) paintLocked(r *request, job core.Job, counts []int) {
	for i, count := range counts {
		x := job.Offset.X + i%job.Width
		y := job.Offset.Y + i/job.Width
		r.img.SetRGBA(x, y, s.cfg.Palette(count, job.Iterations))
		if r.counts != nil {
			r.counts[y*r.size.Width+x] = count
		}
	}
}

func (s *Scheduler) paintCounts(counts []int, size core.Size, iterations int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	for i, count := range counts {
		img.SetRGBA(i%size.Width, i/size.Width, s.cfg.Palette(count, iterations))
	}
	return img
}

func validateRequest(req RenderRequest) error {
	if !req.Size.Valid() {
		return fmt.Errorf("size %dx%d: %w", req.Size.Width, req.Size.Height, core.ErrInvalidRequest)
	}
	if req.Iterations < 1 {
		return fmt.Errorf("%d: %w", req.Iterations, core.ErrInvalidIterations)
	}
	if !req.Region.Valid() {
		return fmt.Errorf("region %s: %w", req.Region, core.ErrInvalidRequest)
	}
	switch req.Layout {
	case "", LayoutRows:
	case LayoutTiles:
		if req.TileSize < 1 {
			return fmt.Errorf("tile size %d: %w", req.TileSize, core.ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("layout %q: %w", req.Layout, core.ErrInvalidRequest)
	}
	if req.Zoom < 0 {
		return fmt.Errorf("zoom %v: %w", req.Zoom, core.ErrInvalidZoom)
	}
	return nil
}

type noopCache struct{}

func (noopCache) Get(core.TileKey) ([]int, bool) { return nil, false }
func (noopCache) Put(core.TileKey, []int)        {}
func (noopCache) Len() int                       { return 0 }
