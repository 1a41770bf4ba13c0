package service

import (
	"context"
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
)

// Pending is the caller's handle on a render request. It settles exactly once:
// with the painted image, or with the first error.
type Pending struct {
	id   uuid.UUID
	size core.Size
	done chan struct{}
	once sync.Once
	img  *image.RGBA
	err  error
}

func newPending(id uuid.UUID, size core.Size) *Pending {
	return &Pending{id: id, size: size, done: make(chan struct{})}
}

func (p *Pending) ID() uuid.UUID {
	return p.id
}

func (p *Pending) Size() core.Size {
	return p.size
}

// Done is closed once the request has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request settles or ctx is done.
func (p *Pending) Wait(ctx context.Context) (*image.RGBA, error) {
	select {
	case <-p.done:
		return p.img, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pending) resolve(img *image.RGBA) {
	p.once.Do(func() {
		p.img = img
		close(p.done)
	})
}

func (p *Pending) fail(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}
