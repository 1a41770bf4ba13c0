package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

func createTestJob(id uint64, centreReal, centreImag float64) *Job {
	return &Job{
		ID:   id,
		Kind: JobKindTile,
		Region: Region{
			RealMin: centreReal - 0.5,
			RealMax: centreReal + 0.5,
			ImagMin: centreImag - 0.5,
			ImagMax: centreImag + 0.5,
		},
		Width:      1,
		Height:     1,
		Iterations: 10,
	}
}

func TestNewJobQueue(t *testing.T) {
	q := NewJobQueue()
	if q == nil {
		t.Fatal("NewJobQueue returned nil")
	}
	if q.Len() != 0 {
		t.Errorf("expected new queue to have length 0, got %d", q.Len())
	}
}

func TestJobQueue_Push(t *testing.T) {
	tests := []struct {
		name    string
		jobs    []*Job
		wantErr error
		wantLen int
	}{
		{
			name:    "push valid job",
			jobs:    []*Job{createTestJob(1, 0, 0)},
			wantLen: 1,
		},
		{
			name:    "push duplicate id returns error",
			jobs:    []*Job{createTestJob(1, 0, 0), createTestJob(1, 2, 2)},
			wantErr: ErrDuplicateJob,
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewJobQueue()
			var err error
			for _, job := range tt.jobs {
				if err = q.Push(job); err != nil {
					break
				}
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Push() error = %v, want %v", err, tt.wantErr)
			}
			if q.Len() != tt.wantLen {
				t.Errorf("expected queue length %d, got %d", tt.wantLen, q.Len())
			}
		})
	}

	t.Run("push nil job returns error", func(t *testing.T) {
		q := NewJobQueue()
		if err := q.Push(nil); err == nil {
			t.Error("expected error for nil job")
		}
	})
}

func TestJobQueue_Pop(t *testing.T) {
	t.Run("pop from empty queue returns error", func(t *testing.T) {
		q := NewJobQueue()
		job, err := q.Pop()
		if err != ErrQueueEmpty {
			t.Errorf("expected ErrQueueEmpty, got %v", err)
		}
		if job != nil {
			t.Errorf("expected nil job, got %v", job)
		}
	})

	t.Run("newest job first without focus", func(t *testing.T) {
		q := NewJobQueue()
		for _, id := range []uint64{3, 1, 7, 5} {
			_ = q.Push(createTestJob(id, float64(id), 0))
		}

		for _, want := range []uint64{7, 5, 3, 1} {
			job, err := q.Pop()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if job.ID != want {
				t.Errorf("expected job %d, got %d", want, job.ID)
			}
		}
		if q.Contains(7) {
			t.Error("popped job should no longer be tracked")
		}
	})

	t.Run("nearest job to focus first", func(t *testing.T) {
		q := NewJobQueue()
		_ = q.Push(createTestJob(1, 10, 0))
		_ = q.Push(createTestJob(2, 0, 0))
		_ = q.Push(createTestJob(3, -4, 0))
		q.SetFocus(mandelbrot.Complex{Real: -3, Imag: 0})

		for _, want := range []uint64{3, 2, 1} {
			job, _ := q.Pop()
			if job.ID != want {
				t.Errorf("expected job %d, got %d", want, job.ID)
			}
		}
	})

	t.Run("equal distance breaks ties by newest", func(t *testing.T) {
		q := NewJobQueue()
		q.SetFocus(mandelbrot.Complex{})
		_ = q.Push(createTestJob(1, 1, 0))
		_ = q.Push(createTestJob(2, -1, 0))
		_ = q.Push(createTestJob(3, 0, 1))

		for _, want := range []uint64{3, 2, 1} {
			job, _ := q.Pop()
			if job.ID != want {
				t.Errorf("expected job %d, got %d", want, job.ID)
			}
		}
	})

	t.Run("clear focus restores newest first", func(t *testing.T) {
		q := NewJobQueue()
		q.SetFocus(mandelbrot.Complex{})
		_ = q.Push(createTestJob(1, 0, 0))
		_ = q.Push(createTestJob(2, 50, 50))
		q.ClearFocus()

		job, _ := q.Top()
		if job.ID != 2 {
			t.Errorf("expected job 2, got %d", job.ID)
		}
	})
}

func TestJobQueue_Top(t *testing.T) {
	t.Run("top on empty queue returns error", func(t *testing.T) {
		q := NewJobQueue()
		if _, err := q.Top(); err != ErrQueueEmpty {
			t.Errorf("expected ErrQueueEmpty, got %v", err)
		}
	})

	t.Run("top does not remove", func(t *testing.T) {
		q := NewJobQueue()
		_ = q.Push(createTestJob(1, 0, 0))
		_ = q.Push(createTestJob(2, 0, 0))

		job, err := q.Top()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.ID != 2 {
			t.Errorf("expected job 2, got %d", job.ID)
		}
		if q.Len() != 2 {
			t.Errorf("expected queue length 2, got %d", q.Len())
		}
	})
}

func TestJobQueue_RemoveWhere(t *testing.T) {
	q := NewJobQueue()
	for id := uint64(1); id <= 6; id++ {
		job := createTestJob(id, float64(id), 0)
		job.Iterations = int(id%2) + 1
		_ = q.Push(job)
	}

	removed := q.RemoveWhere(func(j *Job) bool { return j.Iterations == 1 })
	if len(removed) != 3 {
		t.Fatalf("expected 3 removed jobs, got %d", len(removed))
	}
	for _, job := range removed {
		if job.ID%2 != 0 {
			t.Errorf("removed unexpected job %d", job.ID)
		}
		if q.Contains(job.ID) {
			t.Errorf("removed job %d still tracked", job.ID)
		}
	}
	if q.Len() != 3 {
		t.Errorf("expected 3 remaining jobs, got %d", q.Len())
	}

	for _, want := range []uint64{5, 3, 1} {
		job, err := q.Pop()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if job.ID != want {
			t.Errorf("expected job %d, got %d", want, job.ID)
		}
	}

	if got := q.RemoveWhere(func(*Job) bool { return true }); got != nil {
		t.Errorf("expected nil from empty queue, got %v", got)
	}
}

func TestJobQueue_Jobs(t *testing.T) {
	q := NewJobQueue()
	_ = q.Push(createTestJob(1, 0, 0))
	_ = q.Push(createTestJob(2, 0, 0))

	seen := map[uint64]bool{}
	for _, job := range q.Jobs() {
		seen[job.ID] = true
	}
	if !seen[1] || !seen[2] || len(seen) != 2 {
		t.Errorf("unexpected snapshot %v", seen)
	}
	if q.Len() != 2 {
		t.Errorf("snapshot should not drain the queue")
	}
}

func TestJobQueue_Concurrent(t *testing.T) {
	t.Run("concurrent push operations", func(t *testing.T) {
		q := NewJobQueue()
		var wg sync.WaitGroup
		numGoroutines := 100
		numJobsPerGoroutine := 10

		wg.Add(numGoroutines)
		for i := range numGoroutines {
			go func(goroutineID int) {
				defer wg.Done()
				for j := 0; j < numJobsPerGoroutine; j++ {
					id := uint64(goroutineID*numJobsPerGoroutine + j)
					_ = q.Push(createTestJob(id, float64(j), 0))
				}
			}(i)
		}

		wg.Wait()

		expectedLen := numGoroutines * numJobsPerGoroutine
		if q.Len() != expectedLen {
			t.Errorf("expected queue length %d, got %d", expectedLen, q.Len())
		}
	})

	t.Run("concurrent pop operations", func(t *testing.T) {
		q := NewJobQueue()
		numJobs := 100
		for i := range numJobs {
			_ = q.Push(createTestJob(uint64(i), 0, 0))
		}

		var wg sync.WaitGroup
		numGoroutines := 10
		popped := make(chan *Job, numJobs)

		wg.Add(numGoroutines)
		for range numGoroutines {
			go func() {
				defer wg.Done()
				for {
					job, err := q.Pop()
					if err == ErrQueueEmpty {
						return
					}
					popped <- job
				}
			}()
		}

		wg.Wait()
		close(popped)

		count := 0
		for range popped {
			count++
		}
		if count != numJobs {
			t.Errorf("expected %d jobs popped, got %d", numJobs, count)
		}
	})
}
