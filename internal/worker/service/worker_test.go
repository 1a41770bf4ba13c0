package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	scheduler "github.com/nemanja-m/gomandel/internal/scheduler/core"
)

type mockExecutor struct {
	mu       sync.Mutex
	executed []uint64
	counts   []int
	execErr  error
	panicMsg string
}

func (m *mockExecutor) Execute(ctx context.Context, job scheduler.Job) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executed = append(m.executed, job.ID)
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.execErr != nil {
		return nil, m.execErr
	}
	if m.counts != nil {
		return m.counts, nil
	}
	return make([]int, job.Samples()), nil
}

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any) {}
func (m *mockLogger) Info(msg string, args ...any)  {}
func (m *mockLogger) Warn(msg string, args ...any)  {}
func (m *mockLogger) Error(msg string, args ...any) {}
func (m *mockLogger) Fatal(msg string, args ...any) {}

func testJob(id uint64) scheduler.Job {
	return scheduler.Job{
		ID:         id,
		Kind:       scheduler.JobKindTile,
		Region:     scheduler.Region{RealMin: -2, RealMax: 1, ImagMin: -1, ImagMax: 1},
		Width:      2,
		Height:     2,
		Iterations: 50,
	}
}

func startWorker(t *testing.T, executor *mockExecutor) (*worker, chan scheduler.JobResult) {
	t.Helper()
	results := make(chan scheduler.JobResult, 4)
	w := NewWorker(7, executor, results, &mockLogger{}).(*worker)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
	return w, results
}

func receive(t *testing.T, results <-chan scheduler.JobResult) scheduler.JobResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
		return scheduler.JobResult{}
	}
}

func TestWorker_ReportsOneResultPerJob(t *testing.T) {
	executor := &mockExecutor{}
	w, results := startWorker(t, executor)

	for id := uint64(1); id <= 3; id++ {
		w.Post(testJob(id))
		r := receive(t, results)
		if r.JobID != id {
			t.Errorf("expected result for job %d, got %d", id, r.JobID)
		}
		if r.WorkerID != 7 {
			t.Errorf("expected worker id 7, got %d", r.WorkerID)
		}
		if r.Err != nil || len(r.Counts) != 4 {
			t.Errorf("unexpected result %+v", r)
		}
	}
}

func TestWorker_ExecutorErrorIsWrapped(t *testing.T) {
	cause := errors.New("boom")
	w, results := startWorker(t, &mockExecutor{execErr: cause})

	w.Post(testJob(1))
	r := receive(t, results)
	if !errors.Is(r.Err, scheduler.ErrWorkerFailed) || !errors.Is(r.Err, cause) {
		t.Errorf("expected wrapped worker failure, got %v", r.Err)
	}
	if r.Counts != nil {
		t.Errorf("expected no counts on failure")
	}
}

func TestWorker_PanicIsRecovered(t *testing.T) {
	executor := &mockExecutor{panicMsg: "kernel exploded"}
	w, results := startWorker(t, executor)

	w.Post(testJob(1))
	r := receive(t, results)
	if !errors.Is(r.Err, scheduler.ErrWorkerFailed) {
		t.Fatalf("expected ErrWorkerFailed, got %v", r.Err)
	}

	executor.mu.Lock()
	executor.panicMsg = ""
	executor.mu.Unlock()

	w.Post(testJob(2))
	if r := receive(t, results); r.Err != nil || r.JobID != 2 {
		t.Errorf("worker did not recover: %+v", r)
	}
}

func TestWorker_RejectsWrongCountLength(t *testing.T) {
	w, results := startWorker(t, &mockExecutor{counts: []int{1, 2}})

	w.Post(testJob(1))
	if r := receive(t, results); !errors.Is(r.Err, scheduler.ErrWorkerFailed) {
		t.Errorf("expected ErrWorkerFailed, got %v", r.Err)
	}
}

func TestWorker_PostWhileBusyPanics(t *testing.T) {
	results := make(chan scheduler.JobResult)
	w := NewWorker(1, &mockExecutor{}, results, &mockLogger{})

	w.Post(testJob(1))
	defer func() {
		if recover() == nil {
			t.Error("expected panic when posting to a busy worker")
		}
	}()
	w.Post(testJob(2))
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	w := NewWorker(1, &mockExecutor{}, make(chan scheduler.JobResult), &mockLogger{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
