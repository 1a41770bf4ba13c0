package core

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"

	"github.com/nemanja-m/gomandel/pkg/mandelbrot"
)

// ErrQueueEmpty is returned when Pop() or Top() is called on an empty queue.
var ErrQueueEmpty = errors.New("job queue is empty")

// JobQueue is a thread-safe heap of pending jobs. Jobs closest to the focus
// point are served first. Jobs at equal distance, or all jobs when no focus is
// set, are served newest first (highest id).
type JobQueue interface {
	Push(job *Job) error
	Pop() (*Job, error)
	Top() (*Job, error)
	Len() int
	Contains(id uint64) bool
	// RemoveWhere removes and returns every queued job matching pred.
	RemoveWhere(pred func(*Job) bool) []*Job
	// Jobs returns a snapshot of the queued jobs in no particular order.
	Jobs() []*Job
	SetFocus(focus mandelbrot.Complex)
	ClearFocus()
}

type heapJobQueue struct {
	pq       priorityQueue
	byID     map[uint64]*item
	mu       sync.RWMutex
	focus    mandelbrot.Complex
	hasFocus bool
}

func NewJobQueue() JobQueue {
	pq := make(priorityQueue, 0)
	heap.Init(&pq)
	return &heapJobQueue{pq: pq, byID: make(map[uint64]*item)}
}

func (q *heapJobQueue) Push(job *Job) error {
	if job == nil {
		return errors.New("cannot push nil job")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.byID[job.ID]; ok {
		return fmt.Errorf("job %d: %w", job.ID, ErrDuplicateJob)
	}
	it := &item{job: job, distance: q.distance(job)}
	heap.Push(&q.pq, it)
	q.byID[job.ID] = it
	return nil
}

func (q *heapJobQueue) Pop() (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pq.Len() == 0 {
		return nil, ErrQueueEmpty
	}
	it := heap.Pop(&q.pq).(*item)
	delete(q.byID, it.job.ID)
	return it.job, nil
}

func (q *heapJobQueue) Top() (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.pq.Len() == 0 {
		return nil, ErrQueueEmpty
	}
	return q.pq[0].job, nil
}

func (q *heapJobQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.pq.Len()
}

func (q *heapJobQueue) Contains(id uint64) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, ok := q.byID[id]
	return ok
}

func (q *heapJobQueue) RemoveWhere(pred func(*Job) bool) []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	var removed []*Job
	kept := q.pq[:0]
	for _, it := range q.pq {
		if pred(it.job) {
			removed = append(removed, it.job)
			delete(q.byID, it.job.ID)
			continue
		}
		kept = append(kept, it)
	}
	if len(removed) == 0 {
		return nil
	}
	for i := len(kept); i < len(q.pq); i++ {
		q.pq[i] = nil
	}
	q.pq = kept
	for i, it := range q.pq {
		it.index = i
	}
	heap.Init(&q.pq)
	return removed
}

func (q *heapJobQueue) Jobs() []*Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	jobs := make([]*Job, 0, len(q.pq))
	for _, it := range q.pq {
		jobs = append(jobs, it.job)
	}
	return jobs
}

func (q *heapJobQueue) SetFocus(focus mandelbrot.Complex) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.focus = focus
	q.hasFocus = true
	q.reprioritize()
}

func (q *heapJobQueue) ClearFocus() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.hasFocus = false
	q.reprioritize()
}

func (q *heapJobQueue) reprioritize() {
	for _, it := range q.pq {
		it.distance = q.distance(it.job)
	}
	heap.Init(&q.pq)
}

func (q *heapJobQueue) distance(job *Job) float64 {
	if !q.hasFocus {
		return 0
	}
	a := job.Anchor()
	dr, di := a.Real-q.focus.Real, a.Imag-q.focus.Imag
	return dr*dr + di*di
}

// item wraps a Job with its squared distance to the focus and its index in the heap.
type item struct {
	job      *Job
	distance float64
	index    int // Required by heap.Interface
}

// priorityQueue satisfies heap.Interface.
type priorityQueue []*item

func (pq priorityQueue) Len() int {
	return len(pq)
}

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].distance != pq[j].distance {
		return pq[i].distance < pq[j].distance
	}
	// Newest job first.
	return pq[i].job.ID > pq[j].job.ID
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	it := x.(*item)
	it.index = n
	*pq = append(*pq, it)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*pq = old[0 : n-1]
	return it
}
