package audio

import "sync"

// Frame is one batch of interleaved samples delivered by a single
// driver callback. Ownership moves from the callback to the queue.
type Frame []float32

// FrameQueue is the handoff between the real-time driver callback and
// the session loop. One producer, one consumer. Push never blocks.
type FrameQueue struct {
	mu     sync.Mutex
	frames []Frame
}

func NewFrameQueue() *FrameQueue { return &FrameQueue{} }

func (q *FrameQueue) Push(f Frame) {
	q.mu.Lock()
	q.frames = append(q.frames, f)
	q.mu.Unlock()
}

// DrainAll removes and returns every queued frame in arrival order,
// leaving the queue empty. It never blocks.
func (q *FrameQueue) DrainAll() []Frame {
	q.mu.Lock()
	out := q.frames
	q.frames = nil
	q.mu.Unlock()
	return out
}

func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
