// Copyright 2024-2026 Aiku AI

package relay

import "sync"

// Serializer runs queued work functions in arrival order per key, while
// work for distinct keys proceeds concurrently. The orchestrators key on
// the source message so that an edit never races past the send that
// created its correlation entry.
type Serializer struct {
	mu     sync.Mutex
	queues map[string]*workQueue
	wg     sync.WaitGroup
}

type workQueue struct {
	pending []func()
}

func NewSerializer() *Serializer {
	return &Serializer{queues: make(map[string]*workQueue)}
}

// Enqueue schedules fn behind everything already queued for key. It never
// blocks the caller.
func (s *Serializer) Enqueue(key string, fn func()) {
	s.mu.Lock()
	q, ok := s.queues[key]
	if ok {
		q.pending = append(q.pending, fn)
		s.mu.Unlock()
		return
	}
	q = &workQueue{pending: []func(){fn}}
	s.queues[key] = q
	s.wg.Add(1)
	s.mu.Unlock()

	go s.drain(key, q)
}

func (s *Serializer) drain(key string, q *workQueue) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if len(q.pending) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending = q.pending[1:]
		s.mu.Unlock()

		fn()
	}
}

// Wait blocks until every queued function has finished. Only safe once no
// more work is being enqueued.
func (s *Serializer) Wait() {
	s.wg.Wait()
}
