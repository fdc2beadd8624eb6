package books

import (
	"sync"

	"mybooks/internal/models"
)

type subscriber struct {
	id    uint64
	since uint64
	fn    func([]models.Book)
}

// Subscribe registers fn to receive the complete collection after every
// successful mutation. fn is called once right away with the current
// collection, or, when Subscribe runs inside another callback, as soon as
// that callback returns. The returned function unregisters fn and may be called more
// than once.
func (s *Store) Subscribe(fn func([]models.Book)) (unsubscribe func()) {
	s.mu.Lock()
	seq := s.publish(cloneAll(s.books), fn)
	s.subsMu.Lock()
	s.subs = append(s.subs, subscriber{id: seq, since: seq, fn: fn})
	s.subsMu.Unlock()
	s.mu.Unlock()

	s.deliver()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == seq {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers returns how many callbacks are registered.
func (s *Store) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

// event is one queued delivery. A nil target goes to every subscriber
// registered before seq.
type event struct {
	seq      uint64
	snapshot []models.Book
	target   func([]models.Book)
}

// publish numbers a new event and queues it. The caller holds s.mu.
func (s *Store) publish(snapshot []models.Book, target func([]models.Book)) uint64 {
	s.seq++
	s.deliverMu.Lock()
	s.pending = append(s.pending, event{seq: s.seq, snapshot: snapshot, target: target})
	s.deliverMu.Unlock()
	return s.seq
}

// deliver drains the queue unless another call is already doing so, in
// which case that call picks up whatever was queued here.
func (s *Store) deliver() {
	s.deliverMu.Lock()
	if s.delivering {
		s.deliverMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending[0] = event{}
		s.pending = s.pending[1:]
		s.deliverMu.Unlock()
		s.dispatch(ev)
		s.deliverMu.Lock()
	}
	s.pending = nil
	s.delivering = false
	s.deliverMu.Unlock()
}

// dispatch runs one event. A panicking callback releases delivery before
// the panic propagates; the remaining events go out with the next call.
func (s *Store) dispatch(ev event) {
	defer func() {
		if r := recover(); r != nil {
			s.deliverMu.Lock()
			s.delivering = false
			s.deliverMu.Unlock()
			panic(r)
		}
	}()
	if ev.target != nil {
		ev.target(ev.snapshot)
		return
	}
	s.notify(ev.seq, ev.snapshot)
}

// notify hands the snapshot of event seq to every subscriber registered
// before it. Each subscriber gets its own copy.
func (s *Store) notify(seq uint64, snapshot []models.Book) {
	s.subsMu.Lock()
	subs := make([]subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.since < seq {
			subs = append(subs, sub)
		}
	}
	s.subsMu.Unlock()

	for i, sub := range subs {
		if i == len(subs)-1 {
			sub.fn(snapshot)
			continue
		}
		sub.fn(cloneAll(snapshot))
	}
}
