package video

import (
	"sync"

	"deskbridge/internal/domain"
)

// FrameSlot holds at most one undrawn frame.
type FrameSlot struct {
	mu         sync.Mutex
	pending    *domain.DecodedFrame
	superseded uint64
}

// Put stores f, releasing any frame it replaces.
func (s *FrameSlot) Put(f *domain.DecodedFrame) {
	if f == nil {
		return
	}
	s.mu.Lock()
	old := s.pending
	s.pending = f
	if old != nil {
		s.superseded++
	}
	s.mu.Unlock()
	if old != nil {
		old.Release()
	}
}

// Take removes and returns the pending frame, or nil.
func (s *FrameSlot) Take() *domain.DecodedFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.pending
	s.pending = nil
	return f
}

// Superseded counts frames released without being drawn.
func (s *FrameSlot) Superseded() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.superseded
}

// Drain releases the pending frame, if any.
func (s *FrameSlot) Drain() {
	if f := s.Take(); f != nil {
		f.Release()
	}
}
