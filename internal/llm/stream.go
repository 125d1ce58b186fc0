package llm

import (
	"io"
	"sync"

	"github.com/newthinker/nurexia/internal/core"
)

// Stream is a pull-based sequence of text fragments. Recv blocks until the
// next fragment is available and returns io.EOF once the backend finishes.
// Close releases the underlying connection; it is safe to call more than
// once and must be called when a consumer stops early.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// funcStream adapts a next/close function pair to Stream.
type funcStream struct {
	next    func() (string, error)
	closeFn func() error

	mu     sync.Mutex
	closed bool
	done   bool
	once   sync.Once
	err    error
}

// NewStream builds a Stream from next and closeFn. closeFn may be nil.
// After next returns an error (including io.EOF) the stream releases its
// resources and keeps returning that error.
func NewStream(next func() (string, error), closeFn func() error) Stream {
	return &funcStream{next: next, closeFn: closeFn}
}

func (s *funcStream) Recv() (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", core.ErrStreamClosed
	}
	if s.done {
		err := s.err
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	text, err := s.next()
	if err != nil {
		s.mu.Lock()
		s.done = true
		s.err = err
		s.mu.Unlock()
		s.release()
		return "", err
	}
	return text, nil
}

func (s *funcStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.release()
}

func (s *funcStream) release() error {
	var err error
	s.once.Do(func() {
		if s.closeFn != nil {
			err = s.closeFn()
		}
	})
	return err
}

// FromSlice returns a stream yielding fragments in order.
func FromSlice(fragments ...string) Stream {
	i := 0
	return NewStream(func() (string, error) {
		if i >= len(fragments) {
			return "", io.EOF
		}
		f := fragments[i]
		i++
		return f, nil
	}, nil)
}

// SingleFragment returns a stream yielding text exactly once.
func SingleFragment(text string) Stream {
	return FromSlice(text)
}

// Collect drains s, closes it and returns every fragment received. The
// fragments received before a failure are returned with the error.
func Collect(s Stream) ([]string, error) {
	defer s.Close()
	var out []string
	for {
		f, err := s.Recv()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
}
