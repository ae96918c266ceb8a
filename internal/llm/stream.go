package llm

import (
	"fmt"
	"io"
	"iter"
	"sync"

	"google.golang.org/genai"
)

// Stream yields reply fragments in order. Recv returns io.EOF once the model
// has finished. A stream cannot be restarted.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// responseStream turns the SDK's push iterator into Recv calls.
type responseStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
	once sync.Once
	err  error
}

func newResponseStream(seq iter.Seq2[*genai.GenerateContentResponse, error]) *responseStream {
	next, stop := iter.Pull2(seq)
	return &responseStream{next: next, stop: stop}
}

func (s *responseStream) Recv() (string, error) {
	if s.err != nil {
		return "", s.err
	}

	for {
		chunk, err, ok := s.next()
		if !ok {
			s.err = io.EOF
			return "", io.EOF
		}
		if err != nil {
			s.err = fmt.Errorf("gemini stream: %w", err)
			return "", s.err
		}
		if err := blocked(chunk); err != nil {
			s.err = err
			return "", s.err
		}
		if chunk == nil {
			continue
		}
		if text := chunk.Text(); text != "" {
			return text, nil
		}
	}
}

func (s *responseStream) Close() error {
	s.once.Do(s.stop)
	return nil
}
