package runtime

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/juju/errors"

	"github.com/warriorguo/hyperbuild/types"
)

var (
	_ types.Emitter = &StreamEmitter{}
)

// StreamEmitter writes events as newline delimited JSON, flushing after every
// event when w supports it.
type StreamEmitter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	flusher http.Flusher
}

func NewStreamEmitter(w io.Writer) *StreamEmitter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	s := &StreamEmitter{enc: enc}
	if f, ok := w.(http.Flusher); ok {
		s.flusher = f
	}
	return s
}

func (s *StreamEmitter) Emit(ev *types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(ev); err != nil {
		return errors.Annotatef(err, "encode %s event", ev.Kind)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
