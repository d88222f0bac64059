package archive

import "context"

// Stub is an in-memory sink for testing. It records entries without
// persisting anything.
type Stub struct {
	Entries []*Entry
	Closed  bool

	// Err, when set, is returned by Record to exercise failure paths.
	Err error
}

// NewStub creates a new stub sink.
func NewStub() *Stub {
	return &Stub{}
}

// Record implements Sink.
func (s *Stub) Record(_ context.Context, e *Entry) error {
	if s.Err != nil {
		return s.Err
	}
	s.Entries = append(s.Entries, e)
	return nil
}

// RecentEntries implements Reader over the recorded entries.
func (s *Stub) RecentEntries(_ context.Context, sinceDay string) ([]*Entry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*Entry
	for _, e := range s.Entries {
		if sinceDay != "" && e.Day < sinceDay {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Close implements Sink.
func (s *Stub) Close() error {
	s.Closed = true
	return nil
}

// Verify Stub implements both archive interfaces.
var (
	_ Sink   = (*Stub)(nil)
	_ Reader = (*Stub)(nil)
)
