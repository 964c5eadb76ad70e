package pipeline

import (
	"sync"
	"time"
)

// StreamStatus is a point-in-time view of one stream's extraction, exposed
// on the status endpoint.
type StreamStatus struct {
	Stream   string    `json:"stream"`
	State    string    `json:"state"`
	Records  int       `json:"records"`
	Pages    int       `json:"pages"`
	Bookmark time.Time `json:"bookmark,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Registry tracks per-stream progress. The runner writes from its single
// extraction goroutine; the status server reads concurrently.
type Registry struct {
	mu       sync.RWMutex
	statuses map[string]*StreamStatus
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{statuses: make(map[string]*StreamStatus)}
}

func (r *Registry) Start(streamName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.statuses[streamName]; !ok {
		r.order = append(r.order, streamName)
	}
	r.statuses[streamName] = &StreamStatus{Stream: streamName, State: "running"}
}

func (r *Registry) Progress(streamName string, records, pages int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.statuses[streamName]; ok {
		s.Records = records
		s.Pages = pages
	}
}

func (r *Registry) Finish(streamName string, records, pages int, bookmark time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.statuses[streamName]; ok {
		s.State = "done"
		s.Records = records
		s.Pages = pages
		s.Bookmark = bookmark
	}
}

func (r *Registry) Fail(streamName string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.statuses[streamName]; ok {
		s.State = "failed"
		s.Error = err.Error()
	}
}

// Snapshot returns the statuses in the order the streams were started.
func (r *Registry) Snapshot() []StreamStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]StreamStatus, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.statuses[name])
	}
	return out
}
