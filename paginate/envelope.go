package paginate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mkale/resttap/stream"
)

// Envelope is one parsed response body: the record array selected by the
// stream's records path plus the pagination fields the codecs read.
type Envelope struct {
	body    map[string]any
	Records []stream.Record

	// degraded marks an Empty() stand-in for an unparsable page. The caller
	// has already logged the parse failure once.
	degraded bool
}

// Empty is the envelope used in place of a page whose JSON could not be
// parsed: no records, no pagination fields.
func Empty() *Envelope {
	return &Envelope{body: map[string]any{}, degraded: true}
}

// Parse decodes a response body and selects the record array at recordsPath,
// a dot path into the JSON object (e.g. "tickets" or "meta.rows").
func Parse(body []byte, recordsPath string) (*Envelope, error) {
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("decoding response envelope: %w", err)
	}

	env := &Envelope{body: root}

	node, ok := lookupPath(root, recordsPath)
	if !ok {
		// A page with no record array at all is a valid (empty) last page.
		return env, nil
	}
	arr, ok := node.([]any)
	if !ok {
		// Show-style endpoints return a single object where list endpoints
		// return an array; treat it as a one-record page.
		if m, isObj := node.(map[string]any); isObj {
			env.Records = []stream.Record{stream.Record(m)}
			return env, nil
		}
		return nil, fmt.Errorf("records path %q does not select an array", recordsPath)
	}
	env.Records = make([]stream.Record, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			// Null and non-object entries become empty records; the filter
			// drops and counts them.
			env.Records = append(env.Records, nil)
			continue
		}
		env.Records = append(env.Records, stream.Record(m))
	}
	return env, nil
}

func lookupPath(root map[string]any, path string) (any, bool) {
	var node any = root
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// endOfStream reports the explicit end_of_stream flag. Absent means false:
// the incremental codecs then rely on the token field alone.
func (e *Envelope) endOfStream() bool {
	v, ok := e.body["end_of_stream"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (e *Envelope) stringField(name string) string {
	v, ok := e.body[name]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (e *Envelope) metaField(object, name string) (any, bool) {
	node, ok := lookupPath(e.body, object+"."+name)
	if !ok {
		return nil, false
	}
	return node, true
}
