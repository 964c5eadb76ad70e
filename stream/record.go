package stream

import "fmt"

// Record is one row from the upstream API. The engine only ever inspects the
// replication key field; everything else passes through untouched.
type Record map[string]any

// ReplicationValue returns the raw replication key value as a string. The
// second return is false when the field is absent or null. A present value
// of any other type is schema drift and comes back as an error.
func (r Record) ReplicationValue(key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	v, ok := r[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("replication key %q holds %T, not a string", key, v)
	}
	return s, true, nil
}

// Empty reports whether the record carries no fields at all.
func (r Record) Empty() bool {
	return len(r) == 0
}
