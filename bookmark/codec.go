package bookmark

import (
	"bytes"
	"time"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// storedValue is the wire form of a bookmark. The timestamp travels as
// RFC3339Nano so the stored bytes stay readable across Go versions.
type storedValue struct {
	Value string `codec:"value"`
}

func encodeValue(t time.Time) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	hd := codec.MsgpackHandle{}
	enc := codec.NewEncoder(buf, &hd)
	if err := enc.Encode(storedValue{Value: t.UTC().Format(time.RFC3339Nano)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValue(b []byte) (time.Time, error) {
	var out storedValue
	r := bytes.NewBuffer(b)
	hd := codec.MsgpackHandle{}
	dec := codec.NewDecoder(r, &hd)
	if err := dec.Decode(&out); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, out.Value)
}
