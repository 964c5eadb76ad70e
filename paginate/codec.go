package paginate

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/mkale/resttap/stream"
)

// Codec is the pure, strategy-specific half of pagination: it turns the
// current token into request parameters and a parsed envelope into the next
// token. No I/O happens here.
type Codec interface {
	// Params returns the query parameters the token contributes to the next
	// request. Handing a codec a token variant it does not understand is a
	// programming error.
	Params(tok PageToken, d stream.Descriptor) (url.Values, error)
	// Next computes the following page's token from an envelope. The second
	// return reports whether the response claims more data is available;
	// a true claim with a none token is a protocol violation the paginator
	// resolves as end-of-stream.
	Next(env *Envelope) (PageToken, bool)
}

// CodecFor selects the codec for a stream's pagination strategy.
func CodecFor(strategy stream.PaginationStrategy) (Codec, error) {
	switch strategy {
	case stream.StrategyCursor:
		return cursorCodec{}, nil
	case stream.StrategyIncrementalCursor:
		return incrementalCodec{tokenField: "after_url"}, nil
	case stream.StrategyIncrementalTime:
		return incrementalCodec{tokenField: "next_page"}, nil
	case stream.StrategyLink:
		return linkCodec{}, nil
	default:
		return nil, fmt.Errorf("no codec for pagination strategy %q", strategy)
	}
}

// cursorCodec drives meta.after_cursor pagination: the opaque cursor is
// replayed verbatim as page[after].
type cursorCodec struct{}

func (cursorCodec) Params(tok PageToken, d stream.Descriptor) (url.Values, error) {
	params := url.Values{}
	if d.PageSize > 0 {
		params.Set("page[size]", strconv.Itoa(d.PageSize))
	}
	switch tok.Kind() {
	case KindNone:
	case KindCursor:
		params.Set("page[after]", tok.cursor)
	default:
		return nil, fmt.Errorf("cursor strategy cannot encode %s token", tok.Kind())
	}
	return params, nil
}

func (cursorCodec) Next(env *Envelope) (PageToken, bool) {
	more := false
	if v, ok := env.metaField("meta", "has_more"); ok {
		b, _ := v.(bool)
		more = b
	}
	if !more {
		return None(), false
	}
	v, ok := env.metaField("meta", "after_cursor")
	if !ok {
		return None(), true
	}
	cursor, _ := v.(string)
	if cursor == "" {
		return None(), true
	}
	return Cursor(cursor), true
}

// incrementalCodec drives the incremental export endpoints: the first
// request carries per_page and a start_time computed from the extraction
// window; every later request replays the query of the URL found in
// tokenField, gated by the explicit end_of_stream flag.
type incrementalCodec struct {
	tokenField string
}

func (c incrementalCodec) Params(tok PageToken, d stream.Descriptor) (url.Values, error) {
	params := url.Values{}
	switch tok.Kind() {
	case KindTimeWindow:
		if d.PageSize > 0 {
			params.Set("per_page", strconv.Itoa(d.PageSize))
		}
		params.Set("start_time", strconv.FormatInt(tok.start, 10))
	case KindLink:
		for k, vs := range tok.link.Query() {
			for _, v := range vs {
				params.Add(k, v)
			}
		}
	default:
		return nil, fmt.Errorf("incremental strategy cannot encode %s token", tok.Kind())
	}
	return params, nil
}

func (c incrementalCodec) Next(env *Envelope) (PageToken, bool) {
	if env.endOfStream() {
		return None(), false
	}
	raw := env.stringField(c.tokenField)
	if raw == "" {
		return None(), true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return None(), true
	}
	return Link(u), true
}

// linkCodec drives links.next pagination: the full next-page URL is parsed
// and its query string replayed against the fixed base path.
type linkCodec struct{}

func (linkCodec) Params(tok PageToken, d stream.Descriptor) (url.Values, error) {
	params := url.Values{}
	switch tok.Kind() {
	case KindNone:
		if d.PageSize > 0 {
			params.Set("page[size]", strconv.Itoa(d.PageSize))
		}
	case KindLink:
		for k, vs := range tok.link.Query() {
			for _, v := range vs {
				params.Add(k, v)
			}
		}
	default:
		return nil, fmt.Errorf("link strategy cannot encode %s token", tok.Kind())
	}
	return params, nil
}

func (linkCodec) Next(env *Envelope) (PageToken, bool) {
	node, ok := env.metaField("links", "next")
	if !ok || node == nil {
		return None(), false
	}
	raw, _ := node.(string)
	if raw == "" {
		return None(), false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return None(), true
	}
	return Link(u), true
}
