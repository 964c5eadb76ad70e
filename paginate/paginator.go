package paginate

import (
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/mkale/resttap/stream"
)

// State of the pagination loop. Transitions never revisit StateStart; a new
// stream invocation always constructs a fresh Paginator.
type State int

const (
	StateStart State = iota
	StateFetching
	StateHasMore
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateFetching:
		return "fetching"
	case StateHasMore:
		return "has-more"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Paginator drives the request/response/advance loop for one stream
// invocation. The engine asks it for the next request's parameters, feeds
// the parsed envelope back in, and stops when the state reaches StateDone.
type Paginator struct {
	desc  stream.Descriptor
	codec Codec
	state State
	token PageToken
	pages int
}

// New builds a paginator in StateStart. startTime seeds the first request of
// an incremental export; streams whose strategy is not incremental ignore it.
func New(d stream.Descriptor, startTime int64) (*Paginator, error) {
	codec, err := CodecFor(d.Strategy)
	if err != nil {
		return nil, err
	}
	p := &Paginator{desc: d, codec: codec, token: None()}
	if d.Strategy.Incremental() {
		p.token = TimeWindow(startTime)
	}
	return p, nil
}

func (p *Paginator) State() State     { return p.state }
func (p *Paginator) Pages() int       { return p.pages }
func (p *Paginator) Token() PageToken { return p.token }

// Params returns the query parameters for the next request and moves the
// paginator into StateFetching.
func (p *Paginator) Params() (url.Values, error) {
	params, err := p.codec.Params(p.token, p.desc)
	if err != nil {
		return nil, err
	}
	for k, v := range p.desc.Params {
		params.Set(k, v)
	}
	p.state = StateFetching
	return params, nil
}

// Advance feeds a parsed envelope back and computes the next state. A
// response that claims more data without a usable token would loop forever,
// so it is resolved as end-of-stream and logged.
func (p *Paginator) Advance(env *Envelope) State {
	p.pages++
	next, more := p.codec.Next(env)
	if next.IsNone() {
		if more && !env.degraded {
			log.Warn().
				Str("stream", p.desc.Name).
				Int("page", p.pages).
				Msg("response claims more data but carries no next page token, stopping")
		}
		p.state = StateDone
		return p.state
	}
	p.token = next
	p.state = StateHasMore
	return p.state
}

// Truncate terminates pagination early, e.g. when the record filter hit the
// end boundary. The current page still counts; truncation is terminal even
// if the API offered another page.
func (p *Paginator) Truncate() {
	p.pages++
	p.state = StateDone
}
