package extract

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkale/resttap/paginate"
	"github.com/mkale/resttap/ratelimit"
	"github.com/mkale/resttap/stream"
)

// Result summarises one stream invocation. Bookmark is the in-memory
// high-water mark accumulated over the run; the caller decides whether and
// where to persist it.
type Result struct {
	Bookmark    time.Time
	HasBookmark bool
	Records     int
	Skipped     int
	Pages       int
	State       paginate.State
}

// Engine orchestrates one stream extraction: credential attachment, request
// execution, response validation, paginator advancement and bookmark
// accumulation. One Engine serves all streams sequentially; the shared rate
// governor is the only cross-stream state.
type Engine struct {
	client *Client
	gov    ratelimit.Governor
}

func NewEngine(client *Client, gov ratelimit.Governor) *Engine {
	if gov == nil {
		gov = ratelimit.NopGovernor{}
	}
	return &Engine{client: client, gov: gov}
}

// Extract drains one stream, calling emit for every record in upstream
// delivery order, and returns the final in-memory bookmark. An error from
// emit aborts the extraction. Errors unwind the whole call; the Result
// still reflects what was processed before the failure.
func (e *Engine) Extract(
	ctx context.Context,
	d stream.Descriptor,
	w Window,
	partition string,
	bookmark *time.Time,
	emit func(stream.Record) error,
) (Result, error) {
	res := Result{}

	if err := d.Check(); err != nil {
		return res, err
	}

	startTime := w.ResolveStart(bookmark)
	pag, err := paginate.New(d, startTime.Unix())
	if err != nil {
		return res, err
	}
	filter := NewFilter(d, w)
	path := d.Path(partition)

	log.Info().
		Str("stream", d.Name).
		Str("partition", partition).
		Str("strategy", string(d.Strategy)).
		Time("start_time", startTime).
		Msg("starting extraction")

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		params, err := pag.Params()
		if err != nil {
			return res, err
		}
		if pag.Pages() == 0 && d.TimeFilterParams {
			params.Set("start_time", strconv.FormatInt(startTime.Unix(), 10))
			if w.End != nil {
				params.Set("end_time", strconv.FormatInt(w.End.Unix(), 10))
			}
		}

		e.gov.BeforeSend(ctx)

		body, headers, err := e.client.Get(ctx, path, params)
		if headers != nil {
			e.gov.AfterReceive(headers)
		}
		if err != nil {
			return res, err
		}
		if len(body) == 0 {
			return res, fmt.Errorf("received empty response for stream %s page %d", d.Name, pag.Pages()+1)
		}

		env, err := paginate.Parse(body, d.RecordsPath)
		if err != nil {
			// One bad payload is tolerated: the page is treated as empty and
			// pagination takes its normal course.
			log.Warn().Err(err).Str("stream", d.Name).Int("page", pag.Pages()+1).Msg("unparsable page, treating as empty")
			env = paginate.Empty()
		}

		kept := 0
		truncated := false
		// The page's bookmark is staged here and folded into the result only
		// once the whole page has been emitted. A failure mid-page must not
		// advance the resume point past the last completed page.
		pageMark, pageHas := res.Bookmark, res.HasBookmark
		for _, rec := range env.Records {
			action, ts, err := filter.Accept(rec)
			if err != nil {
				return res, err
			}
			switch action {
			case Skip:
				res.Skipped++
				continue
			case StopStream:
				truncated = true
			case Keep:
				if err := d.Validate(rec); err != nil {
					return res, err
				}
				if err := emit(rec); err != nil {
					return res, err
				}
				kept++
				res.Records++
				if !ts.IsZero() && (!pageHas || ts.After(pageMark)) {
					pageMark = ts
					pageHas = true
				}
			}
			if truncated {
				break
			}
		}
		res.Bookmark, res.HasBookmark = pageMark, pageHas

		if truncated {
			pag.Truncate()
		} else {
			pag.Advance(env)
		}
		res.State = pag.State()
		res.Pages = pag.Pages()

		log.Debug().
			Str("stream", d.Name).
			Int("page", res.Pages).
			Int("records", len(env.Records)).
			Int("kept", kept).
			Str("next_token", pag.Token().String()).
			Str("state", pag.State().String()).
			Msg("page processed")

		if pag.State() == paginate.StateDone {
			break
		}
	}

	log.Info().
		Str("stream", d.Name).
		Int("records", res.Records).
		Int("skipped", res.Skipped).
		Int("pages", res.Pages).
		Time("bookmark", res.Bookmark).
		Msg("extraction finished")

	return res, nil
}
