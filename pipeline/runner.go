package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkale/resttap/bookmark"
	"github.com/mkale/resttap/extract"
	"github.com/mkale/resttap/sinks"
	"github.com/mkale/resttap/stream"
)

// Runner drains the selected streams one after another: one stream finishes
// before the next begins, so the single rate governor budget reflects the
// true call rate against the API.
type Runner struct {
	cfg    Config
	window extract.Window
	engine *extract.Engine
	store  bookmark.Store
	sink   sinks.Sink
	status *Registry
}

func NewRunner(cfg Config) (*Runner, error) {
	window, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	client, err := extract.NewClient(cfg.baseURL(), extract.Credentials{
		Email:    cfg.Email,
		APIToken: cfg.APIToken,
	}, cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	store, err := bookmark.New(cfg.Bookmarks.Backend, bookmark.Config{Dir: cfg.Bookmarks.Dir})
	if err != nil {
		return nil, err
	}
	sink, err := sinks.New(cfg.Sink)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &Runner{
		cfg:    cfg,
		window: window,
		engine: extract.NewEngine(client, cfg.Governor()),
		store:  store,
		sink:   sink,
		status: NewRegistry(),
	}, nil
}

func (r *Runner) Status() *Registry { return r.status }

func (r *Runner) Close() error { return r.store.Close() }

// selected resolves the configured stream names against the catalog,
// preserving catalog order so parents run before their children.
func (r *Runner) selected() ([]stream.Descriptor, error) {
	catalog := stream.Catalog()
	if len(r.cfg.Streams) == 0 {
		return catalog, nil
	}
	wanted := make(map[string]bool, len(r.cfg.Streams))
	for _, name := range r.cfg.Streams {
		wanted[name] = true
	}
	var out []stream.Descriptor
	for _, d := range catalog {
		if !wanted[d.Name] {
			continue
		}
		if d.Parent != "" && !wanted[d.Parent] {
			return nil, fmt.Errorf("stream %s requires its parent stream %s", d.Name, d.Parent)
		}
		out = append(out, d)
	}
	return out, nil
}

// Run extracts every selected stream. A fatal error aborts that stream only;
// sibling streams still run. The joined error reports everything that failed.
func (r *Runner) Run(ctx context.Context) error {
	descriptors, err := r.selected()
	if err != nil {
		return err
	}

	if err := r.sink.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := r.sink.Disconnect(); err != nil {
			log.Err(err).Msg("error disconnecting sink")
		}
	}()
	log.Info().Str("sink", r.sink.Info()).Int("streams", len(descriptors)).Msg("starting run")

	// Parents whose record ids at least one selected child stream needs.
	needIDs := make(map[string]bool)
	for _, d := range descriptors {
		if d.Parent != "" {
			needIDs[d.Parent] = true
		}
	}

	childIDs := make(map[string][]string)
	var errs []error

	for _, d := range descriptors {
		if d.Parent != "" {
			continue
		}
		r.status.Start(d.Name)
		res, ids, err := r.runStream(ctx, d, "", needIDs[d.Name])
		if needIDs[d.Name] {
			childIDs[d.Name] = ids
		}
		if err != nil {
			r.status.Fail(d.Name, err)
			errs = append(errs, fmt.Errorf("stream %s: %w", d.Name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		r.status.Finish(d.Name, res.Records, res.Pages, res.Bookmark)
	}

	for _, d := range descriptors {
		if d.Parent == "" || ctx.Err() != nil {
			continue
		}
		r.status.Start(d.Name)
		records, pages := 0, 0
		var last time.Time
		failed := false
		for _, id := range childIDs[d.Parent] {
			res, _, err := r.runStream(ctx, d, id, false)
			records += res.Records
			pages += res.Pages
			if res.Bookmark.After(last) {
				last = res.Bookmark
			}
			if err != nil {
				r.status.Fail(d.Name, err)
				errs = append(errs, fmt.Errorf("stream %s partition %s: %w", d.Name, id, err))
				failed = true
				break
			}
			r.status.Progress(d.Name, records, pages)
		}
		if !failed {
			r.status.Finish(d.Name, records, pages, last)
		}
	}

	return errors.Join(errs...)
}

// runStream performs one stream invocation: bookmark lookup, extraction,
// and bookmark persistence. The bookmark is written only after the stream
// completes or is cleanly interrupted at a page boundary, never mid-page.
func (r *Runner) runStream(ctx context.Context, d stream.Descriptor, partition string, collectIDs bool) (extract.Result, []string, error) {
	var bm *time.Time
	if d.Incremental() {
		v, ok, err := r.store.Get(d.Name, partition)
		if err != nil {
			return extract.Result{}, nil, err
		}
		if ok {
			bm = &v
		}
	}

	var ids []string
	emit := func(rec stream.Record) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := r.sink.Write(ctx, sinks.Row{Stream: d.Name, Data: data}); err != nil {
			return err
		}
		if collectIDs {
			if id, ok := recordID(rec); ok {
				ids = append(ids, id)
			}
		}
		return nil
	}

	res, err := r.engine.Extract(ctx, d, r.window, partition, bm, emit)
	cancelled := err != nil && errors.Is(err, context.Canceled)
	if err != nil && !cancelled {
		return res, ids, err
	}

	if d.Incremental() && res.HasBookmark {
		if serr := r.store.Set(d.Name, partition, res.Bookmark); serr != nil {
			log.Err(serr).Str("stream", d.Name).Msg("failed to persist bookmark")
			return res, ids, serr
		}
		log.Debug().Str("stream", d.Name).Time("bookmark", res.Bookmark).Msg("bookmark persisted")
	}
	return res, ids, err
}

// recordID reads the id field that child streams substitute into their path.
func recordID(rec stream.Record) (string, bool) {
	v, ok := rec["id"]
	if !ok {
		return "", false
	}
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatInt(int64(id), 10), true
	case int64:
		return strconv.FormatInt(id, 10), true
	default:
		return "", false
	}
}
