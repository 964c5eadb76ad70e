package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkale/resttap/paginate"
	"github.com/mkale/resttap/ratelimit"
	"github.com/mkale/resttap/stream"
)

var testCreds = Credentials{Email: "ops@example.com", APIToken: "secret"}

func ticketsDescriptor() stream.Descriptor {
	return stream.Descriptor{
		Name:           "tickets",
		BasePath:       "/api/v2/incremental/tickets/cursor.json",
		PrimaryKey:     []string{"id"},
		ReplicationKey: "updated_at",
		Strategy:       stream.StrategyIncrementalCursor,
		PageSize:       1000,
		RecordsPath:    "tickets",
	}
}

func newTestEngine(t *testing.T, handler http.HandlerFunc) (*Engine, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, testCreds, 5*time.Second)
	require.NoError(t, err)
	return NewEngine(client, ratelimit.NopGovernor{}), srv
}

func collectRecords(dst *[]stream.Record) func(stream.Record) error {
	return func(rec stream.Record) error {
		*dst = append(*dst, rec)
		return nil
	}
}

func ticketJSON(id int, updatedAt string) string {
	return fmt.Sprintf(`{"id":%d,"updated_at":"%s"}`, id, updatedAt)
}

func TestEngine_ThreePageRoundTrip(t *testing.T) {
	var requests []string

	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "ops@example.com/token", user)
		assert.Equal(t, "secret", pass)

		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprintf(w, `{"tickets":[%s,%s],"after_url":"%s/api/v2/incremental/tickets/cursor.json?cursor=a","end_of_stream":false}`,
				ticketJSON(1, "2024-05-01T00:00:00Z"), ticketJSON(2, "2024-05-02T00:00:00Z"), srvURL(r))
		case "a":
			fmt.Fprintf(w, `{"tickets":[%s,%s],"after_url":"%s/api/v2/incremental/tickets/cursor.json?cursor=b","end_of_stream":false}`,
				ticketJSON(3, "2024-05-03T00:00:00Z"), ticketJSON(4, "2024-05-04T00:00:00Z"), srvURL(r))
		case "b":
			fmt.Fprintf(w, `{"tickets":[%s],"end_of_stream":true}`, ticketJSON(5, "2024-05-05T00:00:00Z"))
		default:
			t.Fatalf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	})

	var records []stream.Record
	res, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{}, "", nil, collectRecords(&records))
	require.NoError(t, err)

	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, float64(i+1), rec["id"], "records arrive in upstream delivery order")
	}
	assert.Equal(t, paginate.StateDone, res.State)
	assert.Equal(t, 3, res.Pages)
	assert.True(t, res.HasBookmark)
	assert.Equal(t, time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), res.Bookmark)
	assert.Len(t, requests, 3)
}

// srvURL rebuilds the test server's base URL from an incoming request.
func srvURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestEngine_StartParamFromBookmark(t *testing.T) {
	bookmark := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var gotStart string

	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start_time")
		fmt.Fprint(w, `{"tickets":[],"end_of_stream":true}`)
	})

	var records []stream.Record
	_, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{}, "", &bookmark, collectRecords(&records))
	require.NoError(t, err)

	assert.Equal(t, strconv.FormatInt(bookmark.Unix(), 10), gotStart)
}

func TestEngine_DefaultStartIsLookback(t *testing.T) {
	var gotStart string

	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start_time")
		fmt.Fprint(w, `{"tickets":[],"end_of_stream":true}`)
	})

	var records []stream.Record
	_, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{}, "", nil, collectRecords(&records))
	require.NoError(t, err)

	secs, err := strconv.ParseInt(gotStart, 10, 64)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Add(-24*time.Hour).Unix(), secs, 10)
}

func TestEngine_EndBoundTruncatesWholeStream(t *testing.T) {
	end := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	var requests int

	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		// Ascending timestamps crossing the bound; the response still offers
		// another page, which must never be requested.
		fmt.Fprintf(w, `{"tickets":[%s,%s,%s],"after_url":"%s?cursor=next","end_of_stream":false}`,
			ticketJSON(1, "2024-05-01T00:00:00Z"),
			ticketJSON(2, "2024-05-04T00:00:00Z"),
			ticketJSON(3, "2024-05-05T00:00:00Z"),
			srvURL(r))
	})

	var records []stream.Record
	res, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{End: &end}, "", nil, collectRecords(&records))
	require.NoError(t, err)

	require.Len(t, records, 1, "only records at or below the bound are yielded")
	assert.Equal(t, float64(1), records[0]["id"])
	assert.Equal(t, paginate.StateDone, res.State)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 1, requests, "truncation is terminal, no further page is requested")
}

func TestEngine_NotFoundIsFatal(t *testing.T) {
	var requests int

	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("cursor") == "a" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"tickets":[%s,%s],"after_url":"%s?cursor=a","end_of_stream":false}`,
			ticketJSON(1, "2024-05-01T00:00:00Z"), ticketJSON(2, "2024-05-02T00:00:00Z"), srvURL(r))
	})

	var records []stream.Record
	res, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{}, "", nil, collectRecords(&records))

	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.False(t, statusErr.Retryable())

	assert.Len(t, records, 2, "page one's records were already yielded")
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 2, requests, "no page three request is ever issued")
}

func TestEngine_EmptyBodyIsFatal(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		// 200 with no body at all.
	})

	var records []stream.Record
	_, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{}, "", nil, collectRecords(&records))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestEngine_MalformedPageTreatedAsEmpty(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{oops`)
	})

	var records []stream.Record
	res, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{}, "", nil, collectRecords(&records))
	require.NoError(t, err, "a single bad payload is tolerated")
	assert.Empty(t, records)
	assert.Equal(t, paginate.StateDone, res.State)
}

func TestEngine_UnparseableReplicationKeyIsFatal(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tickets":[{"id":1,"updated_at":"garbage"}],"end_of_stream":true}`)
	})

	var records []stream.Record
	_, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{}, "", nil, collectRecords(&records))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replication key")
}

func TestEngine_SkippedRecordsAreCounted(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tickets":[null,%s],"end_of_stream":true}`, ticketJSON(1, "2024-05-01T00:00:00Z"))
	})

	var records []stream.Record
	res, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{}, "", nil, collectRecords(&records))
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, res.Skipped)
}

func TestEngine_EmitErrorAborts(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tickets":[%s],"end_of_stream":true}`, ticketJSON(1, "2024-05-01T00:00:00Z"))
	})

	wantErr := errors.New("sink is full")
	_, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{}, "", nil, func(stream.Record) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestEngine_MidPageFailureKeepsPriorBookmark(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "a" {
			fmt.Fprintf(w, `{"tickets":[%s,%s],"end_of_stream":true}`,
				ticketJSON(3, "2024-05-03T00:00:00Z"), ticketJSON(4, "2024-05-04T00:00:00Z"))
			return
		}
		fmt.Fprintf(w, `{"tickets":[%s,%s],"after_url":"%s?cursor=a","end_of_stream":false}`,
			ticketJSON(1, "2024-05-01T00:00:00Z"), ticketJSON(2, "2024-05-02T00:00:00Z"), srvURL(r))
	})

	emitted := 0
	wantErr := errors.New("sink is full")
	res, err := engine.Extract(context.Background(), ticketsDescriptor(), Window{}, "", nil, func(stream.Record) error {
		emitted++
		if emitted == 3 {
			return wantErr
		}
		return nil
	})
	require.ErrorIs(t, err, wantErr)

	// The failure hit mid-page on page two; the resume point must still be
	// page one's boundary, not record three's timestamp.
	require.True(t, res.HasBookmark)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), res.Bookmark)
}

func TestEngine_MidPageCancellationYieldsNoBookmark(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tickets":[%s,%s,%s],"end_of_stream":true}`,
			ticketJSON(1, "2024-05-01T00:00:00Z"),
			ticketJSON(2, "2024-05-02T00:00:00Z"),
			ticketJSON(3, "2024-05-03T00:00:00Z"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emitted := 0
	res, err := engine.Extract(ctx, ticketsDescriptor(), Window{}, "", nil, func(stream.Record) error {
		emitted++
		if emitted == 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	assert.False(t, res.HasBookmark, "an interrupted page must not produce a resume point")
	assert.True(t, res.Bookmark.IsZero())
}

func TestEngine_ContextCancellation(t *testing.T) {
	engine, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tickets":[%s],"after_url":"%s?cursor=a","end_of_stream":false}`,
			ticketJSON(1, "2024-05-01T00:00:00Z"), srvURL(r))
	})

	ctx, cancel := context.WithCancel(context.Background())
	var records []stream.Record
	_, err := engine.Extract(ctx, ticketsDescriptor(), Window{}, "", nil, func(rec stream.Record) error {
		records = append(records, rec)
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, records, 1)
}
