package paginate

import (
	"fmt"
	"net/url"
)

// Kind discriminates the PageToken union.
type Kind int

const (
	// KindNone means no token: the first page, or no further page.
	KindNone Kind = iota
	// KindCursor is an opaque cursor string issued by the API.
	KindCursor
	// KindTimeWindow is a computed start time in unix seconds, used for the
	// first request of an incremental export.
	KindTimeWindow
	// KindLink is a full next-page URL whose query string is replayed.
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCursor:
		return "cursor"
	case KindTimeWindow:
		return "time-window"
	case KindLink:
		return "link"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// PageToken is a tagged union over the "next page" representations the
// supported strategies use. Only the variant matching the active strategy is
// valid; handing a codec the wrong variant is a programming error and is
// reported as one.
type PageToken struct {
	kind   Kind
	cursor string
	start  int64
	link   *url.URL
}

func None() PageToken { return PageToken{kind: KindNone} }

func Cursor(value string) PageToken { return PageToken{kind: KindCursor, cursor: value} }

func TimeWindow(unixSeconds int64) PageToken {
	return PageToken{kind: KindTimeWindow, start: unixSeconds}
}

func Link(u *url.URL) PageToken { return PageToken{kind: KindLink, link: u} }

func (t PageToken) Kind() Kind   { return t.kind }
func (t PageToken) IsNone() bool { return t.kind == KindNone }

// String renders the token for page-boundary logging.
func (t PageToken) String() string {
	switch t.kind {
	case KindNone:
		return ""
	case KindCursor:
		return t.cursor
	case KindTimeWindow:
		return fmt.Sprintf("start_time=%d", t.start)
	case KindLink:
		return t.link.String()
	}
	return ""
}
