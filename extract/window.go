package extract

import "time"

// defaultLookback bounds the first run of an incremental stream when neither
// a bookmark nor a configured start exists.
const defaultLookback = 24 * time.Hour

// Window is the extraction window shared by all streams in a run. Start
// comes from the prior bookmark or a configured default; End is a fixed
// configured ceiling.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// ResolveStart picks the effective start time: the stored bookmark wins,
// then the configured start boundary, then now minus the default lookback.
func (w Window) ResolveStart(bookmark *time.Time) time.Time {
	if bookmark != nil {
		return *bookmark
	}
	if w.Start != nil {
		return *w.Start
	}
	return time.Now().UTC().Add(-defaultLookback)
}
