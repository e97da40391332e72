package upload

import (
	"io"
	"time"
)

// ProgressFunc receives the latest whole-number percentage as bytes
// flow through a ProgressReader.
type ProgressFunc func(pct int)

// ProgressReader wraps an io.Reader of known total length and reports
// percentage complete through a callback. The wrapper is transparent:
// byte content and order are untouched. Callbacks are throttled to the
// sampling interval so a fast transfer does not flood the caller; the
// 100% mark is always delivered.
type ProgressReader struct {
	r        io.Reader
	total    int64
	seen     int64
	interval time.Duration
	lastAt   time.Time
	lastPct  int
	fn       ProgressFunc
}

// NewProgressReader wraps r. A non-positive total disables reporting
// entirely rather than dividing by zero.
func NewProgressReader(r io.Reader, total int64, interval time.Duration, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{
		r:        r,
		total:    total,
		interval: interval,
		lastPct:  -1,
		fn:       fn,
	}
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.seen += int64(n)
		pr.report()
	}
	return n, err
}

func (pr *ProgressReader) report() {
	if pr.total <= 0 || pr.fn == nil {
		return
	}
	pct := int(pr.seen * 100 / pr.total)
	if pct > 100 {
		pct = 100
	}
	if pct <= pr.lastPct {
		return
	}
	now := time.Now()
	if pct < 100 && pr.interval > 0 && now.Sub(pr.lastAt) < pr.interval {
		return
	}
	pr.lastPct = pct
	pr.lastAt = now
	pr.fn(pct)
}
