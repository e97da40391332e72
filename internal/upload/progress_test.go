package upload

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"
	"time"
)

func TestProgressReaderIsTransparent(t *testing.T) {
	payload := make([]byte, 64*1024)
	if _, err := rand.Read(payload); err != nil {
		t.Fatal(err)
	}

	pr := NewProgressReader(bytes.NewReader(payload), int64(len(payload)), 0, func(int) {})
	got, err := io.ReadAll(pr)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("wrapped stream altered byte content")
	}
}

func TestProgressReaderReportsMonotonicallyToFull(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 10000)

	var pcts []int
	pr := NewProgressReader(bytes.NewReader(payload), int64(len(payload)), 0, func(pct int) {
		pcts = append(pcts, pct)
	})
	if _, err := io.Copy(io.Discard, pr); err != nil {
		t.Fatalf("copy: %v", err)
	}

	if len(pcts) == 0 {
		t.Fatal("no progress reported")
	}
	for i := 1; i < len(pcts); i++ {
		if pcts[i] <= pcts[i-1] {
			t.Fatalf("progress not strictly increasing: %v", pcts)
		}
	}
	if last := pcts[len(pcts)-1]; last != 100 {
		t.Fatalf("final percentage = %d, want 100", last)
	}
	for _, p := range pcts {
		if p < 0 || p > 100 {
			t.Fatalf("percentage out of range: %d", p)
		}
	}
}

func TestProgressReaderThrottlesButDeliversFinal(t *testing.T) {
	payload := bytes.Repeat([]byte("y"), 1<<20)

	var calls int
	var last int
	pr := NewProgressReader(bytes.NewReader(payload), int64(len(payload)), time.Hour, func(pct int) {
		calls++
		last = pct
	})

	// Small read sizes would produce hundreds of percentage steps
	// without throttling.
	buf := make([]byte, 4096)
	for {
		_, err := pr.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}

	// One initial sample plus the guaranteed 100% mark.
	if calls > 2 {
		t.Fatalf("callback fired %d times despite hour-long interval", calls)
	}
	if last != 100 {
		t.Fatalf("final reported percentage = %d, want 100", last)
	}
}

func TestProgressReaderZeroTotalSkipsReporting(t *testing.T) {
	tests := []struct {
		name  string
		total int64
	}{
		{"zero", 0},
		{"unknown", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			pr := NewProgressReader(bytes.NewReader([]byte("data")), tt.total, 0, func(int) {
				called = true
			})
			got, err := io.ReadAll(pr)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != "data" {
				t.Fatal("stream content changed")
			}
			if called {
				t.Fatal("callback fired for unreportable total")
			}
		})
	}
}
