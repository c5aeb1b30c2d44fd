package output

import (
	"context"
	"fmt"
	"time"
)

func StatusBar(ctx context.Context, refreshRate time.Duration, printF func()) {
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			printF()
		case <-ctx.Done():
			return
		}
	}
}

// IngestStatus prints the ingestion progress of samples on every tick.
type IngestStatus struct {
	samples func() uint64
	last    uint64
	lastAt  time.Time
}

func NewIngestStatus(samples func() uint64) *IngestStatus {
	return &IngestStatus{samples: samples, lastAt: time.Now()}
}

// Line returns the status line at now.
func (s *IngestStatus) Line(now time.Time) string {
	n := s.samples()
	var rate uint64
	if elapsed := now.Sub(s.lastAt).Seconds(); elapsed > 0 && n >= s.last {
		rate = uint64(float64(n-s.last) / elapsed)
	}
	s.last, s.lastAt = n, now

	return PrettyIngestStatus(n, rate)
}

func (s *IngestStatus) Print() {
	PrintRight(s.Line(time.Now()))
}

func PrettyIngestStatus(samples, rate uint64) string {
	return fmt.Sprintf("%-24s %-20s",
		fmt.Sprintf("Samples: %d", samples),
		fmt.Sprintf("Samples/s: %d", rate),
	)
}
