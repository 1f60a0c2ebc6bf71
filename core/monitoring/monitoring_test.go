package monitoring

import (
	"errors"
	"testing"
	"time"
)

type captureMonitor struct {
	errs []error
	tags []map[string]string
}

func (c *captureMonitor) CaptureException(err error, tags map[string]string) {
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
}
func (c *captureMonitor) Flush(time.Duration) {}

func TestCaptureException(t *testing.T) {
	m := &captureMonitor{}
	Init(m)
	defer Init(nil)

	CaptureException(nil, nil)
	CaptureException(errors.New("window 3 failed"), map[string]string{"window": "3"})
	if len(m.errs) != 1 {
		t.Fatalf("expected 1 capture got %d", len(m.errs))
	}
	if m.tags[0]["window"] != "3" {
		t.Fatalf("tags not forwarded: %v", m.tags[0])
	}
}
