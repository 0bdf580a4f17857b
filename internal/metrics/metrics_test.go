package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

type fakeBackend struct {
	mu         sync.Mutex
	counters   []counterCall
	histograms []histCall
	flushes    int
	flushErr   error
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return f.flushErr
}

func install(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	SetBackend(fb)
	t.Cleanup(Reset)
	return fb
}

func TestRecordStep(t *testing.T) {
	fb := install(t)

	RecordStep("spend", "report", nil, 1500*time.Millisecond)
	RecordStep("spend", "store", errors.New("x"), time.Second)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("calls: counters=%d histograms=%d, want 2/2", len(fb.counters), len(fb.histograms))
	}
	c := fb.counters[0]
	if c.name != StepTotal || c.delta != 1 || c.labels["step"] != "report" || c.labels["status"] != "success" || c.labels["job"] != "spend" {
		t.Fatalf("first counter = %+v", c)
	}
	if fb.counters[1].labels["status"] != "failure" {
		t.Fatalf("second status = %q, want failure", fb.counters[1].labels["status"])
	}
	if h := fb.histograms[0]; h.name != StepDurationSeconds || h.value != 1.5 {
		t.Fatalf("histogram = %+v", h)
	}
}

func TestRecordRowAndBatches_IgnoreNonPositive(t *testing.T) {
	fb := install(t)

	RecordRow("terms", "loaded", 0)
	RecordRow("terms", "loaded", -3)
	RecordBatches("terms", 0)
	if len(fb.counters) != 0 {
		t.Fatalf("counters = %v, want none", fb.counters)
	}

	RecordRow("terms", "rejected", 4)
	RecordBatches("terms", 2)
	if len(fb.counters) != 2 {
		t.Fatalf("counters = %d, want 2", len(fb.counters))
	}
	if c := fb.counters[0]; c.name != RowsTotal || c.delta != 4 || c.labels["kind"] != "rejected" {
		t.Fatalf("rows counter = %+v", c)
	}
	if c := fb.counters[1]; c.name != BatchesTotal || c.delta != 2 {
		t.Fatalf("batches counter = %+v", c)
	}
}

func TestFlushAndSetBackendNil(t *testing.T) {
	fb := install(t)
	fb.flushErr = errors.New("push failed")

	SetBackend(nil)
	if err := Flush(); err == nil || fb.flushes != 1 {
		t.Fatalf("Flush() = %v, flushes=%d; want error from installed backend", err, fb.flushes)
	}

	Reset()
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush() = %v", err)
	}
}
