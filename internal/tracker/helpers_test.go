package tracker

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lowaak/fitkage/fitkage-app/internal/goal"
	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestModel(t *testing.T) *UIModel {
	t.Helper()
	model := NewUIModel(discardLogger(), make(chan string))
	t.Cleanup(model.Shutdown)
	return model
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memPrefs struct {
	mu     sync.Mutex
	values map[string]int
	puts   int
}

func newMemPrefs(values map[string]int) *memPrefs {
	if values == nil {
		values = map[string]int{}
	}
	return &memPrefs{values: values}
}

func (p *memPrefs) GetInt(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[key]
}

func (p *memPrefs) PutInt(key string, value int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	p.puts++
	return nil
}

type fakeSource struct {
	mu       sync.Mutex
	startErr error
	onEvent  func(StepEvent)
	starts   int
	stops    int
}

func (s *fakeSource) Name() string { return "fake step counter" }

func (s *fakeSource) Start(ctx context.Context, onEvent func(StepEvent)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	if s.startErr != nil {
		return s.startErr
	}
	s.onEvent = onEvent
	return nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	s.onEvent = nil
	return nil
}

func (s *fakeSource) emit(cumulative int) {
	s.mu.Lock()
	onEvent := s.onEvent
	s.mu.Unlock()
	if onEvent != nil {
		onEvent(StepEvent{SensorType: steps.SensorTypeStepCounter, CumulativeSteps: cumulative, Value: float64(cumulative)})
	}
}

// fakeFetcher answers FetchAsync synchronously with a fixed result.
type fakeFetcher struct {
	mu     sync.Mutex
	result goal.Result
	users  []string
}

func (f *fakeFetcher) FetchAsync(ctx context.Context, userID string, done func(goal.Result)) {
	f.mu.Lock()
	f.users = append(f.users, userID)
	result := f.result
	f.mu.Unlock()
	done(result)
}

func listenToasts(t *testing.T, model *UIModel) <-chan Toast {
	t.Helper()
	ch := make(chan Toast, 16)
	unregister := model.ListenToToast(ch)
	t.Cleanup(unregister)
	return ch
}

func nextToast(t *testing.T, ch <-chan Toast) string {
	t.Helper()
	select {
	case toast := <-ch:
		return toast.Message
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for toast")
		return ""
	}
}

func requireNoToast(t *testing.T, ch <-chan Toast) {
	t.Helper()
	select {
	case toast := <-ch:
		require.Failf(t, "unexpected toast", "%q", toast.Message)
	case <-time.After(20 * time.Millisecond):
	}
}
