package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
)

type viewState struct {
	initialized bool
	keysSetUp   bool
	stopped     bool
	draws       int
	stats       steps.Stats
	status      SensorStatus
	toast       string
	logLines    []string
}

type fakeView struct {
	mu sync.Mutex
	viewState
}

func (v *fakeView) Initialize(controller *UIController) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.initialized = true
}

func (v *fakeView) SetupKeyboardHandlers(controller *UIController) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keysSetUp = true
}

func (v *fakeView) Run() error { return nil }

func (v *fakeView) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopped = true
}

func (v *fakeView) Draw() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.draws++
	return nil
}

func (v *fakeView) GetLogViewHeight() int { return 3 }

func (v *fakeView) ClearLogView() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logLines = nil
}

func (v *fakeView) WriteLogLine(line string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logLines = append(v.logLines, line)
	return nil
}

func (v *fakeView) UpdateStats(stats steps.Stats) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stats = stats
}

func (v *fakeView) UpdateSensorStatus(status SensorStatus) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = status
}

func (v *fakeView) ShowToast(toast Toast) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.toast = toast.Message
}

func (v *fakeView) ClearToast() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.toast = ""
}

func (v *fakeView) snapshot() viewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.viewState
	s.logLines = append([]string(nil), v.logLines...)
	return s
}

func newTestBaseView(t *testing.T, logChan chan string) (*BaseUIView, *fakeView, *UIModel) {
	t.Helper()
	model := NewUIModel(discardLogger(), logChan)
	t.Cleanup(model.Shutdown)
	f := newControllerFixture(t, 0)
	controller := NewUIController(model, f.ctrl, discardLogger())

	view := &fakeView{}
	base := NewBaseUIView(NewBaseUIViewArg{
		UIViewImpl:    view,
		UIModel:       model,
		UIController:  controller,
		FPS:           100,
		ToastDuration: 30 * time.Millisecond,
		Logger:        discardLogger(),
	})
	t.Cleanup(base.Shutdown)
	return base, view, model
}

func TestBaseUIView_InitializesView(t *testing.T) {
	_, view, _ := newTestBaseView(t, make(chan string))
	s := view.snapshot()
	assert.True(t, s.initialized)
	assert.True(t, s.keysSetUp)
}

func TestBaseUIView_ForwardsStatsAndStatus(t *testing.T) {
	_, view, model := newTestBaseView(t, make(chan string))

	model.SetStats(steps.Stats{Steps: 42, Goal: 100})
	model.SetSensorStatus(SensorStatus{Name: "pedometer", Available: true})

	require.Eventually(t, func() bool {
		s := view.snapshot()
		return s.stats.Steps == 42 && s.status.Available
	}, time.Second, 5*time.Millisecond)
}

func TestBaseUIView_ToastClearsAfterDuration(t *testing.T) {
	_, view, model := newTestBaseView(t, make(chan string))

	model.ShowToast(MsgGoalReached)
	require.Eventually(t, func() bool {
		return view.snapshot().toast == MsgGoalReached
	}, time.Second, 2*time.Millisecond)
	require.Eventually(t, func() bool {
		return view.snapshot().toast == ""
	}, time.Second, 5*time.Millisecond)
}

func TestBaseUIView_ShowsLogTail(t *testing.T) {
	logChan := make(chan string, 8)
	_, view, _ := newTestBaseView(t, logChan)

	for _, line := range []string{"a\n", "b\n", "c\n", "d\n"} {
		logChan <- line
	}
	require.Eventually(t, func() bool {
		lines := view.snapshot().logLines
		return len(lines) == 3 && lines[2] == "d\n"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"b\n", "c\n", "d\n"}, view.snapshot().logLines)
}

func TestBaseUIView_FrameLoopDraws(t *testing.T) {
	_, view, _ := newTestBaseView(t, make(chan string))
	require.Eventually(t, func() bool {
		return view.snapshot().draws >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestBaseUIView_CloseStopsView(t *testing.T) {
	_, view, model := newTestBaseView(t, make(chan string))
	model.RequestCloseApplication()
	require.Eventually(t, func() bool {
		return view.snapshot().stopped
	}, time.Second, 5*time.Millisecond)
}
