package tracker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
)

func TestUIModel_StatsReplayLatest(t *testing.T) {
	model := newTestModel(t)
	model.SetStats(steps.Stats{Steps: 3})
	model.SetStats(steps.Stats{Steps: 7, Goal: 10})

	ch := make(chan steps.Stats, 1)
	unregister := model.ListenToStats(ch)
	defer unregister()

	select {
	case stats := <-ch:
		assert.Equal(t, 7, stats.Steps)
	case <-time.After(time.Second):
		t.Fatal("no replayed stats")
	}
	assert.Equal(t, 10, model.GetStats().Goal)
}

func TestUIModel_SensorStatusDeduplicates(t *testing.T) {
	model := newTestModel(t)
	ch := make(chan SensorStatus, 4)
	unregister := model.ListenToSensorStatus(ch)
	defer unregister()

	status := SensorStatus{Name: "pedometer", Available: true}
	model.SetSensorStatus(status)
	model.SetSensorStatus(status)

	assert.Equal(t, status, <-ch)
	select {
	case s := <-ch:
		t.Fatalf("unexpected duplicate status %+v", s)
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, status, model.GetSensorStatus())
}

func TestUIModel_LogTail(t *testing.T) {
	logChan := make(chan string, 10)
	model := NewUIModel(discardLogger(), logChan)
	t.Cleanup(model.Shutdown)

	for i := 0; i < 5; i++ {
		logChan <- fmt.Sprintf("line %d\n", i)
	}

	require.Eventually(t, func() bool {
		return len(model.GetLogTail(10)) == 5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"line 3\n", "line 4\n"}, model.GetLogTail(2))
	assert.Empty(t, model.GetLogTail(0))
}

func TestUIModel_LogTailIsBounded(t *testing.T) {
	logChan := make(chan string)
	model := NewUIModel(discardLogger(), logChan)
	t.Cleanup(model.Shutdown)

	for i := 0; i < maxLogLines+10; i++ {
		logChan <- fmt.Sprintf("%d\n", i)
	}

	require.Eventually(t, func() bool {
		tail := model.GetLogTail(1)
		return len(tail) == 1 && tail[0] == fmt.Sprintf("%d\n", maxLogLines+9)
	}, time.Second, 5*time.Millisecond)
	all := model.GetLogTail(maxLogLines * 2)
	assert.Len(t, all, maxLogLines)
	assert.Equal(t, "10\n", all[0])
}

func TestUIModel_ShowToast(t *testing.T) {
	model := newTestModel(t)
	toasts := listenToasts(t, model)

	model.ShowToast("hello")
	assert.Equal(t, "hello", nextToast(t, toasts))
}

func TestNewUIModel_RequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { NewUIModel(nil, make(chan string)) })
	assert.Panics(t, func() { NewUIModel(discardLogger(), nil) })
}
