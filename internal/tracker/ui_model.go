package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lowaak/fitkage/fitkage-app/internal/events"
	"github.com/lowaak/fitkage/fitkage-app/internal/go_func_utils"
	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
)

// Toast is a short message shown on top of the stats.
type Toast struct {
	Message string
	At      time.Time
}

// SensorStatus describes the step source for the stats panel.
type SensorStatus struct {
	Name      string
	Available bool
	Detail    string
}

type UIModel struct {
	logEvent              *events.ChannelEvent[string]
	statsEvent            *events.ChannelEvent[steps.Stats]
	stats                 steps.Stats
	toastEvent            *events.ChannelEvent[Toast]
	sensorStatusEvent     *events.ChannelEvent[SensorStatus]
	sensorStatus          SensorStatus
	closeApplicationEvent *events.ChannelEvent[struct{}]
	logLines              []string
	logMu                 sync.RWMutex
	mu                    sync.RWMutex
	ctx                   context.Context
	cancel                context.CancelFunc
	wg                    sync.WaitGroup
	logger                *log.Logger
}

const maxLogLines = 1000

func NewUIModel(logger *log.Logger, uiLogChan <-chan string) *UIModel {
	if logger == nil {
		panic("UIModel: logger cannot be nil")
	}
	if uiLogChan == nil {
		panic("UIModel: uiLogChan cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	model := &UIModel{
		logEvent:              events.NewChannelEvent[string](false),
		statsEvent:            events.NewChannelEvent[steps.Stats](true),
		toastEvent:            events.NewChannelEvent[Toast](false),
		sensorStatusEvent:     events.NewChannelEvent[SensorStatus](true),
		closeApplicationEvent: events.NewChannelEvent[struct{}](true),
		logLines:              make([]string, 0, maxLogLines),
		ctx:                   ctx,
		cancel:                cancel,
		logger:                logger,
	}

	// Read from the UI log channel and populate logLines
	go_func_utils.SafeGoWG(model.logger, &model.wg, func() { model.readFromLogChannel(ctx, uiLogChan) })

	return model
}

// Shutdown stops all goroutines and waits for them to finish
func (m *UIModel) Shutdown() {
	m.logger.Println("UIModel: Shutting down")
	m.cancel()
	m.wg.Wait()
	m.logger.Println("UIModel: Shutdown complete")
}

// ListenToLog registers a channel to receive log messages
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToLog(ch chan<- string) func() {
	return m.logEvent.Listen(ch)
}

// ListenToStats registers a channel to receive step stats
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToStats(ch chan<- steps.Stats) func() {
	return m.statsEvent.Listen(ch)
}

// GetStats returns the most recent step stats
func (m *UIModel) GetStats() steps.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// SetStats replaces the step stats and notifies listeners
func (m *UIModel) SetStats(stats steps.Stats) {
	m.mu.Lock()
	m.stats = stats
	m.mu.Unlock()

	m.statsEvent.Notify(stats)
}

// ListenToToast registers a channel to receive toasts
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToToast(ch chan<- Toast) func() {
	return m.toastEvent.Listen(ch)
}

// ShowToast logs message and shows it to the user
func (m *UIModel) ShowToast(message string) {
	m.logger.Printf("Toast: %s", message)
	m.toastEvent.Notify(Toast{Message: message, At: time.Now()})
}

// ListenToSensorStatus registers a channel to receive step source status changes
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToSensorStatus(ch chan<- SensorStatus) func() {
	return m.sensorStatusEvent.Listen(ch)
}

// GetSensorStatus returns the current step source status
func (m *UIModel) GetSensorStatus() SensorStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sensorStatus
}

// SetSensorStatus updates the step source status and notifies listeners
func (m *UIModel) SetSensorStatus(status SensorStatus) {
	m.mu.Lock()
	if m.sensorStatus == status {
		m.mu.Unlock()
		return
	}
	m.sensorStatus = status
	m.mu.Unlock()

	m.sensorStatusEvent.Notify(status)
}

// ListenToCloseApplication registers a channel to receive close application signals
// Returns a deregistration function that can be called to remove the listener
func (m *UIModel) ListenToCloseApplication(ch chan<- struct{}) func() {
	return m.closeApplicationEvent.Listen(ch)
}

// RequestCloseApplication signals that the application should close
func (m *UIModel) RequestCloseApplication() {
	m.closeApplicationEvent.Notify(struct{}{})
}

// readFromLogChannel reads log lines from the channel and populates logLines
func (m *UIModel) readFromLogChannel(ctx context.Context, logChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logChan:
			if !ok {
				return
			}

			m.logMu.Lock()
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > maxLogLines {
				// keep the most recent maxLogLines
				m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
			}
			m.logMu.Unlock()

			m.logEvent.Notify(line)
		}
	}
}

// GetLogTail returns the last n lines of logs
func (m *UIModel) GetLogTail(n int) []string {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	if n <= 0 {
		return []string{}
	}
	if n >= len(m.logLines) {
		result := make([]string, len(m.logLines))
		copy(result, m.logLines)
		return result
	}
	result := make([]string, n)
	copy(result, m.logLines[len(m.logLines)-n:])
	return result
}
