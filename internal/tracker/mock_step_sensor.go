package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/lowaak/fitkage/fitkage-app/internal/events"
	"github.com/lowaak/fitkage/fitkage-app/internal/go_func_utils"
	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
)

const (
	DefaultMockCadenceSPM = 100.0
	DefaultMockHeartRate  = 90
	DefaultMockInterval   = time.Second
)

// MockStepSensor is a step source for running without hardware. It walks at
// a configurable cadence and serves a small web page to change it, add steps
// or simulate a device reboot.
type MockStepSensor struct {
	logger *log.Logger
	config MockStepSensorConfig
	clock  func() time.Time

	readings *events.CallbackEvent[StepEvent]
	// emitMu keeps readings in count order across the ticker and the control page.
	emitMu   sync.Mutex

	mu         sync.Mutex
	unlisten   func()
	cadence    float64
	heartRate  int
	count      int
	remainder  float64
	lastUpdate time.Time
	running    bool

	// Web server management
	listener net.Listener
	server   *http.Server
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// MockStepSensorConfig holds configuration for creating a mock step sensor
type MockStepSensorConfig struct {
	// ServerPort is the control page port. 0 picks a free port, negative disables the page.
	ServerPort int
	CadenceSPM float64
	HeartRate  int
	// InitialCount is the cumulative count the sensor reports when started.
	InitialCount int
	Interval     time.Duration
	Clock        func() time.Time
}

// MockStepSensorState is the control page's view of the sensor
type MockStepSensorState struct {
	CadenceSPM float64 `json:"cadenceSpm"`
	HeartRate  int     `json:"heartRate"`
	Count      int     `json:"count"`
	Running    bool    `json:"running"`
}

func NewMockStepSensor(logger *log.Logger, config MockStepSensorConfig) *MockStepSensor {
	if logger == nil {
		panic("MockStepSensor: logger cannot be nil")
	}
	if config.CadenceSPM < 0 {
		config.CadenceSPM = 0
	}
	if config.HeartRate <= 0 {
		config.HeartRate = DefaultMockHeartRate
	}
	if config.Interval <= 0 {
		config.Interval = DefaultMockInterval
	}
	if config.InitialCount < 0 {
		config.InitialCount = 0
	}
	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	return &MockStepSensor{
		logger:    logger,
		config:    config,
		clock:     clock,
		readings:  events.NewCallbackEvent[StepEvent](false),
		cadence:   config.CadenceSPM,
		heartRate: config.HeartRate,
		count:     config.InitialCount,
	}
}

func (m *MockStepSensor) Name() string {
	return "Mock step sensor"
}

// Start begins emitting readings to onEvent and starts the control page.
func (m *MockStepSensor) Start(ctx context.Context, onEvent func(StepEvent)) error {
	if onEvent == nil {
		return errors.New("mock step sensor: onEvent cannot be nil")
	}
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("mock step sensor: already started")
	}

	if m.config.ServerPort >= 0 {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", m.config.ServerPort))
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("mock step sensor: listen: %w", err)
		}
		m.listener = listener
		m.server = &http.Server{Handler: m.handler()}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.unlisten = m.readings.Listen(onEvent)
	m.running = true
	m.lastUpdate = m.clock()
	server, listener := m.server, m.listener
	m.mu.Unlock()

	if server != nil {
		go_func_utils.SafeGoWG(m.logger, &m.wg, func() {
			m.logger.Printf("MockStepSensor: Web server starting on http://%s", listener.Addr())
			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.logger.Printf("MockStepSensor: Web server error: %v", err)
			}
		})
	}
	go_func_utils.SafeGoWG(m.logger, &m.wg, func() { m.run(runCtx) })

	m.logger.Printf("MockStepSensor: Started at %.0f steps/min", m.config.CadenceSPM)
	// A step counter reports its current total as soon as it is registered.
	m.emit()
	return nil
}

// Stop stops emitting readings and shuts the control page down. Safe to call repeatedly.
func (m *MockStepSensor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	cancel, server, unlisten := m.cancel, m.server, m.unlisten
	m.server, m.listener, m.cancel, m.unlisten = nil, nil, nil, nil
	m.mu.Unlock()

	unlisten()
	cancel()
	var err error
	if server != nil {
		ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err = server.Shutdown(ctx); err != nil {
			m.logger.Printf("MockStepSensor: Error shutting down web server: %v", err)
		}
	}
	m.wg.Wait()
	m.logger.Println("MockStepSensor: Stopped")
	return err
}

// Addr returns the control page address, or "" when it is not serving.
func (m *MockStepSensor) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *MockStepSensor) run(ctx context.Context) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(m.clock())
		}
	}
}

// tick walks from the last update to now and reports the new total.
func (m *MockStepSensor) tick(now time.Time) {
	m.mu.Lock()
	elapsed := now.Sub(m.lastUpdate).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	if m.cadence > 0 && elapsed > 0 {
		total := m.cadence/60.0*elapsed + m.remainder
		whole := int(total)
		m.remainder = total - float64(whole)
		m.count += whole
	}
	m.lastUpdate = now
	m.mu.Unlock()

	m.emit()
}

func (m *MockStepSensor) emit() {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	count, heartRate := m.count, m.heartRate
	m.mu.Unlock()

	m.readings.Notify(StepEvent{SensorType: steps.SensorTypeStepCounter, CumulativeSteps: count, Value: float64(count)})
	m.readings.Notify(StepEvent{SensorType: steps.SensorTypeHeartRate, Value: float64(heartRate)})
}

// AddSteps adds n steps to the cumulative count straight away.
func (m *MockStepSensor) AddSteps(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.count += n
	m.mu.Unlock()
	m.logger.Printf("MockStepSensor: Added %d steps", n)
	m.emit()
}

// Reboot drops the cumulative count to zero, as a phone does after a restart.
func (m *MockStepSensor) Reboot() {
	m.mu.Lock()
	m.count = 0
	m.remainder = 0
	m.mu.Unlock()
	m.logger.Println("MockStepSensor: Rebooted, count reset to 0")
	m.emit()
}

// SetCadence changes the walking pace in steps per minute.
func (m *MockStepSensor) SetCadence(spm float64) {
	if spm < 0 {
		spm = 0
	}
	m.mu.Lock()
	m.cadence = spm
	m.mu.Unlock()
}

func (m *MockStepSensor) SetHeartRate(bpm int) {
	m.mu.Lock()
	m.heartRate = bpm
	m.mu.Unlock()
}

// ListenToReadings registers an extra observer of every reading, running or not.
// The returned function removes it.
func (m *MockStepSensor) ListenToReadings(callback func(StepEvent)) func() {
	return m.readings.Listen(callback)
}

// State returns a snapshot for the control page
func (m *MockStepSensor) State() MockStepSensorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MockStepSensorState{
		CadenceSPM: m.cadence,
		HeartRate:  m.heartRate,
		Count:      m.count,
		Running:    m.running,
	}
}

func (m *MockStepSensor) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handleIndex)
	mux.HandleFunc("/api/state", m.handleGetState)
	mux.HandleFunc("/api/set", m.handleSetValues)
	mux.HandleFunc("/api/step", m.handleAddSteps)
	mux.HandleFunc("/api/reboot", m.handleReboot)
	return mux
}

func (m *MockStepSensor) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(mockSensorPage))
}

func (m *MockStepSensor) handleGetState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m.State()); err != nil {
		m.logger.Printf("MockStepSensor: Error encoding state: %v", err)
	}
}

func (m *MockStepSensor) handleSetValues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	if c := q.Get("cadence"); c != "" {
		val, err := strconv.ParseFloat(c, 64)
		if err != nil || val < 0 {
			http.Error(w, "invalid cadence", http.StatusBadRequest)
			return
		}
		m.SetCadence(val)
	}
	if hr := q.Get("heartRate"); hr != "" {
		val, err := strconv.Atoi(hr)
		if err != nil || val < 0 {
			http.Error(w, "invalid heartRate", http.StatusBadRequest)
			return
		}
		m.SetHeartRate(val)
	}

	w.WriteHeader(http.StatusOK)
}

func (m *MockStepSensor) handleAddSteps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n := 1
	if s := r.URL.Query().Get("n"); s != "" {
		val, err := strconv.Atoi(s)
		if err != nil || val <= 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = val
	}
	m.AddSteps(n)
	w.WriteHeader(http.StatusOK)
}

func (m *MockStepSensor) handleReboot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m.Reboot()
	w.WriteHeader(http.StatusOK)
}

const mockSensorPage = `<!DOCTYPE html>
<html>
<head>
    <title>Mock Step Sensor</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; }
        .section { margin: 20px 0; padding: 15px; border: 1px solid #ccc; border-radius: 5px; }
        label { display: inline-block; width: 120px; }
        input[type="number"] { width: 100px; padding: 5px; }
        button { padding: 10px 20px; margin: 5px; cursor: pointer; }
        .status { padding: 10px; background: #e0e0e0; border-radius: 5px; margin: 10px 0; }
    </style>
</head>
<body>
    <h1>Mock Step Sensor</h1>

    <div class="section">
        <div id="state" class="status">Loading...</div>
        <button onclick="refreshState()">Refresh</button>
    </div>

    <div class="section">
        <div>
            <label>Cadence:</label>
            <input type="number" id="cadence" min="0" max="250" value="100"> steps/min
        </div>
        <div>
            <label>Heart Rate:</label>
            <input type="number" id="heartRate" min="40" max="220" value="90"> bpm
        </div>
        <button onclick="setValues()">Set Values</button>
    </div>

    <div class="section">
        <input type="number" id="steps" min="1" value="100">
        <button onclick="addSteps()">Add Steps</button>
        <button onclick="reboot()">Reboot Device</button>
    </div>

    <script>
        function refreshState() {
            fetch('/api/state')
                .then(r => r.json())
                .then(data => {
                    document.getElementById('state').innerHTML =
                        'Count: ' + data.count + '<br>' +
                        'Cadence: ' + data.cadenceSpm + ' steps/min<br>' +
                        'Heart Rate: ' + data.heartRate + ' bpm<br>' +
                        'Running: ' + data.running;
                });
        }

        function post(url) {
            fetch(url, {method: 'POST'}).then(() => refreshState());
        }

        function setValues() {
            const params = new URLSearchParams({
                cadence: document.getElementById('cadence').value,
                heartRate: document.getElementById('heartRate').value
            });
            post('/api/set?' + params);
        }

        function addSteps() {
            post('/api/step?n=' + document.getElementById('steps').value);
        }

        function reboot() {
            post('/api/reboot');
        }

        refreshState();
        setInterval(refreshState, 2000);
    </script>
</body>
</html>`
