// Package bt reads step counts from a Bluetooth LE Running Speed and Cadence sensor.
package bt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/fitkage/fitkage-app/internal/go_func_utils"
	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
)

const defaultScanTimeout = 15 * time.Second

// RSCStepSensorConfig selects which sensor to use.
type RSCStepSensorConfig struct {
	// Address of the sensor; empty connects to the first RSC sensor found.
	Address     string
	ScanTimeout time.Duration
}

// RSCStepSensor is a steps.Source backed by a BLE RSC sensor. Cumulative
// steps are integrated from the cadence notifications. After a disconnect it
// reconnects and counts from zero again.
type RSCStepSensor struct {
	adapter *bluetooth.Adapter
	cfg     RSCStepSensorConfig
	logger  *log.Logger

	mu           sync.Mutex
	device       *bluetooth.Device
	address      bluetooth.Address
	onEvent      func(steps.Event)
	integrator   *StepIntegrator
	disconnected chan struct{}
	running      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ steps.Source = (*RSCStepSensor)(nil)

func NewRSCStepSensor(adapter *bluetooth.Adapter, cfg RSCStepSensorConfig, logger *log.Logger) *RSCStepSensor {
	if adapter == nil {
		panic("RSCStepSensor: adapter cannot be nil")
	}
	if logger == nil {
		panic("RSCStepSensor: logger cannot be nil")
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = defaultScanTimeout
	}
	return &RSCStepSensor{
		adapter:      adapter,
		cfg:          cfg,
		logger:       logger,
		integrator:   NewStepIntegrator(DefaultMaxGap),
		disconnected: make(chan struct{}, 1),
	}
}

func (s *RSCStepSensor) Name() string {
	if s.cfg.Address != "" {
		return "BLE RSC sensor " + s.cfg.Address
	}
	return "BLE RSC sensor"
}

// Start enables the adapter, scans for the sensor, connects and subscribes
// to RSC measurements. Any failure to find a usable sensor wraps steps.ErrNoSensor.
func (s *RSCStepSensor) Start(ctx context.Context, onEvent func(steps.Event)) error {
	if onEvent == nil {
		panic("RSCStepSensor: onEvent cannot be nil")
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("RSCStepSensor: already started")
	}
	s.running = true
	s.onEvent = onEvent
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if err := s.adapter.Enable(); err != nil {
		s.Stop()
		return fmt.Errorf("%w: enable BLE adapter: %v", steps.ErrNoSensor, err)
	}
	s.adapter.SetConnectHandler(s.handleConnectChange)

	result, err := s.scan(s.ctx)
	if err != nil {
		s.Stop()
		return err
	}
	s.mu.Lock()
	s.address = result.Address
	s.mu.Unlock()

	if err := s.connect(); err != nil {
		s.Stop()
		return fmt.Errorf("%w: %v", steps.ErrNoSensor, err)
	}

	s.startSupervisor()
	return nil
}

func (s *RSCStepSensor) startSupervisor() {
	go_func_utils.SafeGoWG(s.logger, &s.wg, s.superviseConnection)
}

// Stop disconnects and waits for background work to finish. It is safe to call more than once.
func (s *RSCStepSensor) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	device := s.device
	s.device = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if device != nil {
		if derr := device.Disconnect(); derr != nil {
			err = fmt.Errorf("disconnect RSC sensor: %w", derr)
		}
	}
	s.wg.Wait()
	s.logger.Println("RSCStepSensor: Stopped")
	return err
}

func (s *RSCStepSensor) matches(result bluetooth.ScanResult) bool {
	if s.cfg.Address != "" {
		return strings.EqualFold(result.Address.String(), s.cfg.Address)
	}
	return result.HasServiceUUID(bluetooth.New16BitUUID(0x1814))
}

func (s *RSCStepSensor) scan(ctx context.Context) (bluetooth.ScanResult, error) {
	s.logger.Printf("RSCStepSensor: Scanning for %s (timeout %v)", s.Name(), s.cfg.ScanTimeout)
	found := make(chan bluetooth.ScanResult, 1)

	go_func_utils.SafeGoWG(s.logger, &s.wg, func() {
		err := s.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !s.matches(result) {
				return
			}
			select {
			case found <- result:
				if err := adapter.StopScan(); err != nil {
					s.logger.Printf("RSCStepSensor: Error stopping scan: %v", err)
				}
			default:
			}
		})
		if err != nil {
			s.logger.Printf("RSCStepSensor: Scan error: %v", err)
		}
	})

	timer := time.NewTimer(s.cfg.ScanTimeout)
	defer timer.Stop()
	select {
	case result := <-found:
		name := result.LocalName()
		if name == "" {
			name = "Unknown"
		}
		s.logger.Printf("RSCStepSensor: Found %s (%s) [RSSI: %d]", name, result.Address.String(), result.RSSI)
		return result, nil
	case <-timer.C:
		s.stopScan()
		return bluetooth.ScanResult{}, fmt.Errorf("%w: none found within %v", steps.ErrNoSensor, s.cfg.ScanTimeout)
	case <-ctx.Done():
		s.stopScan()
		return bluetooth.ScanResult{}, ctx.Err()
	}
}

func (s *RSCStepSensor) stopScan() {
	if err := s.adapter.StopScan(); err != nil {
		s.logger.Printf("RSCStepSensor: Error stopping scan: %v", err)
	}
}

func (s *RSCStepSensor) connect() error {
	s.mu.Lock()
	address := s.address
	s.mu.Unlock()

	s.logger.Printf("RSCStepSensor: Connecting to %s", address.String())
	device, err := s.adapter.Connect(address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect %s: %w", address.String(), err)
	}

	characteristic, err := findCharacteristic(&device, ServiceUUIDRunningSpeedCadence, CharUUIDRSCMeasurement)
	if err != nil {
		device.Disconnect()
		return err
	}

	s.integrator.Reset()
	if err := characteristic.EnableNotifications(s.handleMeasurement); err != nil {
		device.Disconnect()
		return fmt.Errorf("enable RSC notifications: %w", err)
	}

	s.mu.Lock()
	s.device = &device
	s.mu.Unlock()
	s.logger.Printf("RSCStepSensor: Subscribed to RSC measurements on %s", address.String())
	return nil
}

// findCharacteristic discovers every service at once, since discovering
// services one by one interrupts notifications on some stacks.
func findCharacteristic(device *bluetooth.Device, serviceUUIDStr, charUUIDStr string) (*bluetooth.DeviceCharacteristic, error) {
	serviceUUID, err := bluetooth.ParseUUID(serviceUUIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid service UUID %q: %w", serviceUUIDStr, err)
	}
	charUUID, err := bluetooth.ParseUUID(charUUIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic UUID %q: %w", charUUIDStr, err)
	}

	services, err := device.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("error discovering services: %w", err)
	}
	for i := range services {
		if services[i].UUID() != serviceUUID {
			continue
		}
		chars, err := services[i].DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("could not discover characteristics for service %v: %w", serviceUUIDStr, err)
		}
		for j := range chars {
			if chars[j].UUID() == charUUID {
				return &chars[j], nil
			}
		}
		return nil, fmt.Errorf("characteristic %v not found in service %v", charUUIDStr, serviceUUIDStr)
	}
	return nil, fmt.Errorf("service %v not found on device", serviceUUIDStr)
}

func (s *RSCStepSensor) handleMeasurement(buf []byte) {
	m, err := ParseRSCMeasurement(buf)
	if err != nil {
		s.logger.Printf("RSCStepSensor: %v", err)
		return
	}
	total := s.integrator.Add(float64(m.CadenceSPM), time.Now())

	s.mu.Lock()
	onEvent := s.onEvent
	s.mu.Unlock()
	if onEvent != nil {
		onEvent(steps.Event{SensorType: steps.SensorTypeStepCounter, CumulativeSteps: total})
	}
}

func (s *RSCStepSensor) handleConnectChange(device bluetooth.Device, connected bool) {
	s.mu.Lock()
	ours := device.Address.String() == s.address.String()
	if ours && !connected {
		s.device = nil
	}
	s.mu.Unlock()
	if !ours {
		return
	}
	if connected {
		s.logger.Printf("RSCStepSensor: Device connected: %s", device.Address.String())
		return
	}
	s.logger.Printf("RSCStepSensor: Device disconnected: %s", device.Address.String())
	select {
	case s.disconnected <- struct{}{}:
	default:
	}
}

// superviseConnection reconnects with exponential backoff whenever the sensor drops.
func (s *RSCStepSensor) superviseConnection() {
	defer s.logger.Println("RSCStepSensor: Connection supervisor stopped")
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.disconnected:
		}

		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Second
		b.MaxInterval = 30 * time.Second
		b.MaxElapsedTime = 0
		notify := func(err error, wait time.Duration) {
			s.logger.Printf("RSCStepSensor: Reconnect failed: %v (retrying in %v)", err, wait)
		}
		if err := backoff.RetryNotify(s.connect, backoff.WithContext(b, s.ctx), notify); err != nil {
			s.logger.Printf("RSCStepSensor: Giving up reconnecting: %v", err)
			return
		}
	}
}
