package bt

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

// Running Speed and Cadence service, see
// https://www.bluetooth.com/specifications/specs/running-speed-and-cadence-service-1-0/
const (
	ServiceUUIDRunningSpeedCadence = "00001814-0000-1000-8000-00805f9b34fb"
	CharUUIDRSCMeasurement         = "00002a53-0000-1000-8000-00805f9b34fb"
)

const (
	rscFlagStrideLength  = 0x01
	rscFlagTotalDistance = 0x02
	rscFlagRunning       = 0x04
)

// RSCMeasurement is one decoded RSC Measurement notification.
type RSCMeasurement struct {
	SpeedMps      float64
	CadenceSPM    uint8
	StrideLengthM float64
	HasStride     bool
	DistanceM     float64
	HasDistance   bool
	Running       bool
}

// ParseRSCMeasurement decodes the RSC Measurement characteristic.
// Layout: flags, speed (uint16, 1/256 m/s), cadence (uint8, 1/min),
// then optional stride length (uint16, 1/100 m) and total distance (uint32, 1/10 m).
func ParseRSCMeasurement(buf []byte) (RSCMeasurement, error) {
	if len(buf) < 4 {
		return RSCMeasurement{}, fmt.Errorf("RSC data too short: %d bytes", len(buf))
	}

	flags := buf[0]
	m := RSCMeasurement{
		SpeedMps:   float64(binary.LittleEndian.Uint16(buf[1:3])) / 256.0,
		CadenceSPM: buf[3],
		Running:    flags&rscFlagRunning != 0,
	}
	offset := 4

	if flags&rscFlagStrideLength != 0 {
		if len(buf) < offset+2 {
			return RSCMeasurement{}, fmt.Errorf("RSC stride length truncated: %d bytes", len(buf))
		}
		m.StrideLengthM = float64(binary.LittleEndian.Uint16(buf[offset:offset+2])) / 100.0
		m.HasStride = true
		offset += 2
	}

	if flags&rscFlagTotalDistance != 0 {
		if len(buf) < offset+4 {
			return RSCMeasurement{}, fmt.Errorf("RSC total distance truncated: %d bytes", len(buf))
		}
		m.DistanceM = float64(binary.LittleEndian.Uint32(buf[offset:offset+4])) / 10.0
		m.HasDistance = true
	}

	return m, nil
}

// DefaultMaxGap caps the time credited between two cadence samples.
const DefaultMaxGap = 5 * time.Second

// StepIntegrator turns instantaneous cadence into a cumulative step count,
// carrying the fractional remainder between samples.
type StepIntegrator struct {
	mu        sync.Mutex
	total     int
	remainder float64
	last      time.Time
	maxGap    time.Duration
}

func NewStepIntegrator(maxGap time.Duration) *StepIntegrator {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}
	return &StepIntegrator{maxGap: maxGap}
}

// Add credits cadenceSPM steps per minute for the time since the previous
// sample and returns the new total. The first sample only starts the clock.
func (i *StepIntegrator) Add(cadenceSPM float64, now time.Time) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.last.IsZero() {
		i.last = now
		return i.total
	}
	elapsed := now.Sub(i.last)
	i.last = now
	if elapsed <= 0 || cadenceSPM <= 0 || math.IsNaN(cadenceSPM) {
		return i.total
	}
	if elapsed > i.maxGap {
		elapsed = i.maxGap
	}

	stepsTotal := cadenceSPM/60.0*elapsed.Seconds() + i.remainder
	whole := math.Floor(stepsTotal)
	i.remainder = stepsTotal - whole
	i.total += int(whole)
	return i.total
}

// Total returns the current cumulative count.
func (i *StepIntegrator) Total() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.total
}

// Reset starts counting from zero again, as a rebooted pedometer would.
func (i *StepIntegrator) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.total = 0
	i.remainder = 0
	i.last = time.Time{}
}
