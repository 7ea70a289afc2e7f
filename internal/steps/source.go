package steps

import (
	"context"
	"errors"
)

// SensorType identifies the kind of reading in an Event.
type SensorType int

const (
	SensorTypeUnknown SensorType = iota
	// SensorTypeStepCounter readings carry a cumulative step count since the sensor last reset.
	SensorTypeStepCounter
	SensorTypeHeartRate
)

func (t SensorType) String() string {
	switch t {
	case SensorTypeStepCounter:
		return "step_counter"
	case SensorTypeHeartRate:
		return "heart_rate"
	default:
		return "unknown"
	}
}

// Event is one sensor reading. CumulativeSteps is only meaningful for
// SensorTypeStepCounter; Value carries other readings (e.g. bpm).
type Event struct {
	SensorType      SensorType
	CumulativeSteps int
	Value           float64
}

// ErrNoSensor is returned by Source.Start when no step counter is available.
var ErrNoSensor = errors.New("no step counter sensor")

// Source delivers sensor events until stopped.
type Source interface {
	// Start begins delivery to onEvent. onEvent may be called from any goroutine.
	Start(ctx context.Context, onEvent func(Event)) error
	Stop() error
	Name() string
}
