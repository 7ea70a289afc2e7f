package tracker

import (
	"time"

	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
)

// Step source types, shared with the sensor packages.
type (
	StepEvent  = steps.Event
	StepSource = steps.Source
)

const SensorTypeStepCounter = steps.SensorTypeStepCounter

// Messages shown to the user as toasts.
const (
	MsgNoStepSensor  = "This device has no Step Counter Sensor"
	MsgGoalReached   = "You've reached your goal!"
	MsgLongPressHint = "Long press to reset steps"
	MsgGoalFormat    = "Step goal: %d"
	MsgGoalFailed    = "Failed to load step goal"
)

// PrefKeyStepBaseline stores the cumulative reading a session counts from.
const PrefKeyStepBaseline = "steps.baseline"

const (
	DefaultWaterServing = 0.125
	DefaultRenderFPS    = 30

	// DefaultStatsInterval refreshes the elapsed time while no steps arrive.
	DefaultStatsInterval = time.Second
	// LongPressThreshold separates a tap from a long press on the steps panel.
	LongPressThreshold = 500 * time.Millisecond
	// ToastDuration is how long a toast stays on screen.
	ToastDuration = 3 * time.Second
)

// KeyBinding describes one shortcut for the help line.
type KeyBinding struct {
	Key         string
	Description string
}

var KeyBindings = []KeyBinding{
	{Key: "d", Description: "Drink"},
	{Key: "s", Description: "Tap steps"},
	{Key: "R", Description: "Reset steps (long press)"},
	{Key: "Esc", Description: "Quit"},
}
