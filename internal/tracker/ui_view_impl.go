package tracker

import "github.com/lowaak/fitkage/fitkage-app/internal/steps"

// UIViewImpl defines the interface for framework-specific UI implementations
type UIViewImpl interface {
	// Initialize is called after construction to set up framework-specific widgets
	// controller is used to handle UI events
	Initialize(controller *UIController)

	// SetupKeyboardHandlers sets up keyboard event handlers
	// controller is used to handle keyboard events
	SetupKeyboardHandlers(controller *UIController)

	// Run starts the UI framework and blocks until it exits
	Run() error

	// Stop stops the UI framework
	Stop()

	// Draw refreshes/redraws the UI
	Draw() error

	// --- Log View ---

	// GetLogViewHeight returns the visible height of the log view
	GetLogViewHeight() int

	// ClearLogView clears the log view
	ClearLogView()

	// WriteLogLine writes a line to the log view
	WriteLogLine(line string) error

	// --- Step Panel ---

	// UpdateStats shows the current steps, distance, elapsed time and goal progress
	UpdateStats(stats steps.Stats)

	// UpdateSensorStatus shows whether the step source is available
	UpdateSensorStatus(status SensorStatus)

	// ShowToast shows a short message until ClearToast is called
	ShowToast(toast Toast)

	// ClearToast hides the toast
	ClearToast()
}
