package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lowaak/fitkage/fitkage-app/internal/go_func_utils"
	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
)

// BaseUIView contains the base logic shared by all UI implementations
type BaseUIView struct {
	uiViewImpl    UIViewImpl
	uiModel       *UIModel
	uiController  *UIController
	frameInterval time.Duration
	toastDuration time.Duration
	context       context.Context
	cancelFunc    context.CancelFunc
	waitGroup     sync.WaitGroup
	logger        *log.Logger
}

// NewBaseUIViewArg holds the arguments for creating a new BaseUIView
type NewBaseUIViewArg struct {
	UIViewImpl   UIViewImpl
	UIModel      *UIModel
	UIController *UIController
	// FPS is the redraw rate while the glass animates. 0 uses DefaultRenderFPS.
	FPS int
	// ToastDuration is how long a toast stays visible. 0 uses ToastDuration.
	ToastDuration time.Duration
	Logger        *log.Logger
}

// NewBaseUIView creates a new BaseUIView with the given implementation
func NewBaseUIView(args NewBaseUIViewArg) *BaseUIView {
	if args.Logger == nil {
		panic("BaseUIView: logger cannot be nil")
	}
	if args.UIViewImpl == nil {
		panic("BaseUIView: UIViewImpl cannot be nil")
	}
	if args.UIModel == nil {
		panic("BaseUIView: UIModel cannot be nil")
	}
	if args.UIController == nil {
		panic("BaseUIView: UIController cannot be nil")
	}
	fps := args.FPS
	if fps <= 0 {
		fps = DefaultRenderFPS
	}
	toastDuration := args.ToastDuration
	if toastDuration <= 0 {
		toastDuration = ToastDuration
	}
	ctx, cancel := context.WithCancel(context.Background())

	base := &BaseUIView{
		uiViewImpl:    args.UIViewImpl,
		uiModel:       args.UIModel,
		uiController:  args.UIController,
		frameInterval: time.Second / time.Duration(fps),
		toastDuration: toastDuration,
		context:       ctx,
		cancelFunc:    cancel,
		logger:        args.Logger,
	}

	// Initialize framework-specific widgets
	args.UIViewImpl.Initialize(args.UIController)

	// Set up keyboard handlers
	args.UIViewImpl.SetupKeyboardHandlers(args.UIController)

	args.UIViewImpl.UpdateStats(args.UIModel.GetStats())
	args.UIViewImpl.UpdateSensorStatus(args.UIModel.GetSensorStatus())

	// Set up periodic resize check and initial display
	go_func_utils.SafeGoWG(base.logger, &base.waitGroup, func() { base.monitorLogResize() })
	base.updateLogDisplay()

	go_func_utils.SafeGoWG(base.logger, &base.waitGroup, func() { base.runFrameLoop() })

	base.setupEventListeners()

	return base
}

func (base *BaseUIView) setupEventListeners() {
	// Listen to log messages from model
	logChan := make(chan string, 1)
	logUnregister := base.uiModel.ListenToLog(logChan)
	go_func_utils.SafeGoWG(base.logger, &base.waitGroup, func() {
		defer logUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case _, ok := <-logChan:
				if !ok {
					return
				}
				// When a new log arrives, update the display to show the tail
				base.updateLogDisplay()
			}
		}
	})

	// Listen to step stats from model
	statsChan := make(chan steps.Stats, 1)
	statsUnregister := base.uiModel.ListenToStats(statsChan)
	go_func_utils.SafeGoWG(base.logger, &base.waitGroup, func() {
		defer statsUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case stats, ok := <-statsChan:
				if !ok {
					return
				}
				base.uiViewImpl.UpdateStats(stats)
				base.draw()
			}
		}
	})

	// Listen to sensor status changes from model
	sensorChan := make(chan SensorStatus, 1)
	sensorUnregister := base.uiModel.ListenToSensorStatus(sensorChan)
	go_func_utils.SafeGoWG(base.logger, &base.waitGroup, func() {
		defer sensorUnregister()
		for {
			select {
			case <-base.context.Done():
				return
			case status, ok := <-sensorChan:
				if !ok {
					return
				}
				base.uiViewImpl.UpdateSensorStatus(status)
				base.draw()
			}
		}
	})

	// Listen to toasts from model; each toast replaces the previous one
	toastChan := make(chan Toast, 4)
	toastUnregister := base.uiModel.ListenToToast(toastChan)
	go_func_utils.SafeGoWG(base.logger, &base.waitGroup, func() {
		defer toastUnregister()
		hide := time.NewTimer(base.toastDuration)
		if !hide.Stop() {
			<-hide.C
		}
		defer hide.Stop()
		for {
			select {
			case <-base.context.Done():
				return
			case toast, ok := <-toastChan:
				if !ok {
					return
				}
				base.uiViewImpl.ShowToast(toast)
				base.draw()
				hide.Reset(base.toastDuration)
			case <-hide.C:
				base.uiViewImpl.ClearToast()
				base.draw()
			}
		}
	})

	// Listen to close application event from model
	closeChan := make(chan struct{}, 1)
	closeUnregister := base.uiModel.ListenToCloseApplication(closeChan)
	go_func_utils.SafeGoWG(base.logger, &base.waitGroup, func() {
		defer closeUnregister()
		select {
		case <-base.context.Done():
			return
		case _, ok := <-closeChan:
			if !ok {
				return
			}
			// Stop the UI implementation
			base.uiViewImpl.Stop()
		}
	})
}

// runFrameLoop redraws at the frame rate so the glass keeps animating.
func (base *BaseUIView) runFrameLoop() {
	ticker := time.NewTicker(base.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-base.context.Done():
			return
		case <-ticker.C:
			base.draw()
		}
	}
}

func (base *BaseUIView) draw() {
	if err := base.uiViewImpl.Draw(); err != nil {
		base.logger.Printf("BaseUIView: Error drawing: %v", err)
	}
}

func (base *BaseUIView) updateLogDisplay() {
	// Get the visible height of the log view
	height := base.uiViewImpl.GetLogViewHeight()
	if height <= 0 {
		return
	}

	// Get the tail of logs that fit in the visible area
	logLines := base.uiModel.GetLogTail(height)

	// Clear and update the log view
	base.uiViewImpl.ClearLogView()
	for _, line := range logLines {
		if err := base.uiViewImpl.WriteLogLine(line); err != nil {
			base.logger.Printf("BaseUIView: Error writing to log view: %v", err)
		}
	}
}

func (base *BaseUIView) monitorLogResize() {
	var lastHeight int
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-base.context.Done():
			return
		case <-ticker.C:
			height := base.uiViewImpl.GetLogViewHeight()
			if height != lastHeight && height > 0 {
				lastHeight = height
				base.updateLogDisplay()
				base.draw()
			}
		}
	}
}

// Shutdown stops all goroutines and waits for them to finish
func (base *BaseUIView) Shutdown() {
	base.logger.Println("BaseUIView: Shutting down")
	base.cancelFunc()
	base.waitGroup.Wait()
	base.logger.Println("BaseUIView: Shutdown complete")
}

// Run starts the UI and blocks until it exits
func (base *BaseUIView) Run() error {
	return base.uiViewImpl.Run()
}
