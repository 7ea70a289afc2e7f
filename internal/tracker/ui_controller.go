package tracker

import (
	"log"
	"sync"
	"time"
)

// UIController handles UI events and coordinates with the StepController
type UIController struct {
	model      *UIModel
	steps      *StepController
	logger     *log.Logger
	longPress  time.Duration
	mu         sync.Mutex
	pressStart time.Time
	pressed    bool
}

// NewUIController creates a new UIController with the given dependencies
func NewUIController(model *UIModel, steps *StepController, logger *log.Logger) *UIController {
	if model == nil {
		panic("UIController: model cannot be nil")
	}
	if steps == nil {
		panic("UIController: steps cannot be nil")
	}
	if logger == nil {
		panic("UIController: logger cannot be nil")
	}

	return &UIController{
		model:     model,
		steps:     steps,
		logger:    logger,
		longPress: LongPressThreshold,
	}
}

// OnDrinkKey handles the Drink button
func (c *UIController) OnDrinkKey() {
	c.steps.Drink()
}

// OnStepsTapped handles a short press on the steps display
func (c *UIController) OnStepsTapped() {
	c.steps.StepsTapped()
}

// OnStepsLongPressed handles a long press on the steps display
func (c *UIController) OnStepsLongPressed() {
	c.steps.StepsLongPressed()
}

// OnStepsPress tracks a press on the steps display and decides on release
// whether it was a tap or a long press. A down event always restarts the press.
func (c *UIController) OnStepsPress(down bool, at time.Time) {
	c.mu.Lock()
	if down {
		c.pressed = true
		c.pressStart = at
		c.mu.Unlock()
		return
	}
	if !c.pressed {
		c.mu.Unlock()
		return
	}
	held := at.Sub(c.pressStart)
	c.pressed = false
	c.mu.Unlock()

	if held >= c.longPress {
		c.OnStepsLongPressed()
	} else {
		c.OnStepsTapped()
	}
}

// OnEscapeKey handles when the Escape key is pressed
func (c *UIController) OnEscapeKey() {
	c.model.RequestCloseApplication()
}

// Shutdown stops the step controller
func (c *UIController) Shutdown() {
	c.steps.Shutdown()
}
