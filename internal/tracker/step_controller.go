package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lowaak/fitkage/fitkage-app/internal/fillglass"
	"github.com/lowaak/fitkage/fitkage-app/internal/go_func_utils"
	"github.com/lowaak/fitkage/fitkage-app/internal/goal"
	"github.com/lowaak/fitkage/fitkage-app/internal/prefs"
	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
)

// GoalFetcher loads the step goal in the background. done is called exactly once.
type GoalFetcher interface {
	FetchAsync(ctx context.Context, userID string, done func(goal.Result))
}

// StepControllerArgs holds the dependencies of a StepController
type StepControllerArgs struct {
	Model *UIModel
	// Source may be nil, meaning the device has no step counter.
	Source StepSource
	Prefs  prefs.Store
	// Goals may be nil, meaning no goal is tracked.
	Goals         GoalFetcher
	Glass         *fillglass.Glass
	UserID        string
	StrideMetres  float64
	WaterServing  float64
	StatsInterval time.Duration
	Clock         func() time.Time
	Logger        *log.Logger
}

// StepController owns the step session: it feeds sensor readings into the
// counter, publishes stats, loads the goal and handles the user's actions.
type StepController struct {
	model         *UIModel
	source        StepSource
	goals         GoalFetcher
	glass         *fillglass.Glass
	counter       *steps.Counter
	persistence   *counterPersistence
	userID        string
	waterServing  float64
	statsInterval time.Duration
	clock         func() time.Time
	logger        *log.Logger

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

func NewStepController(args StepControllerArgs) *StepController {
	if args.Model == nil {
		panic("StepController: model cannot be nil")
	}
	if args.Glass == nil {
		panic("StepController: glass cannot be nil")
	}
	if args.Logger == nil {
		panic("StepController: logger cannot be nil")
	}
	clock := args.Clock
	if clock == nil {
		clock = time.Now
	}
	userID := args.UserID
	if userID == "" {
		userID = goal.DefaultUserID
	}
	serving := args.WaterServing
	if serving <= 0 {
		serving = DefaultWaterServing
	}
	interval := args.StatsInterval
	if interval <= 0 {
		interval = DefaultStatsInterval
	}

	persistence := newCounterPersistence(args.Prefs, args.Logger)
	c := &StepController{
		model:         args.Model,
		source:        args.Source,
		goals:         args.Goals,
		glass:         args.Glass,
		counter:       steps.NewCounter(args.StrideMetres, persistence.loadBaseline(), clock()),
		persistence:   persistence,
		userID:        userID,
		waterServing:  serving,
		statsInterval: interval,
		clock:         clock,
		logger:        args.Logger,
	}
	c.publishStats()
	return c
}

// Start subscribes to the step source and starts the elapsed time ticker.
// A missing sensor is reported to the user and is not an error.
func (c *StepController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	go_func_utils.SafeGoWG(c.logger, &c.wg, func() { c.runStatsLoop(runCtx) })

	if c.source == nil {
		c.noSensor("none configured")
		return nil
	}

	c.logger.Printf("StepController: Starting step source %s", c.source.Name())
	if err := c.source.Start(runCtx, c.OnStepEvent); err != nil {
		if errors.Is(err, steps.ErrNoSensor) {
			c.noSensor(err.Error())
			return nil
		}
		c.model.SetSensorStatus(SensorStatus{Name: c.source.Name(), Detail: err.Error()})
		return fmt.Errorf("start step source %s: %w", c.source.Name(), err)
	}
	c.model.SetSensorStatus(SensorStatus{Name: c.source.Name(), Available: true})
	return nil
}

func (c *StepController) noSensor(detail string) {
	name := "step counter"
	if c.source != nil {
		name = c.source.Name()
	}
	c.logger.Printf("StepController: No step sensor (%s), step tracking disabled", detail)
	c.model.SetSensorStatus(SensorStatus{Name: name, Detail: detail})
	c.model.ShowToast(MsgNoStepSensor)
}

// Stop detaches from the step source and stops the ticker. Start may be called again.
func (c *StepController) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if c.source != nil {
		if err := c.source.Stop(); err != nil {
			c.logger.Printf("StepController: Error stopping step source: %v", err)
		}
	}
	cancel()
	c.wg.Wait()
	c.logger.Println("StepController: Stopped")
}

// Shutdown stops the controller for good
func (c *StepController) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.logger.Println("StepController: Shutting down")
		c.Stop()
		c.logger.Println("StepController: Shutdown complete")
	})
}

func (c *StepController) runStatsLoop(ctx context.Context) {
	ticker := time.NewTicker(c.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.publishStats()
		}
	}
}

func (c *StepController) publishStats() {
	c.model.SetStats(c.counter.Stats(c.clock()))
}

// OnStepEvent handles one sensor reading. Readings from other sensor types are ignored.
func (c *StepController) OnStepEvent(ev StepEvent) {
	if ev.SensorType != SensorTypeStepCounter {
		return
	}
	u := c.counter.Observe(ev.CumulativeSteps, c.clock())
	if u.BaselineChanged {
		c.logger.Printf("StepController: Baseline set to %d", u.Baseline)
		c.persistence.saveBaseline(u.Baseline)
	}
	c.model.SetStats(u.Stats)
	if u.GoalJustReached {
		c.model.ShowToast(MsgGoalReached)
	}
}

// LoadGoal fetches the step goal in the background.
func (c *StepController) LoadGoal(ctx context.Context) {
	if c.goals == nil {
		c.logger.Println("StepController: No goal store configured")
		return
	}
	c.logger.Printf("StepController: Loading step goal for %s", c.userID)
	c.goals.FetchAsync(ctx, c.userID, c.onGoalResult)
}

// onGoalResult applies a fetched goal. A missing goal counts as 0 ("no goal").
func (c *StepController) onGoalResult(r goal.Result) {
	if r.Err != nil && !errors.Is(r.Err, goal.ErrGoalNotFound) {
		c.logger.Printf("StepController: Goal fetch failed: %v", r.Err)
		c.model.ShowToast(MsgGoalFailed)
		return
	}
	g := r.Goal
	if r.Err != nil {
		g = 0
	}
	reached := c.counter.SetGoal(g)
	c.model.ShowToast(fmt.Sprintf(MsgGoalFormat, g))
	c.publishStats()
	if reached {
		c.model.ShowToast(MsgGoalReached)
	}
}

// Drink adds one serving of water to the glass.
func (c *StepController) Drink() {
	if err := c.glass.AddWater(c.waterServing); err != nil {
		c.logger.Printf("StepController: Drink failed: %v", err)
		return
	}
	c.logger.Printf("StepController: Drink, glass target %.3f", c.glass.Target())
}

// StepsTapped shows how to reset the counter.
func (c *StepController) StepsTapped() {
	c.model.ShowToast(MsgLongPressHint)
}

// StepsLongPressed starts a new session and persists its baseline.
func (c *StepController) StepsLongPressed() {
	baseline := c.counter.Reset(c.clock())
	c.persistence.saveBaseline(baseline)
	c.logger.Printf("StepController: Steps reset, baseline %d", baseline)
	c.publishStats()
}

// Stats returns the current session stats
func (c *StepController) Stats() steps.Stats {
	return c.counter.Stats(c.clock())
}
