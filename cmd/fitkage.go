package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rivo/tview"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/fitkage/fitkage-app/internal/bt"
	"github.com/lowaak/fitkage/fitkage-app/internal/config"
	"github.com/lowaak/fitkage/fitkage-app/internal/fillglass"
	"github.com/lowaak/fitkage/fitkage-app/internal/goal"
	"github.com/lowaak/fitkage/fitkage-app/internal/logging"
	"github.com/lowaak/fitkage/fitkage-app/internal/prefs"
	"github.com/lowaak/fitkage/fitkage-app/internal/steps"
	"github.com/lowaak/fitkage/fitkage-app/internal/tracker"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.Snapshot != "" {
		must("write snapshot", writeSnapshot(cfg))
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	uiLogWriter := logging.NewUILogWriter(256)
	logger, logCloser := logging.Setup(logging.SetupParams{
		FileName:  cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		UI:        uiLogWriter,
	})
	defer logCloser.Close()
	logger.Printf("Main: Starting %s (sensor=%s, goal=%s)", config.AppName, cfg.Sensor.Kind, cfg.Goal.Backend)

	prefsPath := cfg.Prefs.Path
	if prefsPath == "" {
		var err error
		if prefsPath, err = prefs.DefaultPath(config.AppName); err != nil {
			return err
		}
	}
	prefsStore := prefs.NewFileStore(prefsPath, logger)

	goalStore, closeGoalStore := newGoalStore(cfg.Goal, logger)
	defer closeGoalStore()
	fetcher := goal.NewFetcher(goalStore, goal.FetcherConfig{
		AttemptTimeout: cfg.Goal.Timeout,
		MaxRetries:     cfg.Goal.MaxRetries,
	}, logger)

	glass := fillglass.New()
	model := tracker.NewUIModel(logger, uiLogWriter.Lines())
	stepController := tracker.NewStepController(tracker.StepControllerArgs{
		Model:        model,
		Source:       newStepSource(cfg.Sensor, logger),
		Prefs:        prefsStore,
		Goals:        fetcher,
		Glass:        glass,
		UserID:       cfg.Goal.UserID,
		StrideMetres: cfg.StrideLengthM,
		WaterServing: cfg.Water.Serving,
		Logger:       logger,
	})
	controller := tracker.NewUIController(model, stepController, logger)

	app := tview.NewApplication()
	view := tracker.NewCursesUIView(logger, app, model, glass, time.Now)
	baseView := tracker.NewBaseUIView(tracker.NewBaseUIViewArg{
		UIViewImpl:   view,
		UIModel:      model,
		UIController: controller,
		FPS:          cfg.Render.FPS,
		Logger:       logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := stepController.Start(ctx); err != nil {
		logger.Printf("Main: %v", err)
	}
	stepController.LoadGoal(ctx)

	// Start UI
	runErr := baseView.Run()

	logger.Println("Main: UI exited, shutting down")
	cancel()
	baseView.Shutdown()
	controller.Shutdown()
	model.Shutdown()
	if runErr != nil {
		logger.Printf("Main: UI error: %v", runErr)
	}
	return runErr
}

func newStepSource(cfg config.SensorConfig, logger *log.Logger) steps.Source {
	switch cfg.Kind {
	case config.SensorBLE:
		return bt.NewRSCStepSensor(bluetooth.DefaultAdapter, bt.RSCStepSensorConfig{
			Address:     cfg.BLEAddress,
			ScanTimeout: cfg.BLEScanTimeout,
		}, logger)
	default:
		return tracker.NewMockStepSensor(logger, tracker.MockStepSensorConfig{
			ServerPort: cfg.MockPort,
			CadenceSPM: float64(cfg.MockCadenceSPM),
		})
	}
}

// newGoalStore returns the configured store and a function releasing its connections.
func newGoalStore(cfg config.GoalConfig, logger *log.Logger) (goal.Store, func()) {
	switch cfg.Backend {
	case config.GoalFirebase:
		logger.Printf("Main: Reading goals from Firebase at %s", cfg.FirebaseURL)
		return goal.NewFirebaseStore(cfg.FirebaseURL, cfg.FirebaseAuth, nil), func() {}
	case config.GoalRedis:
		logger.Printf("Main: Reading goals from Redis at %s", cfg.RedisAddr)
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return goal.NewRedisStore(client), func() {
			if err := client.Close(); err != nil {
				logger.Printf("Main: Error closing Redis client: %v", err)
			}
		}
	default:
		return goal.StaticStore{Goal: cfg.Static}, func() {}
	}
}

// writeSnapshot renders the glass at the configured level to a PNG file.
func writeSnapshot(cfg *config.Config) error {
	glass := fillglass.New(fillglass.WithDuration(0))
	glass.SetLevel(cfg.SnapshotLevel)

	canvas := fillglass.NewRasterCanvas(cfg.SnapshotWidth, cfg.SnapshotHeight)
	glass.Draw(canvas)

	f, err := os.Create(cfg.Snapshot)
	if err != nil {
		return err
	}
	if err := png.Encode(f, canvas.Image()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func must(action string, err error) {
	if err != nil {
		panic("failed to " + action + ": " + err.Error())
	}
}
