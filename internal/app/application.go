package app

import (
	"context"

	"tracing-overlay/internal/app/handlers"
	"tracing-overlay/internal/config"
	"tracing-overlay/internal/gui"
	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/opencv/memory"
	"tracing-overlay/internal/pipeline"
	"tracing-overlay/internal/timing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
)

const (
	AppName    = "Tracing Overlay"
	AppID      = "io.github.tracingoverlay"
	AppVersion = "1.0.0"
)

type Application struct {
	fyneApp       fyne.App
	guiManager    *gui.Manager
	coordinator   *pipeline.Coordinator
	memoryManager *memory.Manager
	timing        *timing.Tracker
	handlers      *handlers.Handlers
	lifecycle     *Lifecycle
	logger        logger.Logger
}

func NewApplication(cfg config.Config, log logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NoOpLogger{}
	}

	fyneApp := app.NewWithID(AppID)

	log.Info("Application", "starting application", map[string]interface{}{
		"version":       AppVersion,
		"config":        cfg.Path,
		"export_format": cfg.ExportFormat,
	})

	memoryManager := memory.NewManager(log)
	tracker := timing.NewTracker()

	coordinator := pipeline.NewCoordinator(log, tracker, memoryManager)
	coordinator.Renderer().SetMinWindowSize(cfg.MinWindowSize)
	coordinator.Saver().SetJPEGQuality(cfg.JPEGQuality)
	if err := coordinator.Saver().SetDefaultFormat(cfg.ExportFormat); err != nil {
		return nil, err
	}

	guiManager, err := gui.NewManager(fyneApp, log, gui.Options{
		MinWindowSize: cfg.MinWindowSize,
		OpenControls:  cfg.OpenControls,
	})
	if err != nil {
		return nil, err
	}

	application := &Application{
		fyneApp:       fyneApp,
		guiManager:    guiManager,
		coordinator:   coordinator,
		memoryManager: memoryManager,
		timing:        tracker,
		handlers:      handlers.NewHandlers(coordinator, guiManager, log),
		lifecycle:     NewLifecycle(memoryManager, coordinator, guiManager, tracker, log),
		logger:        log,
	}

	application.setupHandlers()

	log.Info("Application", "initialization complete", nil)
	return application, nil
}

func (a *Application) setupHandlers() {
	a.guiManager.SetOpenHandler(a.handlers.HandleImageLoad)
	a.guiManager.SetSaveHandler(a.handlers.HandleImageSave)
	a.guiManager.SetParameterChangeHandler(a.handlers.HandleParameterChange)
	a.guiManager.SetCloseHandler(a.requestQuit)
}

// Run shows the windows and blocks until the GUI exits or ctx is cancelled.
// initialPath, when set, is opened as soon as the windows are up.
func (a *Application) Run(ctx context.Context, initialPath string) error {
	window := a.guiManager.GetWindow()
	window.SetCloseIntercept(func() {
		a.logger.Info("Application", "window close requested", nil)
		a.requestQuit()
	})

	a.lifecycle.Watch(ctx, func() {
		fyne.Do(a.fyneApp.Quit)
	})
	a.lifecycle.StartMonitoring(MonitorInterval)

	a.guiManager.Show()
	a.guiManager.ShowSnapshot(a.coordinator.Current())

	if initialPath != "" {
		go func() {
			if err := a.handlers.OpenPath(initialPath); err != nil {
				a.logger.Error("Application", err, map[string]interface{}{"path": initialPath})
			}
		}()
	}

	a.logger.Info("Application", "GUI displayed", nil)
	a.fyneApp.Run()

	a.lifecycle.Shutdown()
	return ctx.Err()
}

func (a *Application) requestQuit() {
	a.lifecycle.Shutdown()
	a.fyneApp.Quit()
}
