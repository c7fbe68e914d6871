package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/glimpse/glimpse/internal/artifact"
	"github.com/glimpse/glimpse/internal/capture"
	"github.com/glimpse/glimpse/internal/config"
	"github.com/glimpse/glimpse/internal/database"
	"github.com/glimpse/glimpse/internal/embedding"
	"github.com/glimpse/glimpse/internal/ocr"
	"github.com/glimpse/glimpse/internal/web"
	"github.com/glimpse/glimpse/pkg/detector"
	"github.com/glimpse/glimpse/pkg/screen"
	"github.com/glimpse/glimpse/pkg/window"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// runtime owns everything a running capture process holds open
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *database.DB
	repo     *database.Repository
	detector window.Detector
	source   screen.Source
	loop     *capture.Loop
	web      *web.Server
}

func newRuntime(cfg *config.Config, logger *slog.Logger, withWeb bool) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}
	ready := false
	defer func() {
		if !ready {
			rt.Close()
		}
	}()

	var err error
	rt.db, err = database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err = rt.db.Initialize(); err != nil {
		return nil, err
	}
	rt.repo = database.NewRepository(rt.db)

	// Capture backends are chosen once; failure here is fatal.
	rt.source, err = detector.NewFrameSource(detector.SourceOptions{
		Backend:            cfg.Capture.Backend,
		PrimaryMonitorOnly: cfg.Capture.PrimaryMonitorOnly,
		PrimaryMonitor:     cfg.Capture.PrimaryMonitor,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("capture backend initialized", "backend", rt.source.Name())

	var gate capture.ActivityGate = capture.AlwaysActive{}
	var windowInfo capture.WindowInfo = capture.NoWindowInfo{}
	if det, derr := detector.New(cfg.Activity.IdleThreshold, logger); derr != nil {
		logger.Warn("no window detector available, capturing without idle detection", "error", derr)
	} else {
		rt.detector = det
		gate = capture.IdleGate{Detector: det}
		windowInfo = capture.DetectorWindowInfo{Detector: det}
		logger.Info("window detector initialized", "display_server", det.GetDisplayServer())
	}

	artifacts, err := artifact.NewWriter(cfg.Capture.ArtifactDir)
	if err != nil {
		return nil, err
	}

	extractor := ocr.New(cfg.OCR)
	if !extractor.Available() {
		logger.Warn("OCR command not found, changed frames will fail the extract stage", "command", cfg.OCR.Command)
	}

	embedder := embedding.New(cfg.Embedding, logger)
	logger.Info("embedding backend initialized", "model", embedder.Model(), "dimension", embedder.Dimension())

	sessionID := uuid.NewString()
	rt.loop, err = capture.New(capture.Deps{
		Gate:      gate,
		Source:    rt.source,
		Detector:  screen.NewChangeDetector(cfg.Capture.Threshold),
		Artifacts: artifacts,
		Extractor: extractor,
		Embedder:  embedder,
		Window:    windowInfo,
		Storage:   rt.repo,
		Errors:    rt.repo,
		Scheduler: capture.TimerScheduler{},
		Logger:    logger,
	}, capture.Options{
		Interval:   cfg.Capture.Interval,
		SlotPolicy: cfg.Capture.SlotPolicy,
		SessionID:  sessionID,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("capture session created", "session_id", sessionID)

	if withWeb {
		rt.web = web.NewServer(cfg, rt.repo, rt.loop, 0, logger)
		logger.Info("status API enabled", "addr", rt.web.GetAddress())
	}
	ready = true
	return rt, nil
}

// run blocks until ctx is cancelled
func (rt *runtime) run(ctx context.Context) error {
	if rt.web != nil {
		go func() {
			if err := rt.web.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.logger.Error("status server error", "error", err)
			}
		}()
	}

	err := rt.loop.Run(ctx)

	if rt.web != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if serr := rt.web.Shutdown(shutdownCtx); serr != nil {
			rt.logger.Error("error shutting down status server", "error", serr)
		}
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (rt *runtime) Close() {
	if rt.source != nil {
		if err := rt.source.Close(); err != nil {
			rt.logger.Warn("failed to close capture backend", "error", err)
		}
	}
	if rt.detector != nil {
		_ = rt.detector.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
}
