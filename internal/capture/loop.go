package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glimpse/glimpse/internal/config"
	"github.com/glimpse/glimpse/pkg/screen"

	"github.com/pkg/errors"
)

// DefaultInterval is the pause between two ticks
const DefaultInterval = 3 * time.Second

// Deps are the collaborators of a Loop. Errors is optional.
type Deps struct {
	Gate      ActivityGate
	Source    FrameSource
	Detector  *screen.ChangeDetector
	Artifacts ArtifactWriter
	Extractor TextExtractor
	Embedder  Embedder
	Window    WindowInfo
	Storage   Storage
	Errors    ErrorRecorder
	Scheduler Scheduler
	Logger    *slog.Logger
}

// Options tune a Loop
type Options struct {
	Interval   time.Duration
	SlotPolicy string
	SessionID  string
}

// Stats is a point-in-time snapshot of loop counters
type Stats struct {
	Running            bool      `json:"running"`
	StartedAt          time.Time `json:"started_at,omitempty"`
	Ticks              int64     `json:"ticks"`
	IdleTicks          int64     `json:"idle_ticks"`
	Frames             int64     `json:"frames"`
	Decisions          int64     `json:"decisions"`
	Changes            int64     `json:"changes"`
	Persisted          int64     `json:"persisted"`
	CaptureErrors      int64     `json:"capture_errors"`
	CollaboratorErrors int64     `json:"collaborator_errors"`
	Monitors           []int     `json:"monitors"`
	LastCaptureAt      time.Time `json:"last_capture_at,omitempty"`
	LastPersistedAt    time.Time `json:"last_persisted_at,omitempty"`
	LastError          string    `json:"last_error,omitempty"`
}

// Loop is the capture state machine: Idle, then Polling, then one
// Persisting step per changed monitor, then back to Idle after the interval.
type Loop struct {
	deps     Deps
	interval time.Duration
	prune    bool
	session  string
	logger   *slog.Logger
	slots    *SlotStore

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	stats   Stats
}

// New validates deps and builds a Loop
func New(deps Deps, opts Options) (*Loop, error) {
	switch {
	case deps.Gate == nil:
		return nil, errors.New("capture: activity gate is required")
	case deps.Source == nil:
		return nil, errors.New("capture: frame source is required")
	case deps.Artifacts == nil:
		return nil, errors.New("capture: artifact writer is required")
	case deps.Extractor == nil:
		return nil, errors.New("capture: text extractor is required")
	case deps.Embedder == nil:
		return nil, errors.New("capture: embedder is required")
	case deps.Window == nil:
		return nil, errors.New("capture: window info is required")
	case deps.Storage == nil:
		return nil, errors.New("capture: storage is required")
	}

	if deps.Detector == nil {
		deps.Detector = screen.NewChangeDetector(screen.DefaultThreshold)
	}
	if deps.Scheduler == nil {
		deps.Scheduler = TimerScheduler{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	return &Loop{
		deps:     deps,
		interval: opts.Interval,
		prune:    opts.SlotPolicy == config.SlotPolicyPrune,
		session:  opts.SessionID,
		logger:   deps.Logger.With("component", "capture"),
		slots:    NewSlotStore(),
	}, nil
}

// Run ticks until ctx is cancelled or Stop is called. It returns ctx.Err()
// on cancellation and nil after Stop.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.running = true
	l.stopped = false
	l.cancel = cancel
	l.stats.Running = true
	l.stats.StartedAt = time.Now()
	l.mu.Unlock()

	defer func() {
		cancel()
		l.mu.Lock()
		l.running = false
		l.cancel = nil
		l.stats.Running = false
		l.mu.Unlock()
	}()

	l.logger.Info("capture loop started",
		"interval", l.interval,
		"threshold", l.deps.Detector.Threshold,
		"prune_slots", l.prune)

	for {
		if runCtx.Err() != nil {
			return l.exitErr(ctx)
		}

		if _, err := l.Tick(runCtx); err != nil && runCtx.Err() == nil {
			l.logger.Warn("tick failed", "error", err)
		}

		if err := l.deps.Scheduler.Wait(runCtx, l.interval); err != nil {
			return l.exitErr(ctx)
		}
	}
}

func (l *Loop) exitErr(parent context.Context) error {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()

	if stopped {
		l.logger.Info("capture loop stopped")
		return nil
	}
	l.logger.Info("capture loop cancelled", "reason", parent.Err())
	return parent.Err()
}

// Stop ends a running loop. It is a no-op otherwise.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running && l.cancel != nil {
		l.stopped = true
		l.cancel()
	}
}

func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Stats returns a copy of the loop counters
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.stats
	s.Monitors = append([]int(nil), l.stats.Monitors...)
	return s
}

// Tick runs one Idle/Polling/Persisting pass without waiting. It returns
// the decisions made this tick; first observations produce none. A capture
// failure is returned as ErrTransientCapture. Persistence failures are
// logged and recorded but not returned.
//
// Tick must not be called concurrently with itself or with Run.
func (l *Loop) Tick(ctx context.Context) ([]screen.ChangeDecision, error) {
	l.update(func(s *Stats) { s.Ticks++ })

	if !l.userActive(ctx) {
		l.update(func(s *Stats) { s.IdleTicks++ })
		l.logger.Debug("user inactive, skipping capture")
		return nil, nil
	}

	frames, err := l.deps.Source.Capture(ctx)
	if err != nil {
		// shutdown interrupted the capture; not a backend failure
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		terr := &transientError{err: err}
		l.recordError(ctx, "", -1, terr)
		l.update(func(s *Stats) {
			s.CaptureErrors++
			s.LastError = terr.Error()
		})
		return nil, terr
	}

	var decisions []screen.ChangeDecision
	var pending []screen.Frame
	seen := make(map[int]bool, len(frames))

	for _, frame := range frames {
		seen[frame.Index] = true

		slot, ok := l.slots.Get(frame.Index)
		if !ok {
			l.slots.Create(frame)
			l.logger.Info("monitor registered", "monitor", frame.Index,
				"width", frame.Width, "height", frame.Height)
			continue
		}

		decision := l.deps.Detector.Compare(slot.Baseline, frame)
		decisions = append(decisions, decision)
		l.logger.Debug("frame compared", "monitor", decision.Index,
			"similarity", decision.Similarity, "changed", decision.Changed)

		if decision.Changed {
			l.slots.Replace(frame)
			pending = append(pending, frame)
		}
	}

	if l.prune {
		if dropped := l.slots.Prune(seen); len(dropped) > 0 {
			l.logger.Info("monitors pruned", "monitors", dropped)
		}
	}

	l.update(func(s *Stats) {
		s.Frames += int64(len(frames))
		s.Decisions += int64(len(decisions))
		s.Changes += int64(len(pending))
		s.Monitors = l.slots.Indices()
		if len(frames) > 0 {
			s.LastCaptureAt = frames[0].CapturedAt
		}
	})

	similarity := make(map[int]float64, len(decisions))
	for _, d := range decisions {
		similarity[d.Index] = d.Similarity
	}

	for _, frame := range pending {
		if ctx.Err() != nil {
			break
		}
		l.persistFrame(ctx, frame, similarity[frame.Index])
	}

	return decisions, nil
}

func (l *Loop) userActive(ctx context.Context) bool {
	active, err := l.deps.Gate.IsUserActive(ctx)
	if err != nil {
		l.logger.Warn("activity check failed, assuming active", "error", err)
		return true
	}
	return active
}

func (l *Loop) persistFrame(ctx context.Context, frame screen.Frame, similarity float64) {
	event, err := l.persist(ctx, frame, similarity)
	if err != nil {
		var cerr *CollaboratorError
		stage := Stage("")
		if errors.As(err, &cerr) {
			stage = cerr.Stage
		}
		l.recordError(ctx, stage, frame.Index, err)
		l.update(func(s *Stats) {
			s.CollaboratorErrors++
			s.LastError = err.Error()
		})
		return
	}

	l.logger.Info("capture persisted",
		"monitor", frame.Index,
		"similarity", similarity,
		"artifact", event.ArtifactPath,
		"app", event.AppName,
		"text_len", len(event.Text))
	l.update(func(s *Stats) {
		s.Persisted++
		s.LastPersistedAt = event.Timestamp
	})
}

func (l *Loop) recordError(ctx context.Context, stage Stage, index int, err error) {
	l.logger.Warn("capture error", "stage", string(stage), "monitor", index, "error", err)

	if l.deps.Errors == nil {
		return
	}
	errorLog := newErrorLog(stage, index, err)
	if dbErr := l.deps.Errors.CreateErrorLog(context.WithoutCancel(ctx), errorLog); dbErr != nil {
		l.logger.Error("failed to store error log", "error", dbErr, "original_error", err)
	}
}

func (l *Loop) update(fn func(*Stats)) {
	l.mu.Lock()
	fn(&l.stats)
	l.mu.Unlock()
}
