package capture

import (
	"context"
	"time"

	"github.com/glimpse/glimpse/internal/embedding"
	"github.com/glimpse/glimpse/internal/models"
	"github.com/glimpse/glimpse/pkg/screen"
)

// CaptureEvent is everything gathered for one changed frame
type CaptureEvent struct {
	Timestamp    time.Time
	Frame        screen.Frame
	Similarity   float64
	ArtifactPath string
	Text         string
	Embedding    []float32
	AppName      string
	WindowTitle  string
}

// persist runs the artifact, extract, embed, window and store steps in order.
// The first failing step aborts the frame and removes its artifact.
func (l *Loop) persist(ctx context.Context, frame screen.Frame, similarity float64) (*CaptureEvent, error) {
	event, err := l.runSteps(ctx, frame, similarity)
	if err == nil {
		return event, nil
	}
	if event != nil && event.ArtifactPath != "" {
		if rerr := l.deps.Artifacts.Remove(event.ArtifactPath); rerr != nil {
			l.logger.Warn("failed to remove orphaned artifact", "path", event.ArtifactPath, "error", rerr)
		}
	}
	return nil, err
}

func (l *Loop) runSteps(ctx context.Context, frame screen.Frame, similarity float64) (*CaptureEvent, error) {
	event := &CaptureEvent{
		Timestamp:  frame.CapturedAt,
		Frame:      frame,
		Similarity: similarity,
	}

	path, err := l.deps.Artifacts.Write(frame)
	if err != nil {
		return nil, &CollaboratorError{Stage: StageArtifact, Index: frame.Index, Err: err}
	}
	event.ArtifactPath = path

	text, err := l.deps.Extractor.Extract(ctx, frame)
	if err != nil {
		return event, &CollaboratorError{Stage: StageExtract, Index: frame.Index, Err: err}
	}
	event.Text = text

	vec, err := l.deps.Embedder.Embed(ctx, text)
	if err != nil {
		return event, &CollaboratorError{Stage: StageEmbed, Index: frame.Index, Err: err}
	}
	event.Embedding = vec

	event.AppName, event.WindowTitle = l.activeWindow(ctx)

	if err := l.deps.Storage.InsertEntry(ctx, l.toEntry(event)); err != nil {
		return event, &CollaboratorError{Stage: StageStore, Index: frame.Index, Err: err}
	}
	return event, nil
}

// activeWindow never fails; unknown values are stored as empty strings
func (l *Loop) activeWindow(ctx context.Context) (string, string) {
	if snap, ok := l.deps.Window.(WindowSnapshotter); ok {
		app, title, err := snap.Snapshot(ctx)
		if err != nil {
			l.logger.Debug("active window unavailable", "error", err)
			return "", ""
		}
		return app, title
	}

	app, err := l.deps.Window.ActiveAppName(ctx)
	if err != nil {
		l.logger.Debug("active app unavailable", "error", err)
		app = ""
	}
	title, err := l.deps.Window.ActiveWindowTitle(ctx)
	if err != nil {
		l.logger.Debug("window title unavailable", "error", err)
		title = ""
	}
	return app, title
}

func (l *Loop) toEntry(e *CaptureEvent) *models.Entry {
	return &models.Entry{
		SessionID:    l.session,
		Timestamp:    e.Timestamp.Unix(),
		CapturedAt:   e.Timestamp,
		MonitorIndex: e.Frame.Index,
		Similarity:   e.Similarity,
		ArtifactPath: e.ArtifactPath,
		Text:         e.Text,
		Embedding:    embedding.SerializeVector(e.Embedding),
		AppName:      e.AppName,
		WindowTitle:  e.WindowTitle,
	}
}

func newErrorLog(stage Stage, index int, err error) *models.ErrorLog {
	return &models.ErrorLog{
		Timestamp:    time.Now(),
		Stage:        string(stage),
		MonitorIndex: index,
		ErrorMsg:     err.Error(),
	}
}
