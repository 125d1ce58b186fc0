package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/nurexia/internal/core"
	"go.uber.org/zap"
)

const (
	transcriptRoot = "transcripts"
	writeTimeout   = 30 * time.Second
)

// Transcript is the archived record of one workflow run.
type Transcript struct {
	RunID      string         `json:"run_id"`
	Provider   string         `json:"provider"`
	Model      string         `json:"model,omitempty"`
	Mode       core.Mode      `json:"mode"`
	Messages   []core.Message `json:"messages"`
	Result     string         `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  string         `json:"started_at,omitempty"`
	FinishedAt string         `json:"finished_at,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// FromState captures the archivable parts of a terminal state.
func FromState(s *core.State) Transcript {
	runID := s.Meta(core.MetaRunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	meta := make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		meta[k] = v
	}
	return Transcript{
		RunID:      runID,
		Provider:   s.Provider,
		Model:      s.Model,
		Mode:       s.Mode,
		Messages:   append([]core.Message(nil), s.Messages...),
		Result:     s.Result,
		Error:      s.Error,
		StartedAt:  s.Meta(core.MetaStartedAt),
		FinishedAt: s.Meta(core.MetaFinishedAt),
		Metadata:   meta,
	}
}

// Path returns transcripts/YYYY/MM/DD/<run_id>.json, dated by FinishedAt.
func (t Transcript) Path() string {
	at, err := time.Parse(time.RFC3339Nano, t.FinishedAt)
	if err != nil {
		at = time.Now().UTC()
	}
	return fmt.Sprintf("%s/%s/%s.json", transcriptRoot, at.Format("2006/01/02"), t.RunID)
}

// Recorder receives archive outcomes.
type Recorder interface {
	RecordTranscript(err error)
}

// Archiver writes transcripts of terminal states to a Storage.
type Archiver struct {
	store   Storage
	logger  *zap.Logger
	metrics Recorder
}

// NewArchiver creates an archiver. logger and metrics may be nil.
func NewArchiver(store Storage, logger *zap.Logger, metrics Recorder) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{store: store, logger: logger, metrics: metrics}
}

// Save writes the transcript of s and returns its path.
func (a *Archiver) Save(ctx context.Context, s *core.State) (string, error) {
	t := FromState(s)
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		a.record(err)
		return "", fmt.Errorf("encoding transcript: %w", err)
	}
	path := t.Path()
	err = a.store.Write(ctx, path, data)
	a.record(err)
	if err != nil {
		return "", fmt.Errorf("writing transcript: %w", err)
	}
	return path, nil
}

// Load reads a transcript previously written by Save.
func (a *Archiver) Load(ctx context.Context, path string) (Transcript, error) {
	var t Transcript
	data, err := a.store.Read(ctx, path)
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("decoding transcript %s: %w", path, err)
	}
	return t, nil
}

// Hook archives s after a run. Failures are logged and never reach the
// caller; the write is detached from ctx so a cancelled request still
// gets its transcript.
func (a *Archiver) Hook(ctx context.Context, s *core.State) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	path, err := a.Save(wctx, s)
	if err != nil {
		a.logger.Warn("failed to archive transcript",
			zap.String("run_id", s.Meta(core.MetaRunID)),
			zap.Error(err))
		return
	}
	a.logger.Debug("archived transcript", zap.String("path", path))
}

func (a *Archiver) record(err error) {
	if a.metrics != nil {
		a.metrics.RecordTranscript(err)
	}
}
