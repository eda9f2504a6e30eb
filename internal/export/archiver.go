package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/clock"
)

// DraftSource yields the draft to archive
type DraftSource interface {
	Snapshot() *draft.Draft
}

// ArchiverConfig configures scheduled archiving
type ArchiverConfig struct {
	// Schedule is a cron expression with a leading seconds field, or a
	// descriptor such as "@every 1h".
	Schedule string
	Dir      string
	Formats  []Format
}

// Archiver writes the draft's beacon schedule to disk on a cron schedule
type Archiver struct {
	cron    *cron.Cron
	source  DraftSource
	clock   clock.Clock
	config  ArchiverConfig
	logger  *zap.Logger
	mu      sync.Mutex
	running bool
}

// NewArchiver validates the schedule and formats and returns a stopped archiver
func NewArchiver(source DraftSource, clk clock.Clock, config ArchiverConfig, logger *zap.Logger) (*Archiver, error) {
	if len(config.Formats) == 0 {
		return nil, fmt.Errorf("archiver needs at least one format")
	}
	a := &Archiver{
		cron:   cron.New(cron.WithSeconds()),
		source: source,
		clock:  clk,
		config: config,
		logger: logger.With(zap.String("component", "archiver")),
	}
	if _, err := a.cron.AddFunc(config.Schedule, func() {
		if _, err := a.RunOnce(context.Background()); err != nil {
			a.logger.Error("Scheduled archive failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid archive schedule %q: %w", config.Schedule, err)
	}
	return a, nil
}

// ParseFormats converts format names, rejecting unknown ones
func ParseFormats(names []string) ([]Format, error) {
	formats := make([]Format, 0, len(names))
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// Start starts the cron scheduler
func (a *Archiver) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("archiver already running")
	}
	if err := os.MkdirAll(a.config.Dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	a.cron.Start()
	a.running = true
	a.logger.Info("Archiver started", zap.String("schedule", a.config.Schedule), zap.String("dir", a.config.Dir))
	return nil
}

// Stop stops the scheduler and waits for a running archive to finish
func (a *Archiver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	<-a.cron.Stop().Done()
	a.running = false
}

// RunOnce archives the current draft in every configured format and returns
// the written paths. An empty draft writes nothing.
func (a *Archiver) RunOnce(ctx context.Context) ([]string, error) {
	d := a.source.Snapshot()
	if d.TitleNumber == "" && len(d.Coordinates) == 0 {
		a.logger.Debug("Skipping archive of empty draft")
		return nil, nil
	}

	now := a.clock.Now().UTC()
	stamp := now.Format("20060102T150405Z")
	paths := make([]string, 0, len(a.config.Formats))

	for _, format := range a.config.Formats {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(a.config.Dir, stamp+"_"+format.Filename(d.TitleNumber))
		if err := writeFile(path, format, d, now); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	a.logger.Info("Draft archived", zap.Strings("files", paths))
	return paths, nil
}

func writeFile(path string, format Format, d *draft.Draft, now time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	if err := Write(f, format, d, now); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s archive: %w", format, err)
	}
	return f.Close()
}
