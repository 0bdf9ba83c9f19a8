package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"emojipress/common"
	"emojipress/config"
	"emojipress/report"
)

// FileProcessor converts one image of a platform; implemented by
// compressor.Compressor
type FileProcessor interface {
	InputDir(p config.Platform) string
	ProcessFile(ctx context.Context, p config.Platform, file string) report.FileResult
}

// Watcher monitors platform input folders and converts new images
type Watcher struct {
	cfg       *config.Config
	processor FileProcessor
	watcher   *fsnotify.Watcher
	logger    *zap.Logger
	events    chan Event
	platforms map[string]config.Platform

	mu       sync.Mutex
	debounce map[string]*pendingEvent
	inflight map[string]bool
	rerun    map[string]EventType
	pending  sync.WaitGroup
	started  bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Event represents a processed file system event
type Event struct {
	Type     EventType
	Platform string
	FilePath string
	Result   report.FileResult
}

type pendingEvent struct {
	timer     *time.Timer
	eventType EventType
}

// EventType represents the type of file event
type EventType int

const (
	EventCreated EventType = iota
	EventModified
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	default:
		return "unknown"
	}
}

// NewWatcher creates a new file watcher
func NewWatcher(cfg *config.Config, processor FileProcessor, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cfg:       cfg,
		processor: processor,
		watcher:   fsWatcher,
		logger:    logger,
		events:    make(chan Event, 100),
		platforms: make(map[string]config.Platform),
		debounce:  make(map[string]*pendingEvent),
		inflight:  make(map[string]bool),
		rerun:     make(map[string]EventType),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}, nil
}

// Start begins monitoring every existing platform folder.
// It returns the number of folders watched.
func (w *Watcher) Start() (int, error) {
	for _, p := range w.cfg.Platforms {
		dir := filepath.Clean(w.processor.InputDir(p))
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			w.logger.Warn("platform directory does not exist, not watching", zap.String("dir", dir))
			continue
		}

		if err := w.watcher.Add(dir); err != nil {
			return 0, fmt.Errorf("failed to watch folder %s: %w", dir, err)
		}
		w.platforms[dir] = p
		w.logger.Info("watching folder", zap.String("dir", dir), zap.String("platform", p.Name))
	}

	if len(w.platforms) == 0 {
		return 0, fmt.Errorf("no platform directories to watch under %s", w.cfg.InputDir)
	}

	w.started = true
	go w.processEvents()
	return len(w.platforms), nil
}

// processEvents filters fsnotify events and debounces them per file
func (w *Watcher) processEvents() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.interesting(event) {
				continue
			}
			w.schedule(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// interesting keeps create/write events on image files we did not write
func (w *Watcher) interesting(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || common.IsIntermediate(name) {
		return false
	}
	return common.IsImageName(name)
}

// schedule handles event once no further event for the same file arrived
// within the debounce window
func (w *Watcher) schedule(event fsnotify.Event) {
	eventType := EventModified
	if event.Has(fsnotify.Create) {
		eventType = EventCreated
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.enqueue(event.Name, eventType)
}

// enqueue arms the debounce timer for name; w.mu must be held
func (w *Watcher) enqueue(name string, eventType EventType) {
	if w.ctx.Err() != nil {
		return
	}

	// A file being converted is queued again once that conversion ends
	if w.inflight[name] {
		if _, queued := w.rerun[name]; !queued {
			w.rerun[name] = eventType
		}
		return
	}

	// A burst keeps the type of its first event
	if prev, exists := w.debounce[name]; exists {
		if prev.timer.Stop() {
			w.pending.Done()
		}
		eventType = prev.eventType
	}

	pe := &pendingEvent{eventType: eventType}
	w.pending.Add(1)
	pe.timer = time.AfterFunc(w.cfg.Watch.Debounce, func() {
		defer w.pending.Done()
		w.fire(name, pe)
	})
	w.debounce[name] = pe
}

// fire runs when pe's timer expires
func (w *Watcher) fire(name string, pe *pendingEvent) {
	w.mu.Lock()
	if w.debounce[name] != pe {
		// Superseded by a later event
		w.mu.Unlock()
		return
	}
	delete(w.debounce, name)
	if w.inflight[name] {
		if _, queued := w.rerun[name]; !queued {
			w.rerun[name] = pe.eventType
		}
		w.mu.Unlock()
		return
	}
	w.inflight[name] = true
	w.mu.Unlock()

	w.handle(pe.eventType, name)

	w.mu.Lock()
	delete(w.inflight, name)
	if next, again := w.rerun[name]; again {
		delete(w.rerun, name)
		w.enqueue(name, next)
	}
	w.mu.Unlock()
}

// handle converts the file and publishes the outcome
func (w *Watcher) handle(eventType EventType, path string) {
	if w.ctx.Err() != nil {
		return
	}

	p, ok := w.platforms[filepath.Dir(path)]
	if !ok {
		return
	}

	// The file may have been removed again while debouncing
	if _, err := os.Stat(path); err != nil {
		return
	}

	w.logger.Info("file changed", zap.String("event", eventType.String()), zap.String("file", path))
	result := w.processor.ProcessFile(w.ctx, p, path)

	select {
	case w.events <- Event{Type: eventType, Platform: p.Name, FilePath: path, Result: result}:
	case <-w.ctx.Done():
	}
}

// Events returns the event channel; it is closed by Stop
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher and waits for in-flight conversions
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.cancel()
		for name, prev := range w.debounce {
			if prev.timer.Stop() {
				w.pending.Done()
			}
			delete(w.debounce, name)
		}
		for name := range w.rerun {
			delete(w.rerun, name)
		}
		started := w.started
		w.mu.Unlock()

		err = w.watcher.Close()
		if started {
			<-w.done
		}
		w.pending.Wait()
		close(w.events)
	})
	return err
}
