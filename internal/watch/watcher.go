// Package watch re-resolves a configuration whenever a file in its extends
// chain changes.
package watch

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/event"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/logging"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/resolver"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/validate"
)

const (
	// DefaultDebounce collapses bursts of events from a single save.
	DefaultDebounce = 100 * time.Millisecond
	// DefaultMaxRetries bounds re-resolution attempts per change.
	DefaultMaxRetries = 3
	// DefaultRetryInterval is the first backoff interval.
	DefaultRetryInterval = 50 * time.Millisecond
)

// Resolver resolves a configuration file.
type Resolver interface {
	RunFile(path string) (*resolver.Result, error)
}

// Options configures a Watcher.
type Options struct {
	// Bus receives config.changed events. Defaults to the global bus.
	Bus    *event.Bus
	Logger *zerolog.Logger
	// OnResult is called after every re-resolution, successful or not.
	OnResult      func(*resolver.Result, error)
	Debounce      time.Duration
	MaxRetries    uint64
	RetryInterval time.Duration
}

// Watcher watches every file of a resolved chain. Directories are watched
// rather than files so that editors replacing a file on save are noticed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	resolver Resolver
	source   string
	opts     Options
	bus      *event.Bus
	log      zerolog.Logger

	files map[string]struct{}
	dirs  map[string]struct{}
	last  *resolver.Result

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.RWMutex
}

// New resolves source once and prepares to watch its chain. The initial
// resolution must succeed.
func New(r Resolver, source string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	log := logging.Component("watch")
	if opts.Logger != nil {
		log = *opts.Logger
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.Global()
	}

	res, err := r.RunFile(source)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		resolver: r,
		source:   source,
		opts:     opts,
		bus:      bus,
		log:      log,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if err := w.track(res); err != nil {
		fw.Close()
		return nil, err
	}

	log.Info().Str("source", source).Int("files", len(w.files)).Msg("watching config chain")
	return w, nil
}

// track records res as the current result and watches its files.
func (w *Watcher) track(res *resolver.Result) error {
	files := make(map[string]struct{}, len(res.Files))
	for _, f := range res.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		files[abs] = struct{}{}

		dir := filepath.Dir(abs)
		w.mu.RLock()
		_, watched := w.dirs[dir]
		w.mu.RUnlock()
		if watched {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.mu.Lock()
		w.dirs[dir] = struct{}{}
		w.mu.Unlock()
	}

	w.mu.Lock()
	w.files = files
	w.last = res
	w.mu.Unlock()
	return nil
}

// Start begins watching.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		changed string
	)

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 || !w.isTracked(ev.Name) {
				continue
			}
			changed = ev.Name
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			w.handleChange(changed)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) isTracked(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[abs]
	return ok
}

func (w *Watcher) handleChange(path string) {
	w.log.Info().Str("file", path).Msg("config changed")
	w.bus.Publish(event.Event{
		Type: event.ConfigChanged,
		Data: event.ChangedData{Path: path, Source: w.source},
	})

	res, err := w.reresolve()
	if err == nil {
		err = w.track(res)
	}
	if err != nil {
		w.log.Warn().Err(err).Str("source", w.source).Msg("re-resolve failed")
	}
	if w.opts.OnResult != nil {
		w.opts.OnResult(res, err)
	}
}

// reresolve retries failures that may come from a half-written file.
// Validation failures are final.
func (w *Watcher) reresolve() (*resolver.Result, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.opts.RetryInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()

	var res *resolver.Result
	err := backoff.Retry(func() error {
		var err error
		res, err = w.resolver.RunFile(w.source)
		if errors.Is(err, validate.ErrValidation) || errors.Is(err, resolver.ErrInvalidInput) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithMaxRetries(b, w.opts.MaxRetries))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Current returns the last successful result.
func (w *Watcher) Current() *resolver.Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// Files returns the watched files.
func (w *Watcher) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	return files
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}
