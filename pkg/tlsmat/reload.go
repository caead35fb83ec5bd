package tlsmat

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadWatcher watches the files behind static TLS material and
// republishes the material when they change, so certificate renewals
// take effect without a restart. Events are debounced to avoid reload
// storms while a renewal tool rewrites several files.
type ReloadWatcher struct {
	config   Config
	rotating *Rotating
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration
}

// NewReloadWatcher creates a watcher over cfg's files, publishing
// rebuilt material into rotating.
func NewReloadWatcher(cfg Config, rotating *Rotating, logger *slog.Logger) (*ReloadWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	rw := &ReloadWatcher{
		config:   cfg,
		rotating: rotating,
		watcher:  watcher,
		logger:   logger.With("component", "tlsmat.reload"),
		debounce: 100 * time.Millisecond,
	}

	// Watch parent directories rather than the files themselves:
	// renewal tools typically replace files by rename, which drops a
	// direct file watch.
	dirs := make(map[string]bool)
	for _, f := range []string{cfg.CertFile, cfg.KeyFile, cfg.BundleFile, cfg.TrustFile} {
		if f == "" {
			continue
		}
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
		}
	}

	return rw, nil
}

// Watch runs the reload loop until ctx is cancelled.
func (rw *ReloadWatcher) Watch(ctx context.Context) error {
	defer rw.watcher.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-rw.watcher.Events:
			if !ok {
				return nil
			}
			if !rw.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(rw.debounce)
				timerC = timer.C
			} else {
				timer.Reset(rw.debounce)
			}

		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return nil
			}
			rw.logger.Error("watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			rw.reload()
		}
	}
}

// relevant filters events down to writes and renames of the watched
// material files.
func (rw *ReloadWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	for _, f := range []string{rw.config.CertFile, rw.config.KeyFile, rw.config.BundleFile, rw.config.TrustFile} {
		if f != "" && filepath.Clean(f) == name {
			return true
		}
	}
	return false
}

// reload rebuilds the material and publishes it. A rebuild failure
// keeps the previous snapshot: a half-written renewal must never take a
// listener's identity away.
func (rw *ReloadWatcher) reload() {
	material, err := Build(rw.config)
	if err != nil {
		rw.logger.Error("material reload failed, keeping previous material", "error", err)
		return
	}
	rw.rotating.Publish(material)
	rw.logger.Info("reloaded TLS material")
}
