package registry

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/servicearea/internal/fetcher"
)

// Holder publishes the current Registry. Readers always see one complete
// registry; a reload replaces it with a single pointer swap.
type Holder struct {
	cur atomic.Pointer[Registry]
}

// NewHolder returns a Holder serving reg.
func NewHolder(reg *Registry) *Holder {
	h := &Holder{}
	h.cur.Store(reg)
	return h
}

// Load returns the current registry.
func (h *Holder) Load() *Registry {
	return h.cur.Load()
}

// Swap installs reg and returns the previous registry.
func (h *Holder) Swap(reg *Registry) *Registry {
	return h.cur.Swap(reg)
}

// ReloadFunc rebuilds the registry from its source.
type ReloadFunc func(ctx context.Context) (*Registry, error)

// Reload runs fn and installs its result. On failure, or when fn returns
// ErrUnchanged, the current registry stays in place.
func (h *Holder) Reload(ctx context.Context, fn ReloadFunc) error {
	reg, err := fn(ctx)
	if eris.Is(err, ErrUnchanged) {
		return nil
	}
	if err != nil {
		zap.L().Error("registry: reload failed, keeping previous registry", zap.Error(err))
		return err
	}
	h.Swap(reg)
	zap.L().Info("registry: reloaded",
		zap.Int("streets", reg.StreetCount()),
		zap.Int("keys", reg.Len()),
	)
	return nil
}

// Watch reloads the registry whenever the file at path changes. It watches
// the parent directory so editors that replace the file are seen too, and
// waits for debounce of quiet before reloading. Watch blocks until ctx is done.
func (h *Holder) Watch(ctx context.Context, path string, debounce time.Duration, fn ReloadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return eris.Wrap(err, "registry: resolve watch path")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "registry: create watcher")
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return eris.Wrap(err, "registry: watch feed directory")
	}
	zap.L().Info("registry: watching feed", zap.String("path", abs))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			zap.L().Warn("registry: watcher error", zap.Error(err))

		case <-timer.C:
			_ = h.Reload(ctx, fn)
		}
	}
}

// Poll reloads the registry every interval. It suits remote feeds, where fn
// can use a conditional download and return ErrUnchanged. Poll blocks until
// ctx is done.
func (h *Holder) Poll(ctx context.Context, interval time.Duration, fn ReloadFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = h.Reload(ctx, fn)
		}
	}
}

// ErrUnchanged tells Reload the source has not changed since the last load.
var ErrUnchanged = eris.New("registry: source unchanged")

// ConditionalReload returns a ReloadFunc for src. HTTP sources are fetched
// with If-None-Match and report ErrUnchanged while the ETag holds; other
// sources are reloaded in full every time.
func ConditionalReload(src string, opts LoadOptions, buildOpts ...BuildOption) ReloadFunc {
	lower := strings.ToLower(src)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return func(ctx context.Context) (*Registry, error) {
			reg, _, err := FromSource(ctx, src, opts, buildOpts...)
			return reg, err
		}
	}

	hf := fetcher.NewHTTPFetcher(opts.Fetch.HTTP)
	var mu sync.Mutex
	var etag string
	return func(ctx context.Context) (*Registry, error) {
		format, err := opts.format(src)
		if err != nil {
			return nil, err
		}

		mu.Lock()
		defer mu.Unlock()

		body, newTag, changed, err := hf.DownloadIfChanged(ctx, src, etag)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: poll %s", src)
		}
		if !changed {
			return nil, ErrUnchanged
		}
		defer body.Close() //nolint:errcheck

		rows, err := LoadReader(ctx, body, format, opts.columns())
		if err != nil {
			return nil, eris.Wrapf(err, "registry: poll %s", src)
		}
		reg, _, err := build(src, rows, buildOpts)
		if err != nil {
			return nil, err
		}
		etag = newTag
		return reg, nil
	}
}
