package scheduler

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// configWatcher reports edits of one config file. The parent directory is
// watched so editors that replace the file by rename are still seen. Bursts
// of events collapse into one notification after the debounce interval.
type configWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   *slog.Logger
	changes  chan struct{}

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

func watchConfig(path string, debounce time.Duration, logger *slog.Logger) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	cw := &configWatcher{
		watcher:  w,
		path:     abs,
		debounce: debounce,
		logger:   logger,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go cw.loop()
	return cw, nil
}

// Changes delivers one value per settled burst of edits.
func (c *configWatcher) Changes() <-chan struct{} { return c.changes }

func (c *configWatcher) loop() {
	defer close(c.done)
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != c.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			c.logger.Debug("config file event", "op", ev.Op.String(), "path", ev.Name)
			c.schedule()
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (c *configWatcher) schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		select {
		case c.changes <- struct{}{}:
		default:
		}
	})
}

// Close stops watching and waits for the event loop to exit.
func (c *configWatcher) Close() error {
	err := c.watcher.Close()
	<-c.done

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
	return err
}
