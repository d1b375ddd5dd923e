package config

import (
	"errors"
	"io/fs"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadDotEnv loads variables from .env style files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Watcher keeps the latest valid configuration and notifies subscribers when
// the config file changes. Invalid edits are reported and ignored.
type Watcher struct {
	v       *viper.Viper
	mu      sync.RWMutex
	current *Config
	onError func(error)
	subs    []func(old, updated *Config)
}

// NewWatcher loads the configuration and prepares a watcher for it
func NewWatcher(configPath string) (*Watcher, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Watcher{v: v, current: cfg, onError: func(error) {}}, nil
}

// Current returns the most recent valid configuration
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers fn to run after every accepted reload
func (w *Watcher) OnChange(fn func(old, updated *Config)) {
	w.mu.Lock()
	w.subs = append(w.subs, fn)
	w.mu.Unlock()
}

// OnError registers fn to receive reload failures
func (w *Watcher) OnError(fn func(error)) {
	w.mu.Lock()
	w.onError = fn
	w.mu.Unlock()
}

// Start begins watching the config file. Without a config file it is a no-op.
func (w *Watcher) Start() {
	if w.v.ConfigFileUsed() == "" {
		return
	}
	w.v.OnConfigChange(w.handle)
	w.v.WatchConfig()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	w.reload()
}

func (w *Watcher) reload() {
	updated, err := decode(w.v)

	w.mu.Lock()
	if err != nil {
		onError := w.onError
		w.mu.Unlock()
		onError(err)
		return
	}
	old := w.current
	w.current = updated
	subs := append([]func(old, updated *Config){}, w.subs...)
	w.mu.Unlock()

	for _, fn := range subs {
		fn(old, updated)
	}
}
