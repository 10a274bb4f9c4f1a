// Package file reads settings from an editor-style settings file and watches it
// for changes. JSON with comments (settings.json) and YAML are supported.
// Keys may be flat ("fauna.dbSecret") or nested ({"fauna": {"dbSecret": ...}}).
package file

import (
	"context"
	"fmt"
	"fqlrun/internal/types"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/jsonc"
)

// Source is a SettingsSource backed by a file.
type Source struct {
	path string

	mu     sync.RWMutex
	values map[string]string

	watcher *fsnotify.Watcher
	changes chan []string
	done    chan struct{}
	once    sync.Once
}

// Open loads path. A missing file yields an empty settings set. When watch is
// true the file's directory is watched and changed keys are delivered on
// Changes().
func Open(path string, watch bool) (*Source, error) {
	s := &Source{path: path, values: map[string]string{}, done: make(chan struct{})}
	values, err := load(path)
	if err != nil {
		return nil, err
	}
	s.values = values
	if !watch {
		return s, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, types.Err(types.ErrSettingsAccess, err, "watch %s", path)
	}
	// Watch the directory: editors replace the file on save.
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, types.Err(types.ErrSettingsAccess, err, "watch %s", path)
	}
	s.watcher = w
	s.changes = make(chan []string, 8)
	go s.watch()
	return s, nil
}

func (s *Source) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set writes key to the file, preserving other keys. Comments are not kept.
func (s *Source) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[string]string, len(s.values)+1)
	for k, v := range s.values {
		next[k] = v
	}
	next[key] = value
	if err := save(s.path, next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *Source) Changes() <-chan []string { return s.changes }

func (s *Source) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}

func (s *Source) watch() {
	defer close(s.changes)
	target := filepath.Clean(s.path)
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			changed := s.reload()
			if len(changed) == 0 {
				continue
			}
			select {
			case s.changes <- changed:
			case <-s.done:
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("settings watcher error")
		}
	}
}

// reload re-reads the file and returns the keys whose values differ. An empty
// file is treated as a save in progress and ignored.
func (s *Source) reload() []string {
	data, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		log.WithError(err).WithField("path", s.path).Warn("failed to reload settings")
		return nil
	}
	if err == nil && len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	values := map[string]string{}
	if err == nil {
		if values, err = parse(s.path, data); err != nil {
			log.WithError(err).WithField("path", s.path).Warn("failed to reload settings")
			return nil
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := diff(s.values, values)
	s.values = values
	return changed
}

func diff(old, next map[string]string) []string {
	var out []string
	for k, v := range next {
		if ov, ok := old[k]; !ok || ov != v {
			out = append(out, k)
		}
	}
	for k := range old {
		if _, ok := next[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

func load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, types.Err(types.ErrSettingsAccess, err, "read %s", path)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (map[string]string, error) {
	var (
		raw map[string]any
		err error
	)
	if isYAML(path) {
		err = yaml.Unmarshal(data, &raw)
	} else if len(strings.TrimSpace(string(data))) > 0 {
		err = json.Unmarshal(jsonc.ToJSON(data), &raw)
	}
	if err != nil {
		return nil, types.Err(types.ErrSettingsAccess, err, "parse %s", path)
	}
	out := map[string]string{}
	flatten("", raw, out)
	return out, nil
}

// flatten turns nested sections into dotted keys. Non-string scalars are
// formatted with %v; nulls are dropped.
func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case nil:
		case map[string]any:
			flatten(key, t, out)
		case map[any]any:
			m := make(map[string]any, len(t))
			for mk, mv := range t {
				m[fmt.Sprint(mk)] = mv
			}
			flatten(key, m, out)
		case string:
			out[key] = t
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}

func save(path string, values map[string]string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(values)
	} else {
		data, err = json.MarshalIndent(values, "", "  ")
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.Err(types.ErrSettingsAccess, err, "")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return types.Err(types.ErrSettingsAccess, err, "write %s", path)
	}
	return nil
}
