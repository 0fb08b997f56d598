// Package hotconfig 监听运行期可调参数文件（JSON），变更时回调。
package hotconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Tunables 为可在运行中修改的参数。
type Tunables struct {
	IdleTimeout time.Duration
}

type fileFormat struct {
	IdleTimeout string `json:"idle_timeout"`
}

// Load 读取并解析参数文件。
func Load(path string) (Tunables, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Tunables{}, err
	}
	var f fileFormat
	if err := json.Unmarshal(b, &f); err != nil {
		return Tunables{}, fmt.Errorf("hotconfig: parse %s: %w", path, err)
	}
	var t Tunables
	if f.IdleTimeout != "" {
		d, err := time.ParseDuration(f.IdleTimeout)
		if err != nil {
			return Tunables{}, fmt.Errorf("hotconfig: idle_timeout: %w", err)
		}
		if d < 0 {
			return Tunables{}, fmt.Errorf("hotconfig: idle_timeout %v is negative", d)
		}
		t.IdleTimeout = d
	}
	return t, nil
}

// Watcher 监听单个参数文件。监听的是所在目录，以兼容先写临时文件再 rename 的编辑方式。
type Watcher struct {
	path string
	w    *fsnotify.Watcher
	log  *slog.Logger
}

// New 创建 Watcher；返回时监听已经生效。
func New(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{path: abs, w: w, log: logger.With("component", "hotconfig", "path", abs)}, nil
}

// Run 阻塞直到 ctx 结束；文件被写入或替换后重新加载并调用 fn。
// 解析失败只记录日志，保留上一次的参数。
func (w *Watcher) Run(ctx context.Context, fn func(Tunables)) error {
	defer w.w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return errors.New("hotconfig: watcher closed")
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			t, err := Load(w.path)
			if err != nil {
				w.log.Warn("reload failed", "err", err)
				continue
			}
			w.log.Info("tunables reloaded", "idle_timeout", t.IdleTimeout)
			fn(t)
		case err, ok := <-w.w.Errors:
			if !ok {
				return errors.New("hotconfig: watcher closed")
			}
			w.log.Warn("watch error", "err", err)
		}
	}
}
