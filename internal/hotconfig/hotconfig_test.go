package hotconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tunables.json")

	writeFile(t, path, `{"idle_timeout":"1m30s"}`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.IdleTimeout != 90*time.Second {
		t.Fatalf("idle timeout = %v, want 1m30s", got.IdleTimeout)
	}

	writeFile(t, path, `{}`)
	if got, err := Load(path); err != nil || got.IdleTimeout != 0 {
		t.Fatalf("empty file = %+v, %v", got, err)
	}

	for _, bad := range []string{`{"idle_timeout":"soon"}`, `{"idle_timeout":"-1s"}`, `not json`} {
		writeFile(t, path, bad)
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%s) succeeded, want error", bad)
		}
	}
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tunables.json")
	writeFile(t, path, `{"idle_timeout":"10s"}`)

	w, err := New(path, nil)
	if err != nil {
		t.Skip("fsnotify not supported: ", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Tunables, 8)
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx, func(tu Tunables) { got <- tu }) }()

	// 其他文件的变化不应触发回调
	writeFile(t, filepath.Join(dir, "other.json"), `{"idle_timeout":"1s"}`)
	writeFile(t, path, `{"idle_timeout":"250ms"}`)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case tu := <-got:
			if tu.IdleTimeout == 250*time.Millisecond {
				cancel()
				if err := <-runErr; err != nil {
					t.Fatalf("run: %v", err)
				}
				return
			}
			if tu.IdleTimeout != 10*time.Second {
				t.Fatalf("unexpected tunables %+v", tu)
			}
		case <-deadline:
			t.Fatal("timeout waiting for reload")
		}
	}
}
