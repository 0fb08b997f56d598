//go:build linux || darwin

package process

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/legamerdc/evloop"
)

func startServer(t *testing.T, cfg evloop.Config) string {
	t.Helper()
	cfg.Address = "127.0.0.1:0"
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := evloop.NewServer(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	addr, err := srv.Listen()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; err != nil {
			t.Errorf("serve: %v", err)
		}
	})
	return addr.String()
}

func roundTrip(t *testing.T, addr string, payload []byte) []byte {
	t.Helper()
	nc, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer nc.Close()
	_ = nc.SetDeadline(time.Now().Add(10 * time.Second))
	go func() {
		_, _ = nc.Write(payload)
		_ = nc.(*net.TCPConn).CloseWrite()
	}()
	got, err := io.ReadAll(nc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return got
}

func TestCompressServer(t *testing.T) {
	cfg := evloop.DefaultConfig()
	cfg.Process = Compress(zstd.SpeedFastest)
	addr := startServer(t, cfg)

	payload := []byte(strings.Repeat("compressible line\n", 20000))
	stream := roundTrip(t, addr, payload)
	got, err := DecodeFrames(stream)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("decoded %d bytes, want %d", len(got), len(payload))
	}
}

func TestAcknowledgeServer(t *testing.T) {
	cfg := evloop.DefaultConfig()
	cfg.NewProcessor = Acknowledge
	addr := startServer(t, cfg)

	got := string(roundTrip(t, addr, []byte("hello")))
	if !strings.HasPrefix(got, "we receive your127.0.0.1:") ||
		!strings.HasSuffix(got, " message:hello , thanks for you call.") {
		t.Fatalf("got %q", got)
	}
}
