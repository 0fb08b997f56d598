//go:build !linux && !darwin

package evloop

import (
	"context"
	"errors"
	"testing"
)

func TestUnsupportedPlatform(t *testing.T) {
	if _, err := NewServer(DefaultConfig()); !errors.Is(err, ErrPlatformNotSupported) {
		t.Fatalf("NewServer = %v", err)
	}
	var s *Server
	if err := s.Serve(context.Background()); !errors.Is(err, ErrPlatformNotSupported) {
		t.Fatalf("Serve = %v", err)
	}
	if s.Addr() != nil || s.Loop() != nil {
		t.Fatal("expected nil addr and loop")
	}
}
