package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/northstar-intel/northstar/internal/health"
)

func TestCheck_allPassing(t *testing.T) {
	c := health.New(time.Second, zap.NewNop())
	c.Register("database", func(ctx context.Context) error { return nil })
	c.Register("models", func(ctx context.Context) error { return nil })

	report := c.Check(context.Background())

	if report.Status != "ok" {
		t.Errorf("status: got %q, want ok", report.Status)
	}
	if report.Checks["database"] != "ok" || report.Checks["models"] != "ok" {
		t.Errorf("checks: %v", report.Checks)
	}
}

func TestCheck_oneFailing(t *testing.T) {
	c := health.New(time.Second, zap.NewNop())
	c.Register("database", func(ctx context.Context) error { return errors.New("connection refused") })
	c.Register("models", func(ctx context.Context) error { return nil })

	report := c.Check(context.Background())

	if report.Status != "degraded" {
		t.Errorf("status: got %q, want degraded", report.Status)
	}
	if report.Checks["database"] != "connection refused" {
		t.Errorf("failing probe result: %q", report.Checks["database"])
	}
	if report.Checks["models"] != "ok" {
		t.Errorf("passing probe result: %q", report.Checks["models"])
	}
}

func TestCheck_probeHonorsTimeout(t *testing.T) {
	c := health.New(50*time.Millisecond, zap.NewNop())
	c.Register("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	start := time.Now()
	report := c.Check(context.Background())

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("check did not respect timeout, took %s", elapsed)
	}
	if report.Status != "degraded" {
		t.Errorf("status: got %q, want degraded", report.Status)
	}
}

func TestCheck_noProbes(t *testing.T) {
	c := health.New(time.Second, zap.NewNop())
	if report := c.Check(context.Background()); report.Status != "ok" {
		t.Errorf("empty checker should be ok, got %q", report.Status)
	}
}
