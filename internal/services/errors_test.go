package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/viadorer/orchestrator-sub001/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "generate_content", "completion", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"generate_content", "completion", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindAndStaleRequest(t *testing.T) {
	cases := []struct {
		err   error
		kind  string
		stale bool
	}{
		{nil, "none", false},
		{services.Wrap(services.ErrNotFound, "executor", "load", "missing", nil), "not_found", true},
		{fmt.Errorf("outer: %w", services.ErrInconsistent), "inconsistent", true},
		{services.Wrap(services.ErrUnsupportedTaskType, "executor", "dispatch", "bogus", nil), "unsupported_task_type", false},
		{services.Wrap(services.ErrConfiguration, "publisher", "", "missing api key", nil), "configuration", false},
		{errors.New("plain"), "transient", false},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := services.IsStaleRequest(tc.err); got != tc.stale {
			t.Fatalf("IsStaleRequest(%v) = %v, want %v", tc.err, got, tc.stale)
		}
	}
}

func TestFailureMessageFlattensAndTruncates(t *testing.T) {
	if got := services.FailureMessage(nil); got != "" {
		t.Fatalf("expected empty message for nil, got %q", got)
	}
	got := services.FailureMessage(errors.New("line one\n\tline two  "))
	if got != "line one line two" {
		t.Fatalf("unexpected flattened message %q", got)
	}
	long := services.FailureMessage(errors.New(strings.Repeat("x", 1500)))
	if !strings.HasSuffix(long, "...") || len([]rune(long)) != 1003 {
		t.Fatalf("expected truncated message, got length %d", len([]rune(long)))
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTaskID(ctx, "task-1")
	ctx = services.WithProjectID(ctx, "proj-1")
	ctx = services.WithStage(ctx, "auto_publish")
	ctx = services.WithRequestID(ctx, "req-1")

	if v, ok := services.TaskIDFromContext(ctx); !ok || v != "task-1" {
		t.Fatalf("task id = %q, %v", v, ok)
	}
	if v, ok := services.ProjectIDFromContext(ctx); !ok || v != "proj-1" {
		t.Fatalf("project id = %q, %v", v, ok)
	}
	if v, ok := services.StageFromContext(ctx); !ok || v != "auto_publish" {
		t.Fatalf("stage = %q, %v", v, ok)
	}
	if v, ok := services.RequestIDFromContext(ctx); !ok || v != "req-1" {
		t.Fatalf("request id = %q, %v", v, ok)
	}
	if got := services.WithStage(context.Background(), ""); got != context.Background() {
		t.Fatal("expected empty stage to leave context untouched")
	}
}
