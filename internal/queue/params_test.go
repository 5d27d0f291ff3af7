package queue_test

import (
	"errors"
	"testing"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/queue"
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

func TestDecodeGenerateContentDefaults(t *testing.T) {
	p, err := queue.DecodeGenerateContent(nil)
	if err != nil {
		t.Fatalf("DecodeGenerateContent: %v", err)
	}
	if p.Platform != "facebook" || p.ContentType != "post" || p.Source != queue.SourceManual {
		t.Fatalf("unexpected defaults: %#v", p)
	}
}

func TestDecodeGenerateContentRejectsUnknownKeys(t *testing.T) {
	_, err := queue.DecodeGenerateContent([]byte(`{"platform":"x","enabled":true}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeGenerateContentPriorityNeedsTopic(t *testing.T) {
	_, err := queue.DecodeGenerateContent([]byte(`{"source":"priority"}`))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodePublishCheckRequiresContent(t *testing.T) {
	if _, err := queue.DecodePublishCheck([]byte(`{}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	p, err := queue.DecodePublishCheck([]byte(`{"content_id":" c1 "}`))
	if err != nil || p.ContentID != "c1" {
		t.Fatalf("DecodePublishCheck = %#v, %v", p, err)
	}
}

func TestDecodeBatchFallback(t *testing.T) {
	p, err := queue.DecodeBatch([]byte(`{}`), 10)
	if err != nil || p.Limit != 10 {
		t.Fatalf("DecodeBatch fallback = %#v, %v", p, err)
	}
	p, err = queue.DecodeBatch([]byte(`{"limit":3}`), 10)
	if err != nil || p.Limit != 3 {
		t.Fatalf("DecodeBatch explicit = %#v, %v", p, err)
	}
	if _, err := queue.DecodeBatch([]byte(`{"limit":-1}`), 10); err == nil {
		t.Fatal("expected negative limit to fail")
	}
}

func TestRecurrenceNext(t *testing.T) {
	scheduled := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		descriptor string
		completed  time.Time
		want       time.Time
	}{
		{"hourly", scheduled.Add(5 * time.Minute), scheduled.Add(time.Hour)},
		{"daily", scheduled.Add(time.Minute), scheduled.Add(24 * time.Hour)},
		{"weekly", scheduled, scheduled.Add(7 * 24 * time.Hour)},
		{"every:30m", scheduled.Add(70 * time.Minute), scheduled.Add(90 * time.Minute)},
		{"0 17 * * *", scheduled.Add(time.Minute), time.Date(2024, 5, 6, 17, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		r, err := queue.ParseRecurrence(tc.descriptor)
		if err != nil {
			t.Fatalf("ParseRecurrence(%q): %v", tc.descriptor, err)
		}
		if got := r.Next(scheduled, tc.completed, time.UTC); !got.Equal(tc.want) {
			t.Fatalf("%s: Next = %v, want %v", tc.descriptor, got, tc.want)
		}
	}
}

func TestRecurrenceRejectsInvalid(t *testing.T) {
	for _, value := range []string{"", "every:10s", "every:soon", "61 * * * *"} {
		if _, err := queue.ParseRecurrence(value); err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
}

func TestParseStatusAndType(t *testing.T) {
	if s, ok := queue.ParseStatus(" Running "); !ok || s != queue.StatusRunning {
		t.Fatalf("ParseStatus = %v, %v", s, ok)
	}
	if _, ok := queue.ParseStatus("review"); ok {
		t.Fatal("review is not a task status")
	}
	if tt, ok := queue.ParseTaskType("generate-content"); !ok || tt != queue.TypeGenerateContent {
		t.Fatalf("ParseTaskType = %v, %v", tt, ok)
	}
	if !queue.StatusCancelled.IsTerminal() || queue.StatusPending.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}
