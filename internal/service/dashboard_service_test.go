package service

import (
	"errors"
	"testing"
	"time"
)

func TestResolveDashboardWindowPresets(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 30, 0, 0, time.Local)

	window, err := resolveDashboardWindow(DashboardQueryInput{Range: "today"}, now)
	if err != nil {
		t.Fatalf("resolve today failed: %v", err)
	}
	if window.startAt.Hour() != 0 || window.startAt.Day() != 28 {
		t.Fatalf("unexpected today start: %v", window.startAt)
	}
	if !window.endAt.Equal(window.startAt.AddDate(0, 0, 1)) {
		t.Fatalf("unexpected today end: %v", window.endAt)
	}

	window, err = resolveDashboardWindow(DashboardQueryInput{}, now)
	if err != nil {
		t.Fatalf("resolve default failed: %v", err)
	}
	if window.rangeKey != "7d" {
		t.Fatalf("expected default 7d, got %s", window.rangeKey)
	}
	if window.endAt.Sub(window.startAt) != 7*24*time.Hour {
		t.Fatalf("unexpected 7d span: %v", window.endAt.Sub(window.startAt))
	}

	window, err = resolveDashboardWindow(DashboardQueryInput{Range: "30d"}, now)
	if err != nil {
		t.Fatalf("resolve 30d failed: %v", err)
	}
	if window.endAt.Sub(window.startAt) != 30*24*time.Hour {
		t.Fatalf("unexpected 30d span: %v", window.endAt.Sub(window.startAt))
	}
}

func TestResolveDashboardWindowCustomRange(t *testing.T) {
	now := time.Now()
	from := now.AddDate(0, 0, -10)
	to := now

	window, err := resolveDashboardWindow(DashboardQueryInput{Range: "custom", From: &from, To: &to}, now)
	if err != nil {
		t.Fatalf("resolve custom failed: %v", err)
	}
	if !window.endAt.After(window.startAt) {
		t.Fatalf("expected valid window")
	}

	if _, err := resolveDashboardWindow(DashboardQueryInput{Range: "custom", From: &to, To: &from}, now); !errors.Is(err, ErrDashboardRangeInvalid) {
		t.Fatalf("expected ErrDashboardRangeInvalid for inverted range, got %v", err)
	}

	tooFar := now.AddDate(0, 0, -120)
	if _, err := resolveDashboardWindow(DashboardQueryInput{Range: "custom", From: &tooFar, To: &to}, now); !errors.Is(err, ErrDashboardRangeInvalid) {
		t.Fatalf("expected ErrDashboardRangeInvalid for oversized range, got %v", err)
	}

	if _, err := resolveDashboardWindow(DashboardQueryInput{Range: "custom"}, now); !errors.Is(err, ErrDashboardRangeInvalid) {
		t.Fatalf("expected ErrDashboardRangeInvalid for missing bounds, got %v", err)
	}

	if _, err := resolveDashboardWindow(DashboardQueryInput{Range: "yearly"}, now); !errors.Is(err, ErrDashboardRangeInvalid) {
		t.Fatalf("expected ErrDashboardRangeInvalid for unknown range, got %v", err)
	}
}
