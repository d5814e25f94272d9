package main

import (
	"strings"
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{int64(3.5 * 1024 * 1024 * 1024), "3.5 GiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatSavings(t *testing.T) {
	if got := formatSavings(1000, 250); got != "250 B (25%)" {
		t.Errorf("formatSavings = %q", got)
	}
	if got := formatSavings(0, 10); got != "-" {
		t.Errorf("formatSavings zero original = %q", got)
	}
	if got := formatSavings(100, 0); got != "-" {
		t.Errorf("formatSavings zero saved = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(1234 * time.Microsecond); got != "1ms" {
		t.Errorf("sub-second = %q", got)
	}
	if got := formatDuration(2500 * time.Millisecond); got != "2.5s" {
		t.Errorf("seconds = %q", got)
	}
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Output", statusOK, "/tmp/a.zip", false)
	requireContains(t, line, "Output:")
	requireContains(t, line, "[OK] /tmp/a.zip")

	colored := renderStatusLine("Output", statusError, "boom", true)
	requireContains(t, colored, ansiRed)
}

func TestRenderTable(t *testing.T) {
	styled := renderTable(
		[]string{"File", "Saved"},
		[][]string{{"a.png", "1.0 KiB"}},
		[]columnAlignment{alignLeft, alignRight},
		true,
	)
	requireContains(t, styled, "a.png")
	requireContains(t, styled, "1.0 KiB")
	requireContains(t, styled, "╭")

	plain := renderTable(
		[]string{"File", "Saved"},
		[][]string{{"a.png", "1.0 KiB"}},
		[]columnAlignment{alignLeft, alignRight},
		false,
	)
	requireContains(t, plain, "a.png")
	if strings.Contains(plain, "╭") {
		t.Errorf("plain table uses box drawing: %q", plain)
	}

	if renderTable(nil, nil, nil, true) != "" {
		t.Error("empty headers should render nothing")
	}
}
