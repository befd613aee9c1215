package main

import (
	"bytes"
	"log/slog"
	"reflect"
	"testing"

	"github.com/custodia-labs/sercha-corpus/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitOrigins(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "https://app.example.com", []string{"https://app.example.com"}},
		{"trims and skips blanks", " https://a.example.com, ,https://b.example.com ", []string{"https://a.example.com", "https://b.example.com"}},
		{"wildcard", "*", []string{"*"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitOrigins(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitOrigins(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if out.String() != version+"\n" {
		t.Errorf("expected %q, got %q", version+"\n", out.String())
	}
}

func TestServeRejectsUnknownMode(t *testing.T) {
	rootCmd.SetArgs([]string{"serve", "batch"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestTriggerRejectsUnknownTask(t *testing.T) {
	rootCmd.SetArgs([]string{"trigger", "sync-all"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error for an unknown task")
	}
	if got := scheduleIDs(); !reflect.DeepEqual(got, []string{"recover-stalled", "purge-tasks"}) {
		t.Errorf("unexpected schedule ids %v", got)
	}
}

func TestCheckSplitMode(t *testing.T) {
	shared := config.Default()
	shared.Index.Backend = "pgvector"
	shared.Events.Backend = "redis"

	local := config.Default()
	local.Index.Backend = "memory"

	tests := []struct {
		name    string
		mode    string
		cfg     *config.Config
		wantErr bool
	}{
		{"all with memory backends", modeAll, local, false},
		{"api with memory backends", modeAPI, local, true},
		{"worker with memory index", modeWorker, local, true},
		{"api with shared backends", modeAPI, shared, false},
		{"worker with shared backends", modeWorker, shared, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkSplitMode(tt.mode, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkSplitMode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
