package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvFileFillsFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	env := "POWERWEATHER_DB=/srv/weather.db\nASSIST_TIMEOUT=3s\nASSIST_MODEL=gemini-2.0-flash\n"
	if err := os.WriteFile(path, []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}

	var cli CLI
	parser, err := newParser(&cli, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"cleanup", "--assist-model", "gpt-4o"}); err != nil {
		t.Fatal(err)
	}
	if cli.DB != "/srv/weather.db" {
		t.Errorf("DB = %q", cli.DB)
	}
	if cli.AssistTimeout != 3*time.Second {
		t.Errorf("AssistTimeout = %v", cli.AssistTimeout)
	}
	if cli.AssistModel != "gpt-4o" {
		t.Errorf("AssistModel = %q, want the command line value", cli.AssistModel)
	}
}

func TestMissingEnvFileUsesDefaults(t *testing.T) {
	var cli CLI
	parser, err := newParser(&cli, filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse([]string{"cleanup"}); err != nil {
		t.Fatal(err)
	}
	if cli.DB != "data/powerweather.db" || cli.Cleanup.Keep != 50 {
		t.Errorf("DB = %q, Keep = %d", cli.DB, cli.Cleanup.Keep)
	}
}

func TestParseLocations(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		wantErr bool
	}{
		{"-36.79,146.98,Wandiligong", "Wandiligong", false},
		{" 28.6 , 77.2 ", "", false},
		{"28.6", "", true},
		{"north,77.2", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			locs, err := parseLocations([]string{tt.in})
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", locs)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(locs) != 1 || locs[0].Name != tt.name {
				t.Errorf("locs = %+v", locs)
			}
		})
	}
}
