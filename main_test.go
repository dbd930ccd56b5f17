package main

import (
	"bytes"
	"errors"
	"flag"
	"strings"
	"testing"
)

type mockApp struct {
	opts   AppOptions
	called map[string]bool
	err    error
}

func newMockApp() *mockApp {
	return &mockApp{
		called: make(map[string]bool),
	}
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }
func (m *mockApp) RunGenerate() error           { m.called["RunGenerate"] = true; return m.err }
func (m *mockApp) RunSummary() error            { m.called["RunSummary"] = true; return m.err }
func (m *mockApp) RunService() error            { m.called["RunService"] = true; return m.err }

func TestRun_Flags(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedCalled string
		verifyOpts     func(*testing.T, AppOptions)
	}{
		{
			name:           "Generate",
			args:           []string{"--config", "atlas.yaml", "--world", "countries.geojson", "--out", "atlas.topo.json"},
			expectedCalled: "RunGenerate",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.ConfigFile != "atlas.yaml" {
					t.Errorf("expected ConfigFile atlas.yaml, got %s", opts.ConfigFile)
				}
				if opts.World != "countries.geojson" {
					t.Errorf("expected World countries.geojson, got %s", opts.World)
				}
				if opts.OutPath != "atlas.topo.json" {
					t.Errorf("expected OutPath atlas.topo.json, got %s", opts.OutPath)
				}
				if opts.Verify {
					t.Error("expected Verify false")
				}
			},
		},
		{
			name:           "Verify",
			args:           []string{"--verify"},
			expectedCalled: "RunGenerate",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.Verify {
					t.Error("expected Verify true")
				}
				if opts.ConfigFile != "zones.yaml" {
					t.Errorf("expected default ConfigFile zones.yaml, got %s", opts.ConfigFile)
				}
			},
		},
		{
			name:           "Summary",
			args:           []string{"--summary", "--world", "https://example.com/world.geojson"},
			expectedCalled: "RunSummary",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.Summary {
					t.Error("expected Summary true")
				}
				if opts.World != "https://example.com/world.geojson" {
					t.Errorf("expected World URL, got %s", opts.World)
				}
			},
		},
		{
			name:           "MqttMode",
			args:           []string{"--mqtt"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.MqttMode {
					t.Error("expected MqttMode true")
				}
				if opts.HttpPort != 8080 {
					t.Errorf("expected default HttpPort 8080, got %d", opts.HttpPort)
				}
			},
		},
		{
			name:           "HttpMode",
			args:           []string{"--http", "--http-port", "9090"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.HttpMode {
					t.Error("expected HttpMode true")
				}
				if opts.HttpPort != 9090 {
					t.Errorf("expected HttpPort 9090, got %d", opts.HttpPort)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			err := run(tt.args, &out, app)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if !app.called[tt.expectedCalled] {
				t.Errorf("expected %s to be called", tt.expectedCalled)
			}
			if len(app.called) != 1 {
				t.Errorf("expected exactly one mode, got %v", app.called)
			}

			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("expected flag.ErrHelp from --help, got %v", err)
	}
	if !strings.Contains(out.String(), "Usage of zonemesh") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
	if len(app.called) != 0 {
		t.Errorf("no mode should run on --help, got %v", app.called)
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	if err := run([]string{"--render"}, &out, app); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestRun_Default(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{}, &out, app)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expectedPrefix := "zonemesh version: " + Version
	if !strings.Contains(out.String(), expectedPrefix) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}
	if strings.Contains(out.String(), "service starting") {
		t.Errorf("generate mode should not announce the service, got: %s", out.String())
	}
	if !app.called["RunGenerate"] {
		t.Error("expected RunGenerate by default")
	}
}

func TestRun_ServiceBanner(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	if err := run([]string{"--http"}, &out, app); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), "zonemesh service starting...") {
		t.Errorf("expected output to contain service starting message, got: %s", out.String())
	}
}

func TestRun_PropagatesModeError(t *testing.T) {
	app := newMockApp()
	app.err = errors.New("verify world.topo.json: topology changed")

	var out bytes.Buffer
	err := run([]string{"--verify"}, &out, app)
	if err == nil || err.Error() != app.err.Error() {
		t.Errorf("expected mode error, got %v", err)
	}
}

func TestMain_Execute(t *testing.T) {
	// Smoke test to ensure version is set
	if Version == "" {
		t.Error("expected Version to be set")
	}
}
