package loader

import (
	"testing"
	"time"
)

func newTestEnvLoader(env ...string) *EnvLoader {
	l := NewEnvLoader(DefaultEnvPrefix)
	l.environ = func() []string { return env }
	return l
}

func TestEnvLoader_Load(t *testing.T) {
	l := newTestEnvLoader(
		"PICOROPE_LOG_LEVEL=debug",
		"PICOROPE_STRESS_APPENDS=2000",
		"PICOROPE_STRESS_ROUNDS=1",
		"PICOROPE_RENDER_OPERATION_LIMIT=0",
		"PICOROPE_RENDER_TIMEOUT=250ms",
		"PICOROPE_POOL_RECYCLING=off",
		"PICOROPE_METRICS_ADDR=:9090",
		"HOME=/root",
	)

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		path string
		want any
	}{
		{"logging.level", "debug"},
		{"stress.appends", int64(2000)},
		{"stress.rounds", int64(1)},
		{"render.operationLimit", int64(0)},
		{"render.timeout", 250 * time.Millisecond},
		{"pool.recycling", false},
		{"stress.metricsAddr", ":9090"},
	}
	for _, tt := range tests {
		got, ok := getByPath(config, tt.path)
		if !ok || got != tt.want {
			t.Errorf("%s = %v (%T), want %v (%T)", tt.path, got, got, tt.want, tt.want)
		}
	}
	if _, ok := config["home"]; ok {
		t.Error("unprefixed variable leaked into config")
	}
}

func TestEnvLoader_MappingWins(t *testing.T) {
	for _, env := range [][]string{
		{"PICOROPE_LOG_LEVEL=warn", "PICOROPE_LOGGING_LEVEL=error"},
		{"PICOROPE_LOGGING_LEVEL=error", "PICOROPE_LOG_LEVEL=warn"},
	} {
		config, err := newTestEnvLoader(env...).Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if v, _ := getByPath(config, "logging.level"); v != "warn" {
			t.Errorf("%v: logging.level = %v, want warn", env, v)
		}
	}
}

func TestEnvLoader_AddMapping(t *testing.T) {
	l := newTestEnvLoader("PICOROPE_OUT=/tmp/x")
	l.AddMapping("PICOROPE_OUT", "render.output")

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v, _ := getByPath(config, "render.output"); v != "/tmp/x" {
		t.Errorf("render.output = %v", v)
	}
}

func TestEnvToPath(t *testing.T) {
	l := NewEnvLoader(DefaultEnvPrefix)
	tests := []struct {
		env  string
		want string
	}{
		{"PICOROPE_STRESS_SHAPE", "stress.shape"},
		{"PICOROPE_RENDER_WATCH_DEBOUNCE", "render.watchDebounce"},
		{"PICOROPE_POOL", "pool"},
		{"PICOROPE_", ""},
	}
	for _, tt := range tests {
		if got := l.envToPath(tt.env); got != tt.want {
			t.Errorf("envToPath(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"true", true},
		{"NO", false},
		{"0", int64(0)},
		{"42", int64(42)},
		{"1.5", 1.5},
		{"2s", 2 * time.Second},
		{"text", "text"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); got != tt.want {
			t.Errorf("parseValue(%q) = %v (%T), want %v", tt.in, got, got, tt.want)
		}
	}
}
