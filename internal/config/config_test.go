package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if len(cfg.Synths) != 3 {
		t.Fatalf("expected 3 synths, got %d", len(cfg.Synths))
	}
	if !cfg.Synths[2].MuteOnRest || !cfg.Synths[2].FadeOnFinish {
		t.Fatalf("expected drone quirks on synth 2, got %+v", cfg.Synths[2])
	}
	if cfg.Clock.Line != 23 || cfg.Clock.PeriodMS != 50 {
		t.Fatalf("unexpected clock defaults: %+v", cfg.Clock)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOOKER_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("LOOKER_BUS_USERNAME", "alice")
	t.Setenv("LOOKER_BUS_PASSWORD", "secret")
	t.Setenv("LOOKER_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("LOOKER_EVENT_STORE_PATH", "./tmp.db")
	t.Setenv("LOOKER_EVENT_STORE_RETENTION_MODE", "persistent")
	t.Setenv("LOOKER_EVENT_STORE_RETENTION_DAYS", "7")
	t.Setenv("LOOKER_SONGS_DIRECTORY", "/srv/songs")
	t.Setenv("LOOKER_SPEECH_MODE", "mock")
	t.Setenv("LOOKER_SPEECH_VOICE", "en+f3")
	t.Setenv("LOOKER_CLOCK_MODE", "timer")
	t.Setenv("LOOKER_CLOCK_PERIOD_MS", "10")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.EventStore.Path != "./tmp.db" {
		t.Fatalf("expected event store path override")
	}
	if cfg.EventStore.RetentionMode != "persistent" {
		t.Fatalf("expected event store retention mode override")
	}
	if cfg.EventStore.RetentionDays != 7 {
		t.Fatalf("expected event store retention days override")
	}
	if cfg.Songs.Directory != "/srv/songs" {
		t.Fatalf("expected songs directory override")
	}
	if cfg.Speech.Mode != "mock" || cfg.Speech.Voice != "en+f3" {
		t.Fatalf("expected speech override, got %+v", cfg.Speech)
	}
	if cfg.Clock.Mode != "timer" || cfg.Clock.PeriodMS != 10 {
		t.Fatalf("expected clock override, got %+v", cfg.Clock)
	}
}

func TestLoadFileAndValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "looker.yaml")
	body := `
speech:
  mode: mock
synths:
  - name: thick
    port: /dev/ttyUSB0
    baud: 115200
    warmup_note: C3
    warmup_volume: 20
  - name: hocus
    port: /dev/ttyUSB1
    baud: 115200
    warmup_note: G3
    warmup_volume: 5
  - name: dronetic
    port: /dev/ttyUSB2
    baud: 115200
    warmup_note: G2
    warmup_volume: 10
    mute_on_rest: true
    fade_on_finish: true
choose:
  table:
    - name: Mitch
      song: random
    - name: Frank
      song: "0"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Speech.Mode != "mock" {
		t.Fatalf("expected speech mode from file, got %q", cfg.Speech.Mode)
	}
	if len(cfg.Choose.Table) != 2 || cfg.Choose.Table[0].Song != "random" {
		t.Fatalf("unexpected choose table: %+v", cfg.Choose.Table)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad speech mode", func(c *Config) { c.Speech.Mode = "loud" }},
		{"exec without command", func(c *Config) { c.Speech.Mode = "exec"; c.Speech.Command = "" }},
		{"bad clock mode", func(c *Config) { c.Clock.Mode = "cron" }},
		{"zero period", func(c *Config) { c.Clock.PeriodMS = 0 }},
		{"wrong synth count", func(c *Config) { c.Synths = c.Synths[:2] }},
		{"empty warmup note", func(c *Config) { c.Synths[0].WarmupNote = "" }},
		{"empty choose name", func(c *Config) { c.Choose.Table = []ChooseEntry{{Song: "1"}} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
