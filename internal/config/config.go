package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	EventStore  EventStoreConfig `yaml:"event_store"`
	Songs       SongsConfig      `yaml:"songs"`
	Synths      []SynthConfig    `yaml:"synths"`
	Speech      SpeechConfig     `yaml:"speech"`
	Clock       ClockConfig      `yaml:"clock"`
	Choose      ChooseConfig     `yaml:"choose"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type SongsConfig struct {
	// Directory of YAML song sheets. Empty means the compiled-in set.
	Directory string `yaml:"directory"`
}

// SynthConfig describes one synth board and its bring-up quirks.
type SynthConfig struct {
	Name string `yaml:"name"`
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	// The first note a board plays after reset comes out wrong, so
	// bring-up flushes it with a quiet throwaway note.
	WarmupNote   string `yaml:"warmup_note"`
	WarmupVolume uint8  `yaml:"warmup_volume"`
	MuteOnRest   bool   `yaml:"mute_on_rest"`
	FadeOnFinish bool   `yaml:"fade_on_finish"`
}

type SpeechConfig struct {
	Mode    string `yaml:"mode"` // mock, exec
	Command string `yaml:"command"`
	Voice   string `yaml:"voice"`
}

type ClockConfig struct {
	Mode string `yaml:"mode"` // gpio, timer
	Chip string `yaml:"chip"`
	Line int    `yaml:"line"`
	// Timer-mode period. Also documents the nominal period of the
	// external square wave in gpio mode.
	PeriodMS int `yaml:"period_ms"`
}

// ChooseEntry maps a recognized face name to a song. Song is a numeric
// id or "random".
type ChooseEntry struct {
	Name string `yaml:"name"`
	Song string `yaml:"song"`
}

type ChooseConfig struct {
	Subject string        `yaml:"subject"`
	Table   []ChooseEntry `yaml:"table"`
}

func Default() Config {
	return Config{
		RuntimeName: "lounge-looker",
		Environment: "installation",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Enabled:        true,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		EventStore: EventStoreConfig{
			Path:          "./data/looker-events.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		Synths: []SynthConfig{
			{Name: "thick", Port: "/dev/ttyUSB0", Baud: 115200, WarmupNote: "C3", WarmupVolume: 20},
			{Name: "hocus", Port: "/dev/ttyUSB1", Baud: 115200, WarmupNote: "G3", WarmupVolume: 5},
			{Name: "dronetic", Port: "/dev/ttyUSB2", Baud: 115200, WarmupNote: "G2", WarmupVolume: 10,
				MuteOnRest: true, FadeOnFinish: true},
		},
		Speech: SpeechConfig{
			Mode:    "exec",
			Command: "espeak",
		},
		Clock: ClockConfig{
			Mode:     "gpio",
			Chip:     "gpiochip0",
			Line:     23,
			PeriodMS: 50,
		},
		Choose: ChooseConfig{
			Subject: "looker.face.match",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LOOKER_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LOOKER_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "LOOKER_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LOOKER_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "LOOKER_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOOKER_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOOKER_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "LOOKER_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Enabled, "LOOKER_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "LOOKER_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LOOKER_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "LOOKER_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LOOKER_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LOOKER_BUS_PASSWORD")
	overrideInt(&cfg.Bus.ConnectTimeout, "LOOKER_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.EventStore.Path, "LOOKER_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "LOOKER_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "LOOKER_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxSessions, "LOOKER_EVENT_STORE_MAX_SESSIONS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "LOOKER_EVENT_STORE_VACUUM_ON_START")
	overrideString(&cfg.Songs.Directory, "LOOKER_SONGS_DIRECTORY")
	overrideString(&cfg.Speech.Mode, "LOOKER_SPEECH_MODE")
	overrideString(&cfg.Speech.Command, "LOOKER_SPEECH_COMMAND")
	overrideString(&cfg.Speech.Voice, "LOOKER_SPEECH_VOICE")
	overrideString(&cfg.Clock.Mode, "LOOKER_CLOCK_MODE")
	overrideString(&cfg.Clock.Chip, "LOOKER_CLOCK_CHIP")
	overrideInt(&cfg.Clock.Line, "LOOKER_CLOCK_LINE")
	overrideInt(&cfg.Clock.PeriodMS, "LOOKER_CLOCK_PERIOD_MS")
	overrideString(&cfg.Choose.Subject, "LOOKER_CHOOSE_SUBJECT")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if len(cfg.Synths) != 3 {
		return fmt.Errorf("synths must list exactly 3 boards, got %d", len(cfg.Synths))
	}
	for i, s := range cfg.Synths {
		if s.Name == "" {
			return fmt.Errorf("synths[%d].name must not be empty", i)
		}
		if s.Port == "" {
			return fmt.Errorf("synths[%d].port must not be empty", i)
		}
		if s.Baud <= 0 {
			return fmt.Errorf("synths[%d].baud must be positive", i)
		}
		if s.WarmupNote == "" {
			return fmt.Errorf("synths[%d].warmup_note must not be empty", i)
		}
	}
	switch cfg.Speech.Mode {
	case "mock", "exec":
	default:
		return errors.New("speech.mode must be one of mock|exec")
	}
	if cfg.Speech.Mode == "exec" && cfg.Speech.Command == "" {
		return errors.New("speech.command must be set when mode=exec")
	}
	switch cfg.Clock.Mode {
	case "gpio", "timer":
	default:
		return errors.New("clock.mode must be one of gpio|timer")
	}
	if cfg.Clock.Mode == "gpio" && cfg.Clock.Chip == "" {
		return errors.New("clock.chip must be set when mode=gpio")
	}
	if cfg.Clock.PeriodMS <= 0 {
		return errors.New("clock.period_ms must be positive")
	}
	for i, e := range cfg.Choose.Table {
		if e.Name == "" {
			return fmt.Errorf("choose.table[%d].name must not be empty", i)
		}
		if e.Song == "" {
			return fmt.Errorf("choose.table[%d].song must not be empty", i)
		}
	}
	return nil
}
