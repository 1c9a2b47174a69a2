package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// AudioConfig fixes the canonical PCM format every adapter operates on
// and how inbound container chunks are decoded into it.
type AudioConfig struct {
	SampleRate    int    `yaml:"sample_rate"`
	Channels      int    `yaml:"channels"`
	BitDepth      int    `yaml:"bit_depth"`
	DefaultFormat string `yaml:"default_format"`
	FFmpegCommand string `yaml:"ffmpeg_command"`
}

type STTConfig struct {
	Mode      string `yaml:"mode"`
	Command   string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
}

type TTSConfig struct {
	Mode       string `yaml:"mode"`
	Command    string `yaml:"command"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type VoiceModelConfig struct {
	ID         string `yaml:"id"`
	ModelPath  string `yaml:"model_path"`
	ConfigPath string `yaml:"config_path"`
}

type VoicesConfig struct {
	Default string             `yaml:"default"`
	Models  []VoiceModelConfig `yaml:"models"`
}

type DebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type PipelineConfig struct {
	RequestTimeoutMS int `yaml:"request_timeout_ms"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Audio       AudioConfig      `yaml:"audio"`
	STT         STTConfig        `yaml:"stt"`
	TTS         TTSConfig        `yaml:"tts"`
	Voices      VoicesConfig     `yaml:"voices"`
	Debug       DebugConfig      `yaml:"debug"`
	Pipeline    PipelineConfig   `yaml:"pipeline"`
	Bus         BusConfig        `yaml:"bus"`
	EventStore  EventStoreConfig `yaml:"event_store"`
}

func Default() Config {
	return Config{
		RuntimeName: "vocalweaver",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Audio: AudioConfig{
			SampleRate:    16000,
			Channels:      1,
			BitDepth:      16,
			DefaultFormat: "webm",
		},
		STT: STTConfig{
			Mode: "mock",
		},
		TTS: TTSConfig{
			Mode:       "mock",
			SampleRate: 22050,
			Channels:   1,
		},
		Voices: VoicesConfig{
			Default: "",
		},
		Debug: DebugConfig{
			Enabled: false,
			Dir:     "./debug_audio",
		},
		Pipeline: PipelineConfig{
			RequestTimeoutMS: 45000,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		EventStore: EventStoreConfig{
			Path:          "./data/vocalweaver-events.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
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
	overrideString(&cfg.RuntimeName, "VW_RUNTIME_NAME")
	overrideString(&cfg.Environment, "VW_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VW_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VW_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VW_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VW_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VW_TELEMETRY_OTLP_INSECURE")
	overrideInt(&cfg.Audio.SampleRate, "VW_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "VW_AUDIO_CHANNELS")
	overrideInt(&cfg.Audio.BitDepth, "VW_AUDIO_BIT_DEPTH")
	overrideString(&cfg.Audio.DefaultFormat, "VW_AUDIO_DEFAULT_FORMAT")
	overrideString(&cfg.Audio.FFmpegCommand, "VW_AUDIO_FFMPEG_COMMAND")
	overrideString(&cfg.STT.Mode, "VW_STT_MODE")
	overrideString(&cfg.STT.Command, "VW_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "VW_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "VW_STT_LANGUAGE")
	overrideString(&cfg.TTS.Mode, "VW_TTS_MODE")
	overrideString(&cfg.TTS.Command, "VW_TTS_COMMAND")
	overrideInt(&cfg.TTS.SampleRate, "VW_TTS_SAMPLE_RATE")
	overrideInt(&cfg.TTS.Channels, "VW_TTS_CHANNELS")
	overrideString(&cfg.Voices.Default, "VW_VOICES_DEFAULT")
	overrideBool(&cfg.Debug.Enabled, "VW_DEBUG_ENABLED")
	overrideString(&cfg.Debug.Dir, "VW_DEBUG_DIR")
	overrideInt(&cfg.Pipeline.RequestTimeoutMS, "VW_PIPELINE_REQUEST_TIMEOUT_MS")
	overrideBool(&cfg.Bus.Enabled, "VW_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "VW_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VW_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "VW_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VW_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VW_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VW_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VW_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VW_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.EventStore.Path, "VW_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "VW_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "VW_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxSessions, "VW_EVENT_STORE_MAX_SESSIONS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "VW_EVENT_STORE_VACUUM_ON_START")
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
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	if cfg.Audio.BitDepth != 16 {
		return errors.New("audio.bit_depth must be 16")
	}
	if cfg.Audio.DefaultFormat == "" {
		return errors.New("audio.default_format must not be empty")
	}
	switch cfg.STT.Mode {
	case "mock", "exec":
	default:
		return errors.New("stt.mode must be one of mock|exec")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	switch cfg.TTS.Mode {
	case "mock", "exec":
	default:
		return errors.New("tts.mode must be one of mock|exec")
	}
	if cfg.TTS.Mode == "exec" && cfg.TTS.Command == "" {
		return errors.New("tts.command must be set when mode=exec")
	}
	if cfg.TTS.SampleRate <= 0 {
		return errors.New("tts.sample_rate must be positive")
	}
	if cfg.TTS.Channels <= 0 {
		return errors.New("tts.channels must be positive")
	}
	seen := make(map[string]bool, len(cfg.Voices.Models))
	for _, vm := range cfg.Voices.Models {
		if vm.ID == "" {
			return errors.New("voices.models entries must have an id")
		}
		if seen[vm.ID] {
			return fmt.Errorf("voices.models contains duplicate id %q", vm.ID)
		}
		seen[vm.ID] = true
	}
	if cfg.Voices.Default != "" && len(cfg.Voices.Models) > 0 && !seen[cfg.Voices.Default] {
		return fmt.Errorf("voices.default %q is not among voices.models", cfg.Voices.Default)
	}
	if cfg.Debug.Enabled && cfg.Debug.Dir == "" {
		return errors.New("debug.dir must not be empty when debug is enabled")
	}
	if cfg.Pipeline.RequestTimeoutMS < 0 {
		return errors.New("pipeline.request_timeout_ms must be >= 0")
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
	return nil
}
