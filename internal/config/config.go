package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type HostConfig struct {
	Listen         string        `yaml:"listen"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	JournalPath    string        `yaml:"journal_path"`
	AlertOnHigh    bool          `yaml:"alert_on_high"`
	MaxAudioBytes  int64         `yaml:"max_audio_bytes"`
	// KeywordFallback routes with the keyword classifier when no LLM key
	// is configured. Disabled, the Host answers 503 on /resolve-disruption.
	KeywordFallback bool   `yaml:"keyword_fallback"`
	PIDFile         string `yaml:"pid_file"`
}

// Specialist is one entry of the ordered discovery list. Tools optionally
// restricts which discovered tool names are registered (doublestar globs).
type Specialist struct {
	Name    string   `yaml:"name"`
	Address string   `yaml:"address"`
	Enabled bool     `yaml:"enabled"`
	Tools   []string `yaml:"tools"`
}

type FoodConfig struct {
	Listen           string `yaml:"listen"`
	DataPath         string `yaml:"data_path"`
	CriticalPrepMins int    `yaml:"critical_prep_mins"`
	Alternatives     int    `yaml:"alternatives"`
}

type CabConfig struct {
	Listen       string  `yaml:"listen"`
	BaseFare     float64 `yaml:"base_fare"`
	PerKilometer float64 `yaml:"per_km"`
	PerMinute    float64 `yaml:"per_minute"`
}

type SafetyConfig struct {
	Listen    string   `yaml:"listen"`
	RiskWords []string `yaml:"risk_words"`
}

type AgentsConfig struct {
	Food   FoodConfig   `yaml:"food"`
	Cab    CabConfig    `yaml:"cab"`
	Safety SafetyConfig `yaml:"safety"`
}

// Credentials come from the environment only.
type Credentials struct {
	GeminiAPIKey     string
	OpenAIAPIKey     string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	NotifyToNumber   string
	MapsAPIKey       string
}

type Config struct {
	Log         LogConfig    `yaml:"log"`
	LLM         LLMConfig    `yaml:"llm"`
	Host        HostConfig   `yaml:"host"`
	Specialists []Specialist `yaml:"specialists"`
	Agents      AgentsConfig `yaml:"agents"`

	Credentials Credentials `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			Temperature: 0,
			Timeout:     45 * time.Second,
		},
		Host: HostConfig{
			Listen:          "localhost:8000",
			RequestTimeout:  90 * time.Second,
			JournalPath:     "logia.db",
			AlertOnHigh:     true,
			MaxAudioBytes:   20 << 20,
			KeywordFallback: true,
		},
		Agents: AgentsConfig{
			Food: FoodConfig{
				Listen:           "127.0.0.1:8002",
				DataPath:         "system_data.json",
				CriticalPrepMins: 40,
				Alternatives:     2,
			},
			Cab: CabConfig{
				Listen:       "127.0.0.1:8003",
				BaseFare:     2.50,
				PerKilometer: 2.0,
				PerMinute:    0.5,
			},
			Safety: SafetyConfig{
				Listen: "127.0.0.1:8001",
			},
		},
	}
}

func DefaultSpecialists() []Specialist {
	return []Specialist{
		{Name: "SafetyServer", Address: "http://localhost:8001", Enabled: true},
		{Name: "FoodDelayServer", Address: "http://localhost:8002", Enabled: true},
		{Name: "CabReroutingServer", Address: "http://localhost:8003", Enabled: true},
	}
}

func DefaultRiskWords() []string {
	return []string{"help", "danger", "stop"}
}

func (c *Config) applyDefaults() {
	if len(c.Specialists) == 0 {
		c.Specialists = DefaultSpecialists()
	}
	if len(c.Agents.Safety.RiskWords) == 0 {
		c.Agents.Safety.RiskWords = DefaultRiskWords()
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.Host.Listen == "" {
		errs = append(errs, errors.New("host.listen is required"))
	}
	if c.Host.RequestTimeout <= 0 {
		errs = append(errs, errors.New("host.request_timeout must be positive"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported (gemini, openai)", c.LLM.Provider))
	}

	seen := make(map[string]bool)
	for i, s := range c.Specialists {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("specialists[%d]: name is required", i))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("specialists[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true

		if s.Enabled && s.Address == "" {
			errs = append(errs, fmt.Errorf("specialist %q: address is required when enabled", s.Name))
		}
		for _, pattern := range s.Tools {
			if !doublestar.ValidatePattern(pattern) {
				errs = append(errs, fmt.Errorf("specialist %q: invalid tool pattern %q", s.Name, pattern))
			}
		}
	}

	if c.Agents.Food.CriticalPrepMins <= 0 {
		errs = append(errs, errors.New("agents.food.critical_prep_mins must be positive"))
	}

	return errors.Join(errs...)
}

// EnabledSpecialists returns the enabled entries in configured order.
func (c *Config) EnabledSpecialists() []Specialist {
	out := make([]Specialist, 0, len(c.Specialists))
	for _, s := range c.Specialists {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
