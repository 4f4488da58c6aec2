package taskcfg

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/labelgrid/labelgrid-api/internal/history"
)

// Scheme types supported by the platform.
const (
	SchemeRadio       = "radio"
	SchemeMultiselect = "multiselect"
	SchemeLikert      = "likert"
	SchemeText        = "text"
	SchemeSpan        = "span"
	SchemePairwise    = "pairwise"
	SchemeSegment     = "segment"
)

// SchemeConfig describes one pluggable annotation scheme.
type SchemeConfig struct {
	Name        string   `mapstructure:"name" json:"name"`
	Type        string   `mapstructure:"type" json:"type"`
	Description string   `mapstructure:"description" json:"description,omitempty"`
	Labels      []string `mapstructure:"labels" json:"labels,omitempty"`
	Required    bool     `mapstructure:"required" json:"required,omitempty"`
	MinValue    int      `mapstructure:"min_value" json:"min_value,omitempty"`
	MaxValue    int      `mapstructure:"max_value" json:"max_value,omitempty"`
}

// TrainingQuestion is one gold-labelled question used in the training phase.
type TrainingQuestion struct {
	Text        string   `mapstructure:"text" json:"text"`
	SchemaName  string   `mapstructure:"schema_name" json:"schema_name"`
	Options     []string `mapstructure:"options" json:"options"`
	GoldLabel   string   `mapstructure:"gold_label" json:"gold_label"`
	Explanation string   `mapstructure:"explanation" json:"explanation,omitempty"`
}

// TrainingConfig configures the training phase.
type TrainingConfig struct {
	Enabled       bool               `mapstructure:"enabled"`
	Questions     []TrainingQuestion `mapstructure:"questions"`
	PassThreshold float64            `mapstructure:"pass_threshold"`
}

// PhasesConfig toggles optional workflow phases.
type PhasesConfig struct {
	Consent      bool `mapstructure:"consent"`
	Instructions bool `mapstructure:"instructions"`
	PostStudy    bool `mapstructure:"post_study"`
}

// SuspicionConfig holds the heuristics thresholds for quality analysis.
type SuspicionConfig struct {
	FastThresholdMS       int     `mapstructure:"fast_threshold_ms"`
	BurstThresholdSeconds float64 `mapstructure:"burst_threshold_seconds"`
}

// TaskConfig is the full YAML task definition.
type TaskConfig struct {
	Name      string          `mapstructure:"name"`
	Dataset   string          `mapstructure:"dataset"`
	Schemes   []SchemeConfig  `mapstructure:"schemes"`
	Phases    PhasesConfig    `mapstructure:"phases"`
	Training  TrainingConfig  `mapstructure:"training"`
	Suspicion SuspicionConfig `mapstructure:"suspicion"`
}

// Scheme looks up a scheme definition by name.
func (c TaskConfig) Scheme(name string) (SchemeConfig, bool) {
	for _, scheme := range c.Schemes {
		if scheme.Name == name {
			return scheme, true
		}
	}
	return SchemeConfig{}, false
}

// Load reads and validates a YAML task configuration file.
func Load(path string) (TaskConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("training.pass_threshold", 80.0)
	v.SetDefault("suspicion.fast_threshold_ms", history.DefaultFastThresholdMS)
	v.SetDefault("suspicion.burst_threshold_seconds", history.DefaultBurstThresholdSeconds)
	v.SetDefault("phases.consent", true)
	v.SetDefault("phases.instructions", true)
	v.SetDefault("phases.post_study", true)

	if err := v.ReadInConfig(); err != nil {
		return TaskConfig{}, fmt.Errorf("failed to read task config: %w", err)
	}

	var cfg TaskConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return TaskConfig{}, fmt.Errorf("failed to parse task config: %w", err)
	}

	if strings.TrimSpace(cfg.Name) == "" {
		return TaskConfig{}, fmt.Errorf("task name must be provided")
	}

	if len(cfg.Schemes) == 0 {
		return TaskConfig{}, fmt.Errorf("at least one annotation scheme must be configured")
	}

	for _, scheme := range cfg.Schemes {
		if err := ValidateScheme(scheme); err != nil {
			return TaskConfig{}, fmt.Errorf("invalid scheme %q: %w", scheme.Name, err)
		}
	}

	if cfg.Training.Enabled && len(cfg.Training.Questions) == 0 {
		return TaskConfig{}, fmt.Errorf("training is enabled but no questions are configured")
	}

	return cfg, nil
}
