package taskcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `name: product-reviews
dataset: data/reviews.jsonl
schemes:
  - name: sentiment
    type: radio
    description: Overall sentiment of the review
    labels: [positive, neutral, negative]
    required: true
  - name: aspects
    type: multiselect
    labels: [price, quality, shipping]
  - name: confidence
    type: likert
    min_value: 1
    max_value: 5
training:
  enabled: true
  pass_threshold: 75
  questions:
    - text: "The battery died after two days."
      schema_name: sentiment
      options: [positive, neutral, negative]
      gold_label: negative
      explanation: The review reports a product failure.
suspicion:
  fast_threshold_ms: 400
  burst_threshold_seconds: 1.5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Equal(t, "product-reviews", cfg.Name)
	require.Len(t, cfg.Schemes, 3)
	require.Equal(t, 400, cfg.Suspicion.FastThresholdMS)
	require.InDelta(t, 1.5, cfg.Suspicion.BurstThresholdSeconds, 1e-9)
	require.InDelta(t, 75.0, cfg.Training.PassThreshold, 1e-9)
	require.Len(t, cfg.Training.Questions, 1)

	sentiment, ok := cfg.Scheme("sentiment")
	require.True(t, ok)
	require.Equal(t, SchemeRadio, sentiment.Type)
	require.True(t, sentiment.Required)

	_, ok = cfg.Scheme("missing")
	require.False(t, ok)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "name: minimal\nschemes:\n  - name: rating\n    type: likert\n    min_value: 1\n    max_value: 7\n"))
	require.NoError(t, err)

	require.Equal(t, 500, cfg.Suspicion.FastThresholdMS)
	require.InDelta(t, 2.0, cfg.Suspicion.BurstThresholdSeconds, 1e-9)
	require.True(t, cfg.Phases.Consent)
}

func TestLoadRejectsUnknownSchemeType(t *testing.T) {
	_, err := Load(writeConfig(t, "name: bad\nschemes:\n  - name: broken\n    type: freeform\n"))
	require.Error(t, err)
}

func TestLoadRejectsRadioWithoutLabels(t *testing.T) {
	_, err := Load(writeConfig(t, "name: bad\nschemes:\n  - name: sentiment\n    type: radio\n"))
	require.Error(t, err)
}

func TestLoadRejectsMissingName(t *testing.T) {
	_, err := Load(writeConfig(t, "schemes:\n  - name: sentiment\n    type: text\n"))
	require.Error(t, err)
}

func TestValidateSchemeLikertBounds(t *testing.T) {
	err := ValidateScheme(SchemeConfig{Name: "rating", Type: SchemeLikert, MinValue: 5, MaxValue: 5})
	require.Error(t, err)
}
