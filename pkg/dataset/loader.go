package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
)

// Item is one raw dataset entry. Text may contain HTML markup; the loader
// sanitizes it before the item reaches the database.
type Item struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Context   string `json:"context"`
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
}

// Loader reads annotation items from JSONL or JSON dataset files.
type Loader struct {
	policy *bluemonday.Policy
	logger zerolog.Logger
}

// NewLoader constructs a dataset loader with the standard UGC sanitizer.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		policy: bluemonday.UGCPolicy(),
		logger: logger.With().Str("component", "dataset_loader").Logger(),
	}
}

// LoadFile reads every item from the given file. JSON arrays and
// line-delimited JSON are both accepted; anything else is rejected based
// on content sniffing, not the file extension.
func (l *Loader) LoadFile(path string) ([]Item, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	mime := mimetype.Detect(payload)
	switch {
	case mime.Is("application/json"),
		mime.Is("application/x-ndjson"),
		mime.Is("text/plain"),
		mime.Is("text/html"):
		// JSONL files with HTML-bearing text fields sniff as text/html.
	default:
		return nil, fmt.Errorf("unsupported dataset type %s", mime.String())
	}

	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return l.loadArray(payload)
	}
	return l.loadLines(payload)
}

func (l *Loader) loadArray(payload []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("failed to parse dataset array: %w", err)
	}

	return l.sanitizeAll(items)
}

func (l *Loader) loadLines(payload []byte) ([]Item, error) {
	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	items := make([]Item, 0)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var item Item
		if err := json.Unmarshal([]byte(text), &item); err != nil {
			return nil, fmt.Errorf("invalid dataset entry on line %d: %w", line, err)
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan dataset file: %w", err)
	}

	return l.sanitizeAll(items)
}

func (l *Loader) sanitizeAll(items []Item) ([]Item, error) {
	seen := make(map[string]bool, len(items))
	result := make([]Item, 0, len(items))

	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("dataset entry %d has no id", i+1)
		}
		if seen[item.ID] {
			l.logger.Warn().Str("instance_id", item.ID).Msg("duplicate dataset entry skipped")
			continue
		}
		seen[item.ID] = true

		item.Text = l.policy.Sanitize(item.Text)
		item.Context = l.policy.Sanitize(item.Context)
		result = append(result, item)
	}

	l.logger.Info().Int("items", len(result)).Msg("dataset loaded")
	return result, nil
}
