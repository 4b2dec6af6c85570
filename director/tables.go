package director

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"storyreel/speech"
	"storyreel/types"
)

//go:embed tables.yaml
var tablesYAML []byte

type MoodProfile struct {
	Visual string       `yaml:"visual"`
	Camera string       `yaml:"camera"`
	Voice  speech.Voice `yaml:"voice"`
}

type substitution struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Tables are the immutable mood and safety lookups
type Tables struct {
	DefaultMood  string                 `yaml:"default_mood"`
	DefaultStyle types.StyleContext     `yaml:"default_style"`
	Moods        map[string]MoodProfile `yaml:"moods"`
	Safety       []substitution         `yaml:"safety"`

	safetyPatterns []*regexp.Regexp
}

var (
	tablesOnce sync.Once
	tables     *Tables
	tablesErr  error
)

// LoadTables parses the embedded tables once
func LoadTables() (*Tables, error) {
	tablesOnce.Do(func() {
		tables, tablesErr = ParseTables(tablesYAML)
	})
	return tables, tablesErr
}

// ParseTables parses a tables document
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse tables: %w", err)
	}
	if _, ok := t.Moods[t.DefaultMood]; !ok {
		return nil, fmt.Errorf("default mood %q has no profile", t.DefaultMood)
	}

	// longest phrases first so "dead body" wins over shorter matches
	sort.SliceStable(t.Safety, func(i, j int) bool { return len(t.Safety[i].From) > len(t.Safety[j].From) })
	for _, s := range t.Safety {
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(s.From) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("safety pattern %q: %w", s.From, err)
		}
		t.safetyPatterns = append(t.safetyPatterns, re)
	}
	return &t, nil
}

// Mood returns the profile for mood, or the default profile
func (t *Tables) Mood(mood string) MoodProfile {
	if p, ok := t.Moods[strings.ToLower(strings.TrimSpace(mood))]; ok {
		return p
	}
	return t.Moods[t.DefaultMood]
}

// Sanitize replaces flagged words in a provider prompt
func (t *Tables) Sanitize(prompt string) string {
	for i, re := range t.safetyPatterns {
		prompt = re.ReplaceAllLiteralString(prompt, t.Safety[i].To)
	}
	return prompt
}
