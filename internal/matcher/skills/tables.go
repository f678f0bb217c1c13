package skills

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxSkills is the number of skill slots an extraction fills.
const DefaultMaxSkills = 12

// DefaultVocabulary lists the curated technical terms that are always
// selected when present, in priority order. "c" and "c++" can never survive
// normalization and the length filter; they stay listed so that the table
// reads like the canonical list.
var DefaultVocabulary = []string{
	"javascript", "html", "css", "python", "sql", "java", "c", "c++",
	"node", "nodejs", "react", "angular", "vue", "mongodb", "mysql",
	"excel", "pandas", "numpy", "ml", "machine", "learning", "api",
	"aws", "azure", "docker", "kubernetes", "git", "linux",
	"communication", "product",
}

// DefaultStopwords are filler words that never count as skills.
var DefaultStopwords = []string{
	"and", "or", "with", "the", "a", "an", "in", "on", "for", "to", "of",
	"experience", "knowledge", "skills", "working", "using", "familiar",
}

// Tables holds substitutable extraction data, typically loaded from YAML:
//
//	vocabulary: [go, rust, kafka]
//	stopwords: [and, or, the]
//
// An empty list means "keep the default".
type Tables struct {
	Vocabulary []string `yaml:"vocabulary"`
	Stopwords  []string `yaml:"stopwords"`
}

// LoadTables reads a YAML tables file.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skill tables %s: %w", path, err)
	}
	return ParseTables(data)
}

// ParseTables decodes YAML table data and lowercases every entry.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing skill tables: %w", err)
	}
	t.Vocabulary = lowerAll(t.Vocabulary)
	t.Stopwords = lowerAll(t.Stopwords)
	return &t, nil
}

// Options converts the tables into extractor options, skipping empty lists.
func (t *Tables) Options() []Option {
	if t == nil {
		return nil
	}
	var opts []Option
	if len(t.Vocabulary) > 0 {
		opts = append(opts, WithVocabulary(t.Vocabulary))
	}
	if len(t.Stopwords) > 0 {
		opts = append(opts, WithStopwords(t.Stopwords))
	}
	return opts
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
