package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/jobmatch/pkg/errors"
)

var (
	ErrInvalidJSON = fmt.Errorf("%w: invalid JSON", apperrors.ErrInvalidInput)
	ErrInvalidYAML = fmt.Errorf("%w: invalid YAML", apperrors.ErrInvalidInput)
	ErrNotArray    = fmt.Errorf("%w: JSON must be an array of job objects", apperrors.ErrInvalidInput)
)

// ParseJSON decodes and validates a JSON array of postings.
func ParseJSON(data []byte) ([]Posting, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var postings []Posting
	if err := json.Unmarshal(trimmed, &postings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if err := Validate(postings); err != nil {
		return nil, err
	}
	return postings, nil
}

// ParseYAML decodes and validates a YAML sequence of postings.
func ParseYAML(data []byte) ([]Posting, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: YAML must be a sequence of job objects", apperrors.ErrInvalidInput)
	}
	var postings []Posting
	if err := root.Content[0].Decode(&postings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if err := Validate(postings); err != nil {
		return nil, err
	}
	return postings, nil
}

// LoadFile reads a job collection, choosing the decoder from the extension.
func LoadFile(path string) ([]Posting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs file %s: %w", path, err)
	}
	var postings []Posting
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		postings, err = ParseYAML(data)
	default:
		postings, err = ParseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("loading jobs file %s: %w", path, err)
	}
	return postings, nil
}
