// Package jobs supplies the job postings the matcher scores: the built-in
// sample set, JSON/YAML collections validated on load, an in-memory store
// that uploads replace, and a read-only PostgreSQL catalog.
package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a caller-assigned posting identifier. It decodes from either a JSON
// number or a JSON string and is kept verbatim.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers so that collections round-trip
// in the shape they were uploaded in.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(string(id), 64); err == nil && json.Valid([]byte(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Posting is a single job record. Postings are treated as immutable once
// handed to the scorer.
type Posting struct {
	ID          ID       `json:"id" yaml:"id" validate:"required"`
	Title       string   `json:"title" yaml:"title" validate:"required,max=1024"`
	Company     string   `json:"company" yaml:"company" validate:"max=1024"`
	Skills      []string `json:"skills" yaml:"skills" validate:"required"`
	Location    string   `json:"location" yaml:"location"`
	Description string   `json:"desc" yaml:"desc"`
}

// Samples returns a fresh copy of the built-in sample postings.
func Samples() []Posting {
	return []Posting{
		{ID: "1", Title: "Junior Web Developer", Company: "TechWorks", Skills: []string{"javascript", "html", "css"}, Location: "Remote", Description: "Build web pages using HTML/CSS and JS."},
		{ID: "2", Title: "Data Analyst", Company: "Insight Labs", Skills: []string{"sql", "excel", "python", "statistics"}, Location: "Hyderabad", Description: "Analyze datasets and produce reports."},
		{ID: "3", Title: "Machine Learning Intern", Company: "AI Labs", Skills: []string{"python", "pandas", "numpy", "ml"}, Location: "Bangalore", Description: "Work on ML models like classification."},
		{ID: "4", Title: "Product Manager - Associate", Company: "Prodify", Skills: []string{"communication", "product", "roadmap", "stakeholder"}, Location: "Chennai", Description: "Assist in building product features."},
		{ID: "5", Title: "Backend Developer (Node)", Company: "DevHouse", Skills: []string{"nodejs", "express", "mongodb", "api"}, Location: "Remote", Description: "Build REST APIs and backend systems."},
	}
}

// Clone returns a deep copy of postings.
func Clone(postings []Posting) []Posting {
	out := make([]Posting, len(postings))
	for i, p := range postings {
		p.Skills = append([]string(nil), p.Skills...)
		if p.Skills == nil {
			p.Skills = []string{}
		}
		out[i] = p
	}
	return out
}
