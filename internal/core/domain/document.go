package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// LabelDelimiter joins list-shaped labels in the metadata fragment text
const LabelDelimiter = ", "

// Document is a course document that can be indexed for retrieval.
// Identity is ID scoped by CourseID.
type Document struct {
	ID          string `json:"documentId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Labels      Labels `json:"labels"`
	ContentURL  string `json:"firebaseUrl"`
	CourseID    string `json:"courseId"`
}

// MetadataText renders title, description and labels as one embeddable string
func (d *Document) MetadataText() string {
	return d.Title + " " + d.Description + " " + d.Labels.Text()
}

// Labels holds document labels as sent by callers.
// A JSON array of strings is kept as Values. Any other JSON value is
// kept verbatim in Raw and passed through unchanged.
type Labels struct {
	Values []string
	Raw    string
}

// NewLabels builds list-shaped labels
func NewLabels(values ...string) Labels {
	if values == nil {
		values = []string{}
	}
	return Labels{Values: values}
}

// IsList reports whether the labels were sent as an array
func (l Labels) IsList() bool {
	return l.Values != nil
}

// Text renders labels for embedding and prompts
func (l Labels) Text() string {
	if l.IsList() {
		return strings.Join(l.Values, LabelDelimiter)
	}
	return l.Raw
}

// UnmarshalJSON accepts an array of strings, a string, or any other JSON value
func (l *Labels) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = Labels{}
		return nil
	}

	var values []string
	if err := json.Unmarshal(trimmed, &values); err == nil {
		*l = NewLabels(values...)
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		*l = Labels{Raw: s}
		return nil
	}

	*l = Labels{Raw: string(trimmed)}
	return nil
}

// MarshalJSON writes labels back in the shape they arrived in
func (l Labels) MarshalJSON() ([]byte, error) {
	if l.IsList() {
		return json.Marshal(l.Values)
	}
	if l.Raw == "" {
		return []byte("null"), nil
	}
	if json.Valid([]byte(l.Raw)) && !isJSONString(l.Raw) {
		return []byte(l.Raw), nil
	}
	return json.Marshal(l.Raw)
}

func isJSONString(s string) bool {
	var v string
	return json.Unmarshal([]byte(s), &v) == nil
}

// IngestResult summarises the vectors written for one document
type IngestResult struct {
	DocumentID string   `json:"documentId"`
	CourseID   string   `json:"courseId"`
	VectorIDs  []string `json:"vectorIds"`
}
