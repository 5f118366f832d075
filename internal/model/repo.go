package model

import "time"

// TimestampLayout is the wire format of revision timestamps (UTC, millisecond precision)
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Package represents one parsed result of a repository listing query
type Package struct {
	Name     string
	Versions []string // listing order, first is latest
}

// Latest returns the most recent version in the listing
func (p *Package) Latest() string {
	return p.Versions[0]
}

// Revision represents a point in a package's history as reported to the orchestrator
type Revision struct {
	Revision     string            `json:"revision"`
	Comment      string            `json:"revisionComment,omitempty"`
	User         string            `json:"user,omitempty"`
	Timestamp    string            `json:"timestamp"`
	TrackbackURL string            `json:"trackbackUrl,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

// NewRevision builds a revision for version stamped at t
func NewRevision(version string, t time.Time) *Revision {
	return &Revision{
		Revision:  version,
		Timestamp: t.UTC().Format(TimestampLayout),
	}
}

// FieldDescriptor describes one configuration key
type FieldDescriptor struct {
	DisplayName    string `json:"display-name"`
	DefaultValue   string `json:"default-value,omitempty"`
	PartOfIdentity bool   `json:"part-of-identity"`
	Required       bool   `json:"required"`
	Secure         bool   `json:"secure"`
	DisplayOrder   string `json:"display-order"`
}

// ValidationError is a field-level configuration error
type ValidationError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Check statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// CheckResult is the outcome of a connection check
type CheckResult struct {
	Status   string   `json:"status"`
	Messages []string `json:"messages"`
}

// Succeeded reports whether the check passed
func (c CheckResult) Succeeded() bool {
	return c.Status == StatusSuccess
}

// WatchInfo represents a watched package for API responses
type WatchInfo struct {
	Name     string        `json:"name"`
	URL      string        `json:"url"`
	Gem      string        `json:"gem"`
	Latest   *RevisionInfo `json:"latest"`
	LastPoll int64         `json:"lastPoll,omitempty"`
}

// RevisionInfo represents one recorded revision for API responses
type RevisionInfo struct {
	Revision   string `json:"revision"`
	ObservedAt int64  `json:"observedAt"`
}
