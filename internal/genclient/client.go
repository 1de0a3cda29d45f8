// Package genclient is the client for the content-generation backend. The
// engine treats generated content as an opaque string; only the request shape
// and the Client interface are contractual.
package genclient

import (
	"context"
	"strings"
)

// Request carries the structured generation parameters. Field values are
// free-form; the backend interprets them.
type Request struct {
	BusinessType string `json:"business_type"`
	Audience     string `json:"audience"`
	Tone         string `json:"tone"`
	Goal         string `json:"goal"`
	Include      string `json:"include"`
	Avoid        string `json:"avoid"`

	// Context seeds the assistant with recent conversation, typically from
	// history.Summarize. Optional.
	Context string `json:"-"`
}

// Client abstracts the generation backend so it can be replaced or mocked.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Preferences returns the request's parameters as a flat key-value map, the
// shape the preference store persists after a successful generation.
func (r Request) Preferences() map[string]string {
	return map[string]string{
		"business_type": r.BusinessType,
		"audience":      r.Audience,
		"tone":          r.Tone,
		"goal":          r.Goal,
		"include":       r.Include,
		"avoid":         r.Avoid,
	}
}

// prompt renders the request as the user message for the backend.
func (r Request) prompt() string {
	var sb strings.Builder
	sb.WriteString("Write a social media post draft.\n")
	write := func(label, v string) {
		if v != "" {
			sb.WriteString(label)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}
	}
	write("Business type", r.BusinessType)
	write("Audience", r.Audience)
	write("Tone", r.Tone)
	write("Goal", r.Goal)
	write("Must include", r.Include)
	write("Avoid", r.Avoid)
	return sb.String()
}
