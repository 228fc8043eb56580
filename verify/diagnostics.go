// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package verify implements the safety-verification surfaces:
// platform-limits discovery, documentation-coverage scanning, and ASIL
// admission threshold evaluation, each emitting a DiagnosticCollection
// of severity-tagged findings.
package verify

import "fmt"

// Severity classifies a Diagnostic's urgency.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is one severity-tagged finding, anchored to a
// workspace-relative path and line range where applicable.
type Diagnostic struct {
	Source   string
	Severity Severity
	Message  string
	Code     string
	Path     string
	Line     int
}

// DiagnosticCollection accumulates Diagnostics produced by one
// verification pass over a workspace.
type DiagnosticCollection struct {
	WorkspaceRoot string
	Pass          string
	Diagnostics   []Diagnostic
}

// NewDiagnosticCollection returns an empty collection for one named
// verification pass.
func NewDiagnosticCollection(workspaceRoot, pass string) *DiagnosticCollection {
	return &DiagnosticCollection{WorkspaceRoot: workspaceRoot, Pass: pass}
}

// Add appends d to the collection.
func (c *DiagnosticCollection) Add(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// Addf appends a Diagnostic built from a formatted message.
func (c *DiagnosticCollection) Addf(severity Severity, code, format string, args ...interface{}) {
	c.Add(Diagnostic{Source: c.Pass, Severity: severity, Code: code, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any diagnostic in the collection is at
// SeverityError.
func (c *DiagnosticCollection) HasErrors() bool {
	for _, d := range c.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity returns how many diagnostics match severity.
func (c *DiagnosticCollection) CountBySeverity(severity Severity) int {
	count := 0
	for _, d := range c.Diagnostics {
		if d.Severity == severity {
			count++
		}
	}
	return count
}
