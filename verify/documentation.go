// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package verify

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ASILLevel is the automotive safety integrity level a requirement or
// platform configuration is verified against.
type ASILLevel uint8

const (
	ASILQM ASILLevel = iota
	ASILA
	ASILB
	ASILC
	ASILD
)

func (a ASILLevel) String() string {
	switch a {
	case ASILQM:
		return "QM"
	case ASILA:
		return "A"
	case ASILB:
		return "B"
	case ASILC:
		return "C"
	case ASILD:
		return "D"
	default:
		return "unknown"
	}
}

// Requirement is one documented safety requirement subject to
// coverage verification.
type Requirement struct {
	ID              string
	Title           string
	Description     string
	ASILLevel       ASILLevel
	Implementations []string
	Tests           []string
	Documentation   []string
}

// DocumentationStandards is the minimum documentation bar a
// requirement at a given ASIL level must clear.
type DocumentationStandards struct {
	MinDescriptionLength       int
	RequiresImplementationDocs bool
	RequiresTestDocs           bool
	RequiresVerificationDoc    bool
	MaxAllowedViolations       int
	RequiredComplianceScore    float64
}

// StandardsForASIL returns the fixed documentation bar per level,
// rising in strictness from QM to D.
func StandardsForASIL(level ASILLevel) DocumentationStandards {
	switch level {
	case ASILQM:
		return DocumentationStandards{MinDescriptionLength: 50, MaxAllowedViolations: 10, RequiredComplianceScore: 50.0}
	case ASILA:
		return DocumentationStandards{MinDescriptionLength: 100, RequiresImplementationDocs: true, MaxAllowedViolations: 5, RequiredComplianceScore: 70.0}
	case ASILB:
		return DocumentationStandards{MinDescriptionLength: 150, RequiresImplementationDocs: true, RequiresTestDocs: true, MaxAllowedViolations: 3, RequiredComplianceScore: 80.0}
	case ASILC:
		return DocumentationStandards{MinDescriptionLength: 200, RequiresImplementationDocs: true, RequiresTestDocs: true, RequiresVerificationDoc: true, MaxAllowedViolations: 1, RequiredComplianceScore: 90.0}
	case ASILD:
		return DocumentationStandards{MinDescriptionLength: 300, RequiresImplementationDocs: true, RequiresTestDocs: true, RequiresVerificationDoc: true, MaxAllowedViolations: 0, RequiredComplianceScore: 95.0}
	default:
		return StandardsForASIL(ASILQM)
	}
}

// ViolationKind enumerates the documentation gaps coverage scanning
// can detect.
type ViolationKind uint8

const (
	ViolationMissingDescription ViolationKind = iota
	ViolationInsufficientDetail
	ViolationMissingImplementation
	ViolationUndocumentedImplementation
	ViolationMissingTestDocumentation
	ViolationMissingVerificationDocument
)

func (v ViolationKind) String() string {
	switch v {
	case ViolationMissingDescription:
		return "missing description"
	case ViolationInsufficientDetail:
		return "insufficient detail"
	case ViolationMissingImplementation:
		return "missing implementation"
	case ViolationUndocumentedImplementation:
		return "undocumented implementation"
	case ViolationMissingTestDocumentation:
		return "missing test documentation"
	case ViolationMissingVerificationDocument:
		return "missing verification document"
	default:
		return "unknown"
	}
}

// Violation is one documentation gap found for a requirement.
type Violation struct {
	RequirementID string
	Kind          ViolationKind
	Severity      Severity
	Description   string
}

// RequirementAnalysis is the per-requirement outcome of a coverage
// scan.
type RequirementAnalysis struct {
	RequirementID  string
	ASILLevel      ASILLevel
	Violations     []Violation
	ComplianceScore float64
	Standards      DocumentationStandards
}

// IsCompliant reports whether the requirement clears its ASIL bar on
// both compliance score and violation count.
func (a RequirementAnalysis) IsCompliant() bool {
	return a.ComplianceScore >= a.Standards.RequiredComplianceScore && len(a.Violations) <= a.Standards.MaxAllowedViolations
}

// CoverageResult summarizes a documentation-coverage scan over a set
// of requirements.
type CoverageResult struct {
	TotalRequirements     int
	CompliantRequirements int
	CompliancePercentage  float64
	Violations            []Violation
	Analyses              []RequirementAnalysis
	CertificationReady    bool
}

// violationSeverity scales with ASIL level: the same gap is more
// severe the higher the safety tier, per §6.4's rising admission bar.
func violationSeverity(level ASILLevel, kind ViolationKind) Severity {
	switch level {
	case ASILD:
		if kind == ViolationMissingDescription || kind == ViolationMissingVerificationDocument {
			return SeverityError
		}
		return SeverityError
	case ASILC:
		return SeverityError
	case ASILB:
		return SeverityWarning
	case ASILA:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func analyzeRequirement(req Requirement, implDocumented func(string) bool) RequirementAnalysis {
	standards := StandardsForASIL(req.ASILLevel)
	var violations []Violation

	addViolation := func(kind ViolationKind, description string) {
		violations = append(violations, Violation{
			RequirementID: req.ID,
			Kind:          kind,
			Severity:      violationSeverity(req.ASILLevel, kind),
			Description:   description,
		})
	}

	if strings.TrimSpace(req.Description) == "" {
		addViolation(ViolationMissingDescription, "requirement lacks a description")
	}
	if len(req.Description) < standards.MinDescriptionLength {
		addViolation(ViolationInsufficientDetail, "description too brief for this ASIL level")
	}
	if len(req.Implementations) == 0 {
		addViolation(ViolationMissingImplementation, "no implementation references found")
	} else if implDocumented != nil {
		for _, ref := range req.Implementations {
			if !implDocumented(ref) {
				addViolation(ViolationUndocumentedImplementation, "implementation '"+ref+"' lacks documentation")
			}
		}
	}
	if len(req.Tests) == 0 {
		addViolation(ViolationMissingTestDocumentation, "no test documentation found")
	}
	if standards.RequiresVerificationDoc && len(req.Documentation) == 0 {
		addViolation(ViolationMissingVerificationDocument, "missing verification documentation")
	}

	score := calculateComplianceScore(violations, standards)

	return RequirementAnalysis{
		RequirementID:   req.ID,
		ASILLevel:       req.ASILLevel,
		Violations:      violations,
		ComplianceScore: score,
		Standards:       standards,
	}
}

func calculateComplianceScore(violations []Violation, standards DocumentationStandards) float64 {
	if len(violations) == 0 {
		return 100.0
	}
	penalty := 0.0
	for _, v := range violations {
		switch v.Severity {
		case SeverityError:
			penalty += 25.0
		case SeverityWarning:
			penalty += 10.0
		default:
			penalty += 2.0
		}
	}
	score := 100.0 - penalty
	if score < 0 {
		score = 0
	}
	return score
}

// ScanDocumentationCoverage evaluates every requirement's
// documentation against its ASIL-scaled standards and produces a
// CoverageResult alongside a DiagnosticCollection of findings.
// implDocumented, when non-nil, is consulted to verify that each
// implementation reference actually carries documentation (the caller
// supplies filesystem access; this package stays IO-free otherwise).
func ScanDocumentationCoverage(requirements []Requirement, minCertificationCompliance float64, implDocumented func(string) bool) (CoverageResult, *DiagnosticCollection) {
	diagnostics := NewDiagnosticCollection("", "documentation-verification")

	analyses := make([]RequirementAnalysis, len(requirements))
	group, _ := errgroup.WithContext(context.Background())
	for i, req := range requirements {
		i, req := i, req
		group.Go(func() error {
			analyses[i] = analyzeRequirement(req, implDocumented)
			return nil
		})
	}
	_ = group.Wait() // analyzeRequirement never errors; Wait only joins the fan-out

	var allViolations []Violation
	compliant := 0
	for _, analysis := range analyses {
		if analysis.IsCompliant() {
			compliant++
			diagnostics.Addf(SeverityInfo, "doc-compliant", "requirement %s documentation is compliant", analysis.RequirementID)
		} else {
			for _, v := range analysis.Violations {
				allViolations = append(allViolations, v)
				diagnostics.Add(Diagnostic{
					Source:   "documentation-verification",
					Severity: v.Severity,
					Code:     "doc-" + strings.ReplaceAll(v.Kind.String(), " ", "-"),
					Message:  v.Kind.String() + ": " + v.Description,
				})
			}
		}
	}

	total := len(requirements)
	compliancePercentage := 100.0
	if total > 0 {
		compliancePercentage = (float64(compliant) / float64(total)) * 100.0
	}

	result := CoverageResult{
		TotalRequirements:     total,
		CompliantRequirements: compliant,
		CompliancePercentage:  compliancePercentage,
		Violations:            allViolations,
		Analyses:              analyses,
		CertificationReady:    compliancePercentage >= minCertificationCompliance,
	}

	if result.CertificationReady {
		diagnostics.Addf(SeverityInfo, "doc-certification-ready", "documentation compliance: %.1f%% (ready for certification)", compliancePercentage)
	} else {
		diagnostics.Addf(SeverityWarning, "doc-certification-not-ready", "documentation compliance: %.1f%% (not ready)", compliancePercentage)
	}

	return result, diagnostics
}
