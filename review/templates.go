package review

// remediationTemplates maps each issue category to its canonical
// instruction template, verbatim from spec.md's GLOSSARY. BestPractices is
// also the default for any unrecognized category.
var remediationTemplates = map[Category]string{
	CategoryTestCoverage:   "Add unit tests to reach the configured coverage target; cover edge cases and error paths.",
	CategoryCodeComplexity: "Decompose complex functions; reduce cyclomatic complexity; extract helpers.",
	CategorySecurity:       "Validate inputs; parameterize queries; update vulnerable dependencies.",
	CategoryDocumentation:  "Add docstrings to public functions; document parameters, returns, and examples.",
	CategoryErrorHandling:  "Add explicit error handling on all fallible paths; surface failure reasons.",
	CategoryBestPractices:  "Review the reported issue; fix root cause; add regression test.",
}

// instructionFor returns category's canonical remediation instruction,
// falling back to the BestPractices template for an unrecognized category.
func instructionFor(category Category) string {
	if instr, ok := remediationTemplates[category]; ok {
		return instr
	}
	return remediationTemplates[CategoryBestPractices]
}

// BuildRemediationInstructions translates issues into spec.md §4.5's
// remediation instructions: for each issue, its category's canonical
// instruction template, expanded and concatenated alongside the issue's own
// description.
func BuildRemediationInstructions(issues []QualityIssue) string {
	out := ""
	for i, issue := range issues {
		if i > 0 {
			out += "\n\n"
		}
		out += instructionFor(issue.Category)
		if issue.Description != "" {
			out += " Issue: " + issue.Description
		}
	}
	return out
}
