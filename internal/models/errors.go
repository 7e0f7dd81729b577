package models

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// CatalogError reports malformed rule definitions. It is the only fatal
// error class: the scan aborts before any asset is touched.
type CatalogError struct {
	Source string // file path or "builtin"
	Err    error  // accumulated validation problems
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("rule catalog %s: %v", e.Source, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// IsCatalogError reports whether err chains to a CatalogError.
func IsCatalogError(err error) bool {
	var ce *CatalogError
	return errors.As(err, &ce)
}

// NormalizationError reports one raw inventory record that could not be
// turned into an Asset. Non-fatal: the record is skipped and counted.
type NormalizationError struct {
	Index  int    // position in the raw record stream
	Name   string // resource name when present
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("record %d (%s): %s", e.Index, e.Name, e.Reason)
}

// IsNormalizationError reports whether err chains to a NormalizationError.
func IsNormalizationError(err error) bool {
	var ne *NormalizationError
	return errors.As(err, &ne)
}

// EvaluationError reports one rule/asset pair whose condition failed at
// runtime. Non-fatal: the pair is excluded and the rest of the scan
// proceeds.
type EvaluationError struct {
	RuleID  string
	AssetID string
	Err     error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %s against %s: %v", e.RuleID, e.AssetID, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// UnknownRuleError reports a remediation lookup miss. The renderer
// degrades to placeholder text instead of propagating it.
type UnknownRuleError struct {
	RuleID string
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("no remediation entry for rule %s", e.RuleID)
}

// IsUnknownRuleError reports whether err chains to an UnknownRuleError.
func IsUnknownRuleError(err error) bool {
	var ue *UnknownRuleError
	return errors.As(err, &ue)
}

// PartialScanError reports a scan-level timeout or inventory truncation.
// The result is still produced but compliance status becomes "unknown".
type PartialScanError struct {
	Reason string
}

func (e *PartialScanError) Error() string {
	return fmt.Sprintf("partial scan: %s", e.Reason)
}
