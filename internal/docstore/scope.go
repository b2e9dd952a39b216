package docstore

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var docTypes = map[string]struct{}{
	"terms":   {},
	"privacy": {},
	"cookie":  {},
}

// Pattern check only. Calendar validity is deliberately not enforced so the
// accepted set matches what the published history already contains.
var effectiveDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ScopeInput carries raw scope fields prior to normalization.
type ScopeInput struct {
	Platform      string `json:"platform"`
	Line          string `json:"line"`
	DocType       string `json:"docType"`
	Lang          string `json:"lang"`
	EffectiveDate string `json:"effectiveDate"`
}

// NormalizeScope canonicalizes and validates raw scope fields. Platform, line
// and docType are trimmed and lower-cased; lang is only trimmed, so distinct
// casings remain distinct scopes.
func NormalizeScope(input ScopeInput) (Scope, error) {
	platform := strings.ToLower(strings.TrimSpace(input.Platform))
	line := strings.ToLower(strings.TrimSpace(input.Line))
	docType := strings.ToLower(strings.TrimSpace(input.DocType))
	lang := strings.TrimSpace(input.Lang)
	effectiveDate := strings.TrimSpace(input.EffectiveDate)

	if platform == "" {
		return Scope{}, validationError("platform", "is required")
	}
	if _, ok := docTypes[docType]; !ok {
		return Scope{}, validationError("docType", "must be one of: terms, privacy, cookie")
	}
	if lang == "" {
		return Scope{}, validationError("lang", "is required")
	}
	if !effectiveDatePattern.MatchString(effectiveDate) {
		return Scope{}, validationError("effectiveDate", "must be YYYY-MM-DD")
	}

	return Scope{
		Platform:      platform,
		Line:          line,
		DocType:       docType,
		Lang:          lang,
		EffectiveDate: effectiveDate,
	}, nil
}

// IsDocType reports whether value is a recognized document type.
func IsDocType(value string) bool {
	_, ok := docTypes[value]
	return ok
}

// HashContent returns the hex SHA-256 digest of data. The same digest is used
// for duplicate detection and as the manifest integrity hash.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
