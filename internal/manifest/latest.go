// Package manifest builds the public "latest" index consumed by the static
// site and the public PDF endpoints.
package manifest

import (
	"fmt"
	"strings"

	"webterms/api/internal/docstore"
)

// LatestEntry is one leaf of the published index.
type LatestEntry struct {
	ID            string `json:"id"`
	Line          string `json:"line"`
	Version       int    `json:"version"`
	EffectiveDate string `json:"effectiveDate"`
	ContentHash   string `json:"contentHash"`
	URL           string `json:"url"`
	DownloadURL   string `json:"downloadUrl"`
}

// Latest is the nested mapping platform -> docType -> lang -> entry.
type Latest map[string]map[string]map[string]LatestEntry

// CompareRecency orders two records by effective date, then version, then
// creation time. The greater record is the more current one.
func CompareRecency(a, b docstore.DocumentRecord) int {
	if a.EffectiveDate != b.EffectiveDate {
		if a.EffectiveDate < b.EffectiveDate {
			return -1
		}
		return 1
	}
	if a.Version != b.Version {
		if a.Version < b.Version {
			return -1
		}
		return 1
	}
	return a.CreatedAt.UTC().Compare(b.CreatedAt.UTC())
}

// BuildLatest selects the current record per scope and flattens the result
// into the published index. Grouping includes the line dimension, but the
// published map is keyed only by (platform, docType, lang): when several
// lines share that key the one comparing greatest wins. That collapse is
// long-standing public behavior and is kept as is.
func BuildLatest(records []docstore.DocumentRecord) Latest {
	type groupKey struct {
		platform, line, docType, lang string
	}

	winners := make(map[groupKey]docstore.DocumentRecord)
	order := make([]groupKey, 0)
	for _, record := range records {
		if record.IsDeleted() {
			continue
		}
		key := groupKey{record.Platform, record.Line, record.DocType, record.Lang}
		current, seen := winners[key]
		if !seen {
			winners[key] = record
			order = append(order, key)
			continue
		}
		if CompareRecency(current, record) < 0 {
			winners[key] = record
		}
	}

	latest := make(Latest)
	for _, key := range order {
		record := winners[key]
		if latest[record.Platform] == nil {
			latest[record.Platform] = make(map[string]map[string]LatestEntry)
		}
		if latest[record.Platform][record.DocType] == nil {
			latest[record.Platform][record.DocType] = make(map[string]LatestEntry)
		}
		latest[record.Platform][record.DocType][record.Lang] = LatestEntry{
			ID:            record.ID,
			Line:          record.Line,
			Version:       record.Version,
			EffectiveDate: record.EffectiveDate,
			ContentHash:   record.ContentHash,
			URL:           fmt.Sprintf("/webterms/api/public/%s_%s_%s.pdf", record.DocType, record.Platform, record.Lang),
			DownloadURL:   fmt.Sprintf("/webterms/api/documents/%s/download", record.ID),
		}
	}
	return latest
}

// LatestFor returns the current record for a (platform, docType, lang) key,
// ignoring the line dimension the way the public endpoints do. Lang matches
// case-insensitively since public file names are lower-cased.
func LatestFor(records []docstore.DocumentRecord, platform, docType, lang string) (docstore.DocumentRecord, bool) {
	var winner docstore.DocumentRecord
	found := false
	for _, record := range records {
		if record.IsDeleted() {
			continue
		}
		if record.Platform != platform || record.DocType != docType || !strings.EqualFold(record.Lang, lang) {
			continue
		}
		if !found || CompareRecency(winner, record) < 0 {
			winner = record
			found = true
		}
	}
	return winner, found
}
