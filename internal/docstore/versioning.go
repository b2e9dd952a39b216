package docstore

// NextVersion returns the version the next record in scope should carry.
// Deleted records participate in the max computation, so deleting and
// re-uploading never reuses a version number.
func NextVersion(records []DocumentRecord, scope Scope) int {
	maxVersion := 0
	for _, record := range records {
		if !record.Scope.Equal(scope) {
			continue
		}
		if record.Version > maxVersion {
			maxVersion = record.Version
		}
	}
	return maxVersion + 1
}

// FindDuplicate returns the first non-deleted record in scope whose source or
// rendered hash matches the submission, in insertion order. Nil means novel.
func FindDuplicate(records []DocumentRecord, scope Scope, sourceHash, renderedHash string) *DocumentRecord {
	for i := range records {
		record := &records[i]
		if record.IsDeleted() || !record.Scope.Equal(scope) {
			continue
		}
		if sourceHash != "" && record.SourceContentHash != "" && record.SourceContentHash == sourceHash {
			return record
		}
		if renderedHash != "" && record.ContentHash == renderedHash {
			return record
		}
	}
	return nil
}
