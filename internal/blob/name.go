package blob

import "strings"

// SanitizeFileName lower-cases name and replaces every character outside
// [a-zA-Z0-9._-] with a hyphen, collapsing runs and trimming the ends.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('-')
		}
	}
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}

// DownloadFileName is the standardized public name for a document's PDF.
func DownloadFileName(docType, platform, lang string) string {
	return SanitizeFileName(docType+"_"+platform+"_"+lang) + ".pdf"
}

// StoredFileName prefixes the download name with the record id so stored
// blobs never collide across versions.
func StoredFileName(id, downloadFileName string) string {
	return id + "_" + downloadFileName
}
