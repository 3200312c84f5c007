package constants

import "strings"

// AllowedExtensions holds the document extensions accepted by the extractor.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// ExportFormats holds the formats accepted by the export command.
var ExportFormats = []string{"xlsx", "csv", "json"}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without dot) is an accepted document type.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
