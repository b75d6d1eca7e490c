package constants

import "strings"

// SourceFormat identifies which parser handles a document.
type SourceFormat string

const (
	FormatXLSX SourceFormat = "xlsx"
	FormatCSV  SourceFormat = "csv"
	FormatJSON SourceFormat = "json"
	FormatXML  SourceFormat = "xml"
	FormatDOCX SourceFormat = "docx"
	FormatText SourceFormat = "text"
	FormatPDF  SourceFormat = "pdf"
)

// AllowedExtensions maps the accepted menu file extensions to their source format.
var AllowedExtensions = map[string]SourceFormat{
	"xlsx": FormatXLSX,
	"xlsm": FormatXLSX,
	"csv":  FormatCSV,
	"tsv":  FormatCSV,
	"json": FormatJSON,
	"xml":  FormatXML,
	"docx": FormatDOCX,
	"txt":  FormatText,
	"md":   FormatText,
	"pdf":  FormatPDF,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// FormatForExt returns the source format for an extension (with or without the dot).
func FormatForExt(ext string) (SourceFormat, bool) {
	f, ok := AllowedExtensions[NormalizeExt(ext)]
	return f, ok
}

// IsUnstructured reports whether documents of this format go through text extraction.
func (f SourceFormat) IsUnstructured() bool {
	return f == FormatText || f == FormatPDF
}
