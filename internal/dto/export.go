package dto

// ExportFormat enumerates catalog export renderers.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// CatalogExport is a rendered catalog document.
type CatalogExport struct {
	Filename    string
	ContentType string
	Body        []byte
}
