package export

import (
	"fmt"
	"strings"
)

// Format names a supported export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(FormatCSV):
		return FormatCSV, nil
	case string(FormatPDF):
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// Renderer turns a dataset into bytes of one format.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// RendererFor returns the renderer registered for the format.
func RendererFor(f Format) (Renderer, error) {
	switch f {
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}
