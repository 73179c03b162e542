package attachment

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFInfo is what an upload reports about the stored document.
type PDFInfo struct {
	PageCount int
}

// InspectPDF parses data with pdfcpu. Results are informational; a payload
// pdfcpu cannot read is still a valid attachment.
func InspectPDF(data []byte) (*PDFInfo, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return &PDFInfo{PageCount: ctx.PageCount}, nil
}

// FormatSize renders a byte count for display, e.g. "1.5 MB".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(n))
}
