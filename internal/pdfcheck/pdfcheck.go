// Package pdfcheck validates rendered artifacts before they enter the store.
package pdfcheck

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func configuration() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// Validate checks that data is a parseable PDF. Relaxed mode: converter
// output from older LibreOffice builds is not strictly standards compliant.
func Validate(data []byte) error {
	if err := api.Validate(bytes.NewReader(data), configuration()); err != nil {
		return fmt.Errorf("validate pdf: %w", err)
	}
	return nil
}

// PageCount returns the page count of a PDF.
func PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), configuration())
	if err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}
	return count, nil
}
