// Package converter turns uploaded source documents into PDF through an
// external LibreOffice-compatible HTTP service, a local soffice binary, or
// headless Chrome for HTML inputs. The converter is an opaque, potentially
// unavailable collaborator: a failed or missing converter surfaces a typed
// error and never leaves partial state behind.
package converter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ConversionError reports a failed or unavailable conversion.
type ConversionError struct {
	Reason string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conversion failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("conversion failed: %s", e.Reason)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func conversionError(reason string, err error) *ConversionError {
	return &ConversionError{Reason: reason, Err: err}
}

// Health describes which conversion backend is reachable.
type Health struct {
	Mode          string `json:"mode"` // "remote", "local" or "none"
	ConfiguredURL string `json:"configuredUrl,omitempty"`
	Reachable     bool   `json:"reachable"`
}

// Service converts document bytes to PDF. One attempt per call, bounded by
// the configured timeout; retries are the caller's decision.
type Service struct {
	remoteURL string
	timeout   time.Duration
	client    *http.Client
}

func New(remoteURL string, timeout time.Duration) *Service {
	return &Service{
		remoteURL: strings.TrimRight(remoteURL, "/"),
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
	}
}

// Convert renders data as PDF. PDFs pass through untouched; HTML is printed
// with headless Chrome; everything else goes through the remote converter
// when configured, else a local soffice binary.
func (s *Service) Convert(ctx context.Context, data []byte, originalFileName string) (pdf []byte, converted bool, err error) {
	ext := strings.ToLower(filepath.Ext(originalFileName))
	switch ext {
	case ".pdf":
		return data, false, nil
	case ".html", ".htm":
		pdf, err := htmlToPDF(ctx, string(data))
		if err != nil {
			return nil, false, err
		}
		return pdf, true, nil
	}

	if s.remoteURL != "" {
		pdf, err := s.convertRemote(ctx, data, originalFileName)
		if err != nil {
			return nil, false, err
		}
		return pdf, true, nil
	}

	pdf, err = s.convertLocal(ctx, data, originalFileName)
	if err != nil {
		return nil, false, err
	}
	return pdf, true, nil
}

func (s *Service) convertRemote(ctx context.Context, data []byte, originalFileName string) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("files", filepath.Base(originalFileName))
	if err != nil {
		return nil, conversionError("build converter request", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, conversionError("build converter request", err)
	}
	if err := writer.Close(); err != nil {
		return nil, conversionError("build converter request", err)
	}

	endpoint := s.remoteURL + "/forms/libreoffice/convert"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, conversionError("build converter request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, conversionError("converter service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, conversionError(fmt.Sprintf("converter service returned HTTP %d", resp.StatusCode), nil)
	}
	output, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, conversionError("read converter response", err)
	}
	if len(output) == 0 {
		return nil, conversionError("converter service returned an empty PDF", nil)
	}
	return output, nil
}

func (s *Service) convertLocal(ctx context.Context, data []byte, originalFileName string) ([]byte, error) {
	if _, err := exec.LookPath("soffice"); err != nil {
		return nil, conversionError("no converter available: set WEBTERMS_CONVERTER_URL or install LibreOffice (soffice)", nil)
	}

	tempDir, err := os.MkdirTemp("", "webterms-convert-")
	if err != nil {
		return nil, conversionError("create temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	base := filepath.Base(originalFileName)
	inputPath := filepath.Join(tempDir, base)
	if err := os.WriteFile(inputPath, data, 0o644); err != nil {
		return nil, conversionError("write temp input", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, "soffice", "--headless", "--convert-to", "pdf", "--outdir", tempDir, inputPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, conversionError(fmt.Sprintf("soffice failed: %s", strings.TrimSpace(string(out))), err)
	}

	ext := filepath.Ext(base)
	outputPath := filepath.Join(tempDir, strings.TrimSuffix(base, ext)+".pdf")
	pdf, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, conversionError("soffice produced no output", err)
	}
	return pdf, nil
}

// DetectHealth probes the configured backend without converting anything.
func (s *Service) DetectHealth(ctx context.Context) Health {
	if s.remoteURL != "" {
		health := Health{Mode: "remote", ConfiguredURL: s.remoteURL}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.remoteURL+"/health", nil)
		if err != nil {
			return health
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return health
		}
		resp.Body.Close()
		health.Reachable = resp.StatusCode == http.StatusOK
		return health
	}

	if _, err := exec.LookPath("soffice"); err == nil {
		return Health{Mode: "local", Reachable: true}
	}
	return Health{Mode: "none"}
}
