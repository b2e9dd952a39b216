package converter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestConvertPDFPassthrough(t *testing.T) {
	service := New("", 5*time.Second)
	payload := []byte("%PDF-1.4 already a pdf")

	pdf, converted, err := service.Convert(context.Background(), payload, "Terms.PDF")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if converted {
		t.Error("converted = true for a PDF input")
	}
	if string(pdf) != string(payload) {
		t.Error("PDF bytes modified by passthrough")
	}
}

func TestConvertRemote(t *testing.T) {
	var gotPath string
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
		}
		file, header, err := r.FormFile("files")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "terms.docx" {
			t.Errorf("uploaded filename = %q", header.Filename)
		}
		if _, err := io.Copy(io.Discard, file); err != nil {
			t.Errorf("read upload: %v", err)
		}
		w.Write([]byte("%PDF-1.4 rendered"))
	}))
	defer remote.Close()

	service := New(remote.URL, 5*time.Second)
	pdf, converted, err := service.Convert(context.Background(), []byte("docx bytes"), "terms.docx")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !converted {
		t.Error("converted = false for a docx input")
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Errorf("unexpected converter output: %q", pdf)
	}
	if gotPath != "/forms/libreoffice/convert" {
		t.Errorf("converter endpoint = %q", gotPath)
	}
}

func TestConvertRemoteFailure(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer remote.Close()

	service := New(remote.URL, 5*time.Second)
	_, _, err := service.Convert(context.Background(), []byte("docx bytes"), "terms.docx")
	var conversionErr *ConversionError
	if !errors.As(err, &conversionErr) {
		t.Fatalf("Convert() error = %v, want *ConversionError", err)
	}
}

func TestConvertRemoteEmptyOutput(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer remote.Close()

	service := New(remote.URL, 5*time.Second)
	_, _, err := service.Convert(context.Background(), []byte("docx bytes"), "terms.docx")
	var conversionErr *ConversionError
	if !errors.As(err, &conversionErr) {
		t.Fatalf("Convert() error = %v, want *ConversionError", err)
	}
}

func TestDetectHealthRemote(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer remote.Close()

	health := New(remote.URL, 5*time.Second).DetectHealth(context.Background())
	if health.Mode != "remote" {
		t.Errorf("mode = %q, want remote", health.Mode)
	}
	if !health.Reachable {
		t.Error("reachable = false with a healthy remote")
	}
}

func TestDetectHealthRemoteDown(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	remote.Close()

	health := New(remote.URL, time.Second).DetectHealth(context.Background())
	if health.Mode != "remote" || health.Reachable {
		t.Errorf("health = %+v, want unreachable remote", health)
	}
}
