package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"webterms/api/internal/docstore"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		health := s.service.ConverterHealth(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":        true,
			"converter": health,
		})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		token, user, err := s.service.Login(r.Context(), body.Username, body.Password)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":    token,
			"username": user.Username,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		s.service.Logout(r.Context(), bearerToken(r))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/auth/me" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "username": nil})
			return
		}
		user, err := s.service.CurrentUser(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "username": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "username": user.Username})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/auth/config" {
		options, err := s.service.UploadConfig(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, options)
		return
	}

	parts := splitPath(r.URL.Path)

	// Public routes — no authentication required
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "public" {
		s.handlePublic(w, r, parts[2:])
		return
	}

	// Reads stay anonymous; only mutations require a session. The published
	// index points anonymous consumers at the download endpoint.
	if r.Method == http.MethodGet && r.URL.Path == "/api/documents" {
		query := r.URL.Query()
		filter := docstore.Filter{
			Platform:       strings.ToLower(strings.TrimSpace(query.Get("platform"))),
			Line:           strings.ToLower(strings.TrimSpace(query.Get("line"))),
			DocType:        strings.ToLower(strings.TrimSpace(query.Get("docType"))),
			Lang:           strings.TrimSpace(query.Get("lang")),
			EffectiveDate:  strings.TrimSpace(query.Get("effectiveDate")),
			Search:         strings.ToLower(strings.TrimSpace(query.Get("search"))),
			IncludeDeleted: query.Get("includeDeleted") == "true",
		}
		items := s.service.ListDocuments(r.Context(), filter)
		writeJSON(w, http.StatusOK, map[string]any{"documents": items})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/documents" {
		if !s.requireSession(w, r) {
			return
		}
		var body struct {
			FileName      string `json:"fileName"`
			MimeType      string `json:"mimeType"`
			ContentBase64 string `json:"contentBase64"`
			Platform      string `json:"platform"`
			Line          string `json:"line"`
			DocType       string `json:"docType"`
			Lang          string `json:"lang"`
			EffectiveDate string `json:"effectiveDate"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		content, err := base64.StdEncoding.DecodeString(body.ContentBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "contentBase64 is not valid base64", nil)
			return
		}
		record, err := s.service.Upload(r.Context(), UploadInput{
			FileName: body.FileName,
			MimeType: body.MimeType,
			Content:  content,
			Scope: docstore.ScopeInput{
				Platform:      body.Platform,
				Line:          body.Line,
				DocType:       body.DocType,
				Lang:          body.Lang,
				EffectiveDate: body.EffectiveDate,
			},
		})
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"document": record})
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "documents" {
		documentID := parts[2]
		switch r.Method {
		case http.MethodGet:
			record, err := s.service.GetDocument(r.Context(), documentID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"document": record})
		case http.MethodDelete:
			if !s.requireSession(w, r) {
				return
			}
			record, err := s.service.DeleteDocument(r.Context(), documentID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"document": record})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "documents" && parts[3] == "download" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		data, fileName, err := s.service.Download(r.Context(), parts[2])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writePDF(w, fileName, data)
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "publications" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		if !s.requireSession(w, r) {
			return
		}
		createdBy := "webterms"
		if user, err := s.service.CurrentUser(r.Context(), bearerToken(r)); err == nil {
			createdBy = user.Username
		}
		job, err := s.service.CreatePublication(r.Context(), parts[2], createdBy)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"job": job})
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "publications" && parts[2] == "jobs" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		job, err := s.service.GetPublicationJob(r.Context(), parts[3])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"job": job})
		return
	}

	if len(parts) == 5 && parts[0] == "api" && parts[1] == "publications" && parts[2] == "jobs" && parts[4] == "merged" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		if !s.requireSession(w, r) {
			return
		}
		job, err := s.service.ConfirmMerged(r.Context(), parts[3])
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"job": job})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// requireSession rejects the request with 401 unless it carries a valid
// session, or login is disabled. Mutating routes call it; reads do not.
func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) bool {
	if s.service.Authorize(r.Context(), bearerToken(r)) {
		return true
	}
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	return false
}

// handlePublic serves the published index and the current PDFs. Both the
// flat {docType}_{platform}_{lang}.pdf form and the nested
// {platform}/{docType}/{lang}.pdf form resolve the same artifact.
func (s *HTTPServer) handlePublic(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	if len(parts) == 1 && parts[0] == "latest.json" {
		writeJSON(w, http.StatusOK, s.service.PublicLatest(r.Context()))
		return
	}

	if len(parts) == 1 && strings.HasSuffix(strings.ToLower(parts[0]), ".pdf") {
		name := strings.TrimSuffix(strings.ToLower(parts[0]), ".pdf")
		pieces := strings.SplitN(name, "_", 3)
		if len(pieces) != 3 {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		s.servePublicPDF(w, r, pieces[1], pieces[0], pieces[2])
		return
	}

	if len(parts) == 3 && strings.HasSuffix(parts[2], ".pdf") {
		s.servePublicPDF(w, r, parts[0], parts[1], strings.TrimSuffix(parts[2], ".pdf"))
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) servePublicPDF(w http.ResponseWriter, r *http.Request, platform, docType, lang string) {
	data, fileName, err := s.service.PublicLatestPDF(r.Context(), platform, docType, lang)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writePDF(w, fileName, data)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writePDF(w http.ResponseWriter, fileName string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
