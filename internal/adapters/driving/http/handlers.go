package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driving"
)

// multipartOverhead is the allowance for multipart framing on top of the payload limit
const multipartOverhead = 1 << 20

// sseKeepAlive is how often an idle event stream sends a comment line
const sseKeepAlive = 25 * time.Second

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Code  domain.ErrorCode `json:"code" example:"validation_error"`
	Error string           `json:"error" example:"invalid request body"`
	// Sources are the citations computed before answer generation failed
	Sources []domain.Source `json:"sources,omitempty"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports each dependency probed by /ready
// @Description Readiness response
type ReadyResponse struct {
	Status       string              `json:"status" example:"ready"`
	Checks       map[string]string   `json:"checks"`
	Capabilities domain.Capabilities `json:"capabilities"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// UserResponse is the authenticated user's profile
// @Description Authenticated user
type UserResponse struct {
	User      *domain.UserSummary `json:"user"`
	ViaAPIKey bool                `json:"via_api_key,omitempty"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Probes the database, redis, the task queue and the AI backends
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse  "A dependency is unavailable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.checks)+1)}
	status := http.StatusOK

	for name, check := range s.checks {
		if check == nil {
			continue
		}
		if err := check.Ping(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	if s.runtime != nil {
		caps, err := s.runtime.CheckHealth(r.Context())
		resp.Capabilities = caps
		if err != nil {
			resp.Checks["ai"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["ai"] = "ok"
		}
	}

	if status != http.StatusOK {
		resp.Status = "unavailable"
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleSwagger serves the registered OpenAPI document
func (s *Server) handleSwagger(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, domain.CodeNotFound, "api documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, doc)
}

// Auth endpoints

// handleRegister godoc
// @Summary      Register
// @Description  Create an account. The API key is returned once and never again.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RegisterRequest  true  "Account details"
// @Success      201      {object}  domain.RegisterResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      409      {object}  ErrorResponse  "Email already registered"
// @Router       /auth/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	resp, err := s.userService.Register(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// handleLogin godoc
// @Summary      User login
// @Description  Authenticate with email and password to receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials or account disabled"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}
	req.UserAgent = r.UserAgent()
	req.IPAddress = clientIP(r)

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid credentials")
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "account disabled")
		default:
			s.writeDomainError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh godoc
// @Summary      Refresh token
// @Description  Exchange a refresh token for a new JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid refresh token"
// @Router       /auth/refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	resp, err := s.authService.RefreshToken(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "invalid refresh token")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLogout godoc
// @Summary      Logout user
// @Description  Invalidate the current session token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authService.Logout(r.Context(), extractBearerToken(r)); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleLogoutAll godoc
// @Summary      Logout everywhere
// @Description  Revoke every session of the current user, this one included
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /auth/logout-all [post]
func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}
	if err := s.authService.LogoutAll(r.Context(), authCtx.UserID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// SessionsResponse lists the caller's sessions
type SessionsResponse struct {
	Sessions []domain.SessionSummary `json:"sessions"`
}

// handleListSessions godoc
// @Summary      List sessions
// @Description  Live sessions of the current user; tokens are never returned
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  SessionsResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /auth/sessions [get]
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}
	sessions, err := s.authService.ListSessions(r.Context(), authCtx.UserID, authCtx.SessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions})
}

// User endpoints

// handleGetMe godoc
// @Summary      Current user
// @Description  Returns the authenticated user's profile
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	user, err := s.userService.Get(r.Context(), authCtx.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user.ToSummary(), ViaAPIKey: authCtx.ViaAPIKey})
}

// handleRotateAPIKey godoc
// @Summary      Rotate API key
// @Description  Replace the caller's API key. The previous key stops working immediately.
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.APIKeyResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /me/api-key [post]
func (s *Server) handleRotateAPIKey(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	resp, err := s.userService.RotateAPIKey(r.Context(), authCtx.UserID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleChangePassword godoc
// @Summary      Change password
// @Description  Change the caller's password and end their other sessions
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.ChangePasswordRequest  true  "Current and new password"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Current password is wrong"
// @Router       /me/password [post]
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	if err := s.authService.ChangePassword(r.Context(), authCtx.UserID, req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Document endpoints

// handleIngestText godoc
// @Summary      Add a text document
// @Description  Store pasted text as title.txt and queue it for ingestion
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.IngestTextRequest  true  "Title and content"
// @Success      202      {object}  domain.IngestReceipt
// @Failure      400      {object}  ErrorResponse  "Blank title or content"
// @Router       /documents/text [post]
func (s *Server) handleIngestText(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	var req driving.IngestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	receipt, err := s.docService.IngestText(r.Context(), authCtx.OwnerID(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, receipt)
}

// handleUpload godoc
// @Summary      Upload a document
// @Description  Upload a PDF, plain text, Markdown or HTML file for ingestion
// @Tags         Documents
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Document"
// @Success      202   {object}  domain.IngestReceipt
// @Failure      400   {object}  ErrorResponse  "Missing, empty, oversized or unsupported file"
// @Router       /documents/upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, domain.CodeValidation,
				fmt.Sprintf("file exceeds the %d byte upload limit", s.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	payload, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "failed to read uploaded file")
		return
	}

	receipt, err := s.docService.IngestFile(r.Context(), authCtx.OwnerID(), driving.IngestFileRequest{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Payload:  payload,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, receipt)
}

// handleListDocuments godoc
// @Summary      List documents
// @Description  The caller's documents, newest first
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (default 50, max 200)"
// @Param        offset  query     int  false  "Offset"
// @Success      200     {array}   domain.DocumentSummary
// @Failure      400     {object}  ErrorResponse  "Invalid paging parameters"
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "limit must be an integer")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "offset must be an integer")
		return
	}

	docs, err := s.docService.List(r.Context(), authCtx.OwnerID(), limit, offset)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// handleGetDocument godoc
// @Summary      Get document
// @Description  One of the caller's documents with its ingestion status
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	doc, err := s.docService.Get(r.Context(), authCtx.OwnerID(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument godoc
// @Summary      Delete document
// @Description  Remove a completed or failed document and its chunks
// @Tags         Documents
// @Security     BearerAuth
// @Param        id   path  string  true  "Document ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      409  {object}  ErrorResponse  "Document is still being ingested"
// @Router       /documents/{id} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	if err := s.docService.Delete(r.Context(), authCtx.OwnerID(), r.PathValue("id")); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRetryDocument godoc
// @Summary      Retry document
// @Description  Re-ingest a failed document as a new document
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  domain.IngestReceipt
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      409  {object}  ErrorResponse  "Document has not failed"
// @Router       /documents/{id}/retry [post]
func (s *Server) handleRetryDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	receipt, err := s.docService.Retry(r.Context(), authCtx.OwnerID(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, receipt)
}

// handleDocumentEvents godoc
// @Summary      Document events
// @Description  Server-Sent Events stream of the caller's document status changes
// @Tags         Documents
// @Produce      text/event-stream
// @Security     BearerAuth
// @Success      200  {object}  domain.DocumentEvent
// @Failure      501  {object}  ErrorResponse  "Events are disabled"
// @Router       /documents/events [get]
func (s *Server) handleDocumentEvents(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	events, cancel, err := s.docService.Subscribe(r.Context(), authCtx.OwnerID())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer cancel()

	// Streams outlive the server write timeout
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Error("failed to encode document event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: document\ndata: %s\n\n", data); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}

// Query endpoints

// handleQuery godoc
// @Summary      Ask a question
// @Description  Retrieve the most relevant chunks of the caller's corpus and synthesize a cited answer
// @Tags         Query
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.QueryRequest  true  "Question and optional top_k"
// @Success      200      {object}  domain.QueryResult
// @Failure      400      {object}  ErrorResponse  "Blank question or invalid top_k"
// @Failure      409      {object}  ErrorResponse  "No documents to query"
// @Failure      502      {object}  ErrorResponse  "Answer generation failed, sources included"
// @Failure      503      {object}  ErrorResponse  "Embedding backend unavailable"
// @Router       /query [post]
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	var req driving.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}

	s.ask(w, r, authCtx.OwnerID(), req)
}

// handleExternalQuery godoc
// @Summary      Ask a question with an API key
// @Description  Same as /query, authenticated by the X-API-Key header or an api_key field
// @Tags         Query
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        X-API-Key  header    string  false  "API key"
// @Param        question   formData  string  false  "Question (form requests)"
// @Success      200        {object}  domain.QueryResult
// @Failure      400        {object}  ErrorResponse  "Blank question"
// @Failure      401        {object}  ErrorResponse  "Missing or invalid API key"
// @Router       /external/query [post]
func (s *Server) handleExternalQuery(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, domain.CodeUnauthorized, "unauthorized")
		return
	}

	var req driving.QueryRequest
	if isFormRequest(r) {
		req.Question = r.FormValue("question")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeValidation, "invalid request body")
		return
	}
	// The external endpoint always uses the configured default
	req.TopK = nil

	s.ask(w, r, authCtx.OwnerID(), req)
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request, ownerID string, req driving.QueryRequest) {
	result, err := s.queryService.Ask(r.Context(), ownerID, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Helper functions

func isFormRequest(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data")
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// statusFor maps an error code to its HTTP status
func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeEmbeddingUnavailable:
		return http.StatusServiceUnavailable
	case domain.CodeGenerationUnavailable:
		return http.StatusBadGateway
	case domain.CodeEmptyCorpus, domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeNotSupported:
		return http.StatusNotImplemented
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError renders err with its code. Internal and index failures
// are logged and answered with a generic message.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	status := statusFor(code)
	resp := ErrorResponse{Code: code, Error: err.Error()}

	switch code {
	case domain.CodeInternal, domain.CodeIndexFailure:
		s.logger.Error("request failed", "code", code, "error", err)
		resp.Error = "internal server error"
		if code == domain.CodeIndexFailure {
			resp.Error = domain.ErrIndexFailure.Error()
		}
	case domain.CodeEmptyCorpus:
		resp.Error = domain.ErrEmptyCorpus.Error()
	case domain.CodeGenerationUnavailable:
		var genErr *domain.GenerationError
		if errors.As(err, &genErr) {
			resp.Sources = genErr.Sources
		}
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code domain.ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Error: message})
}
