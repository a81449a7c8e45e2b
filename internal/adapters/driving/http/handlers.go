package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nimblechat/integrations-core/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
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
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database and cache connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Dependency unavailable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Integration endpoints

// InitAuthResponse carries the URL the client opens to start authorization
// @Description Integration authorization URL
type InitAuthResponse struct {
	IntegrationURL string `json:"integrationURL" example:"https://api.example.com/api/integrations/google-workspace?token=abc"`
}

// handleInitAuth godoc
// @Summary      Start integration authorization
// @Description  Mints a single-use init token for the requested service and returns the URL the client should open to continue the OAuth flow.
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Param        service  path      string  true  "Logical service name (gmail, drive, calendar, docs, sheets, chat)"
// @Success      200      {object}  InitAuthResponse
// @Failure      400      {object}  ErrorResponse  "Unknown service"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /api/integrations/google-workspace/{service}/init [post]
func (s *Server) handleInitAuth(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	service := r.PathValue("service")
	if !s.registry.HasService(service) {
		writeError(w, http.StatusBadRequest, "unknown service")
		return
	}

	token, err := s.handshakeService.IssueInit(r.Context(), userID, service)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	integrationURL := fmt.Sprintf("%s/api/integrations/google-workspace?token=%s",
		s.serverBaseURL, url.QueryEscape(token))
	writeJSON(w, http.StatusOK, InitAuthResponse{IntegrationURL: integrationURL})
}

// EnabledResponse lists the services the user's current grant covers
// @Description Enabled integration services
type EnabledResponse struct {
	Enabled []string `json:"enabled" example:"gmail,drive"`
}

// handleEnabled godoc
// @Summary      List enabled services
// @Description  Maps the user's granted scopes back to logical service names. An empty list means the integration is not connected.
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  EnabledResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/integrations/google-workspace/enabled [get]
func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	enabled, err := s.tokenService.EnabledServices(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check integration status")
		return
	}
	if enabled == nil {
		enabled = []string{}
	}

	writeJSON(w, http.StatusOK, EnabledResponse{Enabled: enabled})
}

// handleAccessToken godoc
// @Summary      Get a usable access token
// @Description  Returns a decrypted, non-expired access token for the user named in the X-User-ID header, refreshing it first when needed. Internal callers only.
// @Tags         Integrations
// @Produce      json
// @Param        X-User-ID            header    string  true  "User ID"
// @Param        X-Integrations-Token header    string  true  "Internal shared secret"
// @Success      200  {object}  driving.AccessToken
// @Failure      400  {object}  ErrorResponse  "Token record has no email"
// @Failure      401  {object}  ErrorResponse  "No access token found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/integrations/google-workspace/access_token [get]
func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token, err := s.tokenService.UsableAccessToken(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRefreshUnavailable), errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusUnauthorized, "No access token found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to resolve access token")
		}
		return
	}

	if token.Email == "" {
		writeError(w, http.StatusBadRequest, "no email associated with integration")
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// handleAuthorize godoc
// @Summary      Redirect to the provider consent screen
// @Description  Redeems the single-use init token from the query string and redirects the browser to the provider authorization URL. Failures redirect to the error endpoint with a reason code.
// @Tags         Integrations
// @Param        token  query  string  true  "Init token from the init endpoint"
// @Success      302
// @Router       /api/integrations/google-workspace [get]
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.redirectError(w, r, domain.ReasonMissingToken)
		return
	}

	authURL, err := s.oauthService.BeginAuth(r.Context(), token)
	if err != nil {
		s.redirectError(w, r, domain.ReasonForError(err))
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback godoc
// @Summary      Provider callback
// @Description  Receives the provider redirect, redeems the state, exchanges the authorization code and persists the credentials. Always redirects back to the client.
// @Tags         Integrations
// @Param        state  query  string  false  "OAuth state value"
// @Param        code   query  string  false  "Authorization code"
// @Param        error  query  string  false  "Provider error code"
// @Success      302
// @Router       /api/integrations/google-workspace/callback [get]
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("error") != "" {
		s.redirectError(w, r, domain.ReasonFailedOAuth)
		return
	}

	state := query.Get("state")
	code := query.Get("code")
	if state == "" || code == "" {
		s.redirectError(w, r, domain.ReasonInvalidState)
		return
	}

	if err := s.oauthService.CompleteAuth(r.Context(), state, code); err != nil {
		s.redirectError(w, r, domain.ReasonForError(err))
		return
	}

	http.Redirect(w, r, s.clientBaseURL+"/integrations/google-workspace", http.StatusFound)
}

// handleError godoc
// @Summary      Integration error page
// @Description  Terminal redirect target for failed flows. Forwards the reason code to the client application's integrations error page.
// @Tags         Integrations
// @Param        reason  query  string  false  "Failure reason code"
// @Success      302
// @Router       /api/integrations/error [get]
func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "unknown"
	}
	target := fmt.Sprintf("%s/integrations?error=%s", s.clientBaseURL, url.QueryEscape(reason))
	http.Redirect(w, r, target, http.StatusFound)
}

// handleRevoke godoc
// @Summary      Revoke the integration
// @Description  Revokes the current access token at the provider and deletes both stored token records. Records are kept when the provider rejects the revocation so the user can retry.
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  driving.RevokeResult
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "No integration to revoke"
// @Failure      502  {object}  ErrorResponse  "Provider rejected the revocation"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/integrations/google-workspace/revoke [post]
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := s.tokenService.Revoke(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "no integration to revoke")
		case errors.Is(err, domain.ErrRevokeFailed):
			writeError(w, http.StatusBadGateway, "provider rejected the revocation")
		default:
			writeError(w, http.StatusInternalServerError, "failed to revoke integration")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// redirectError sends the browser through this service's error endpoint,
// which forwards the reason code to the client error page.
func (s *Server) redirectError(w http.ResponseWriter, r *http.Request, reason domain.Reason) {
	target := fmt.Sprintf("%s/api/integrations/error?reason=%s", s.serverBaseURL, url.QueryEscape(string(reason)))
	http.Redirect(w, r, target, http.StatusFound)
}
