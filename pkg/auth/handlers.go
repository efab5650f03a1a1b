package auth

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/usos-inventory/server/pkg/apperr"
	"github.com/usos-inventory/server/pkg/httputil"
	"github.com/usos-inventory/server/pkg/observability"
	"github.com/usos-inventory/server/pkg/usos"
)

// Handlers implements the login, callback, status, and logout endpoints
type Handlers struct {
	client     *usos.Client
	reconciler *Reconciler
	sessions   *SessionManager
	tokens     *TokenStore

	baseURL     string
	frontendURL string
	metrics     *observability.Metrics
}

// NewHandlers creates the authentication handlers
func NewHandlers(client *usos.Client, reconciler *Reconciler, sessions *SessionManager,
	tokens *TokenStore, baseURL, frontendURL string, metrics *observability.Metrics) *Handlers {
	return &Handlers{
		client:      client,
		reconciler:  reconciler,
		sessions:    sessions,
		tokens:      tokens,
		baseURL:     baseURL,
		frontendURL: frontendURL,
		metrics:     metrics,
	}
}

// RegisterPublicRoutes registers routes reachable without authentication
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/oauth/login/", h.Login).Methods("GET")
	router.HandleFunc("/oauth/callback/", h.Callback).Methods("GET")
}

// RegisterProtectedRoutes registers routes that require a principal
func (h *Handlers) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/auth/status/", h.Status).Methods("GET")
	router.HandleFunc("/dashboard/", h.Dashboard).Methods("GET")
	// GET logout is kept for backend testing only; clients should POST.
	router.HandleFunc("/logout/", h.Logout).Methods("POST", "GET")
}

// Login initiates the provider handshake: obtains a request token,
// stores the handshake state, and redirects to the authorization URL.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	channel := ParseChannel(r.URL.Query().Get("source"))

	callbackURL := usos.AuthorizationCallbackURL(h.baseURL, string(channel))
	temp, authorizationURL, err := h.client.RequestToken(r.Context(), callbackURL)
	if err != nil {
		logger.WithError(err).Error("failed to obtain request token")
		h.countProviderError("request_token")
		h.countLogin(channel, "failure")
		httputil.WriteAppError(w, err)
		return
	}

	stateID, err := h.sessions.CreateLoginState(r.Context(), &LoginState{
		Temp:    *temp,
		Channel: channel,
	})
	if err != nil {
		logger.WithError(err).Error("failed to store login state")
		httputil.WriteInternalError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    stateID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	http.Redirect(w, r, authorizationURL, http.StatusFound)
}

// Callback completes the handshake: exchanges the verifier for an access
// credential, fetches the profile, reconciles the principal, and
// dispatches on the channel captured at handshake start.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	state, channel, err := h.consumeState(r)
	if err != nil {
		logger.WithError(err).Warn("callback without valid handshake state")
		h.countLogin(channel, "failure")
		httputil.WriteAppError(w, err)
		return
	}

	verifier := r.URL.Query().Get("oauth_verifier")
	cred, err := h.client.AccessToken(r.Context(), &state.Temp, verifier)
	if err != nil {
		logger.WithError(err).Error("access token exchange failed")
		h.countProviderError("access_token")
		h.countLogin(channel, "failure")
		httputil.WriteAppError(w, err)
		return
	}

	profile, err := h.client.FetchProfile(r.Context(), cred)
	if err != nil {
		logger.WithError(err).Error("profile fetch failed")
		h.countProviderError("profile")
		h.countLogin(channel, "failure")
		httputil.WriteAppError(w, err)
		return
	}

	principal, created, err := h.reconciler.Reconcile(r.Context(), profile)
	if err != nil {
		logger.WithError(err).Error("principal reconciliation failed")
		h.countLogin(channel, "failure")
		httputil.WriteAppError(w, err)
		return
	}
	if created {
		logger.WithField("username", principal.Username).Info("created new principal")
	}

	h.countLogin(channel, "success")

	// Channel dispatch: the one place the delivery mode branches.
	switch channel {
	case ChannelMobile:
		token, err := h.tokens.GetOrCreate(r.Context(), principal.ID)
		if err != nil {
			logger.WithError(err).Error("token issuance failed")
			httputil.WriteInternalError(w, err)
			return
		}
		httputil.WriteSuccess(w, mobileLoginResponse{
			ID:        principal.ID,
			Username:  principal.Username,
			FirstName: principal.FirstName,
			LastName:  principal.LastName,
			Email:     principal.Email,
			IsStaff:   principal.IsStaff,
			Token:     token.Key,
		})

	case ChannelBackendTest:
		if !h.establishSession(w, r, principal, profile) {
			return
		}
		http.Redirect(w, r, "/dashboard/", http.StatusFound)

	default:
		if !h.establishSession(w, r, principal, profile) {
			return
		}
		http.Redirect(w, r, h.frontendURL, http.StatusFound)
	}
}

// consumeState reads the state cookie and consumes the stored handshake
// state. Absence of either means the session expired between handshake
// steps or the callback was not preceded by a login.
func (h *Handlers) consumeState(r *http.Request) (*LoginState, Channel, error) {
	// The channel also rides on the callback URL so that failures before
	// state resolution still count against the right channel.
	channel := ParseChannel(r.URL.Query().Get("source"))

	cookie, err := r.Cookie(StateCookie)
	if err != nil || cookie.Value == "" {
		return nil, channel, apperr.New(apperr.KindMissingCredential,
			"missing token or verifier in session or callback parameters")
	}

	state, err := h.sessions.ConsumeLoginState(r.Context(), cookie.Value)
	if err != nil {
		return nil, channel, apperr.New(apperr.KindMissingCredential,
			"missing token or verifier in session or callback parameters")
	}
	return state, state.Channel, nil
}

// establishSession creates the server-side session and sets its cookie.
// Returns false after writing an error response.
func (h *Handlers) establishSession(w http.ResponseWriter, r *http.Request, principal *Principal, profile *usos.Profile) bool {
	snapshot, err := json.Marshal(profile)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return false
	}

	sessionID, err := h.sessions.CreateSession(r.Context(), principal.ID, snapshot)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to create session")
		httputil.WriteInternalError(w, err)
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// The handshake state cookie is spent.
	http.SetCookie(w, &http.Cookie{Name: StateCookie, MaxAge: -1, Path: "/"})
	return true
}

// Status returns the authenticated principal's attributes
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, principal)
}

// Dashboard is a diagnostic endpoint returning the principal and the
// profile snapshot captured at login. Not part of the security contract.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r)
	if principal == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	response := map[string]interface{}{"user": principal}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if session, err := h.sessions.GetSession(r.Context(), cookie.Value); err == nil && len(session.Profile) > 0 {
			response["profile"] = json.RawMessage(session.Profile)
		}
	}
	httputil.WriteSuccess(w, response)
}

// Logout flushes the server-side session and clears its cookie. Bearer
// tokens are not revoked; mobile clients discard their token instead.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.DeleteSession(r.Context(), cookie.Value); err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("failed to delete session")
		}
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, MaxAge: -1, Path: "/"})
	httputil.WriteSuccess(w, map[string]string{"message": "Successfully logged out."})
}

func (h *Handlers) countLogin(channel Channel, outcome string) {
	if h.metrics != nil {
		h.metrics.LoginAttemptsTotal.WithLabelValues(string(channel), outcome).Inc()
	}
}

func (h *Handlers) countProviderError(phase string) {
	if h.metrics != nil {
		h.metrics.ProviderErrors.WithLabelValues(phase).Inc()
	}
}

// mobileLoginResponse is the JSON body returned to mobile-channel logins
type mobileLoginResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	IsStaff   bool   `json:"is_staff"`
	Token     string `json:"token"`
}
