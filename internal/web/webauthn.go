// ABOUTME: WebAuthn/Passkey authentication support for merchants
// ABOUTME: Implements registration and login flows using go-webauthn library

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/shopyhq/shopy/internal/gate"
	"github.com/shopyhq/shopy/internal/store"
)

// webAuthnUser wraps a Merchant to implement the webauthn.User interface.
type webAuthnUser struct {
	merchant *store.Merchant
	creds    []*store.WebAuthnCredential
}

func (u *webAuthnUser) WebAuthnID() []byte {
	return []byte(u.merchant.ID)
}

func (u *webAuthnUser) WebAuthnName() string {
	return u.merchant.Email
}

func (u *webAuthnUser) WebAuthnDisplayName() string {
	if u.merchant.DisplayName != "" {
		return u.merchant.DisplayName
	}
	return u.merchant.Email
}

func (u *webAuthnUser) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.creds))
	for i, c := range u.creds {
		creds[i] = webauthn.Credential{
			ID:              c.CredentialID,
			PublicKey:       c.PublicKey,
			AttestationType: c.AttestationType,
			Authenticator: webauthn.Authenticator{
				SignCount: c.SignCount,
			},
		}
		if c.Transports != "" {
			var transports []protocol.AuthenticatorTransport
			_ = json.Unmarshal([]byte(c.Transports), &transports)
			creds[i].Transport = transports
		}
	}
	return creds
}

// sessionData stores WebAuthn session data for in-progress registrations/logins.
type sessionData struct {
	session    *webauthn.SessionData
	merchantID string
	expiresAt  time.Time
}

// webAuthnSessionStore is a simple in-memory session store for WebAuthn
// challenges.
type webAuthnSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData // keyed by session token
	cancel   context.CancelFunc
}

func newWebAuthnSessionStore() *webAuthnSessionStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &webAuthnSessionStore{
		sessions: make(map[string]*sessionData),
		cancel:   cancel,
	}
	go s.cleanupLoop(ctx)
	return s
}

// Close stops the cleanup goroutine.
func (s *webAuthnSessionStore) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *webAuthnSessionStore) Set(token string, session *webauthn.SessionData, merchantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = &sessionData{
		session:    session,
		merchantID: merchantID,
		expiresAt:  time.Now().Add(5 * time.Minute),
	}
}

func (s *webAuthnSessionStore) Get(token string) (*webauthn.SessionData, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.sessions[token]
	if !ok || time.Now().After(data.expiresAt) {
		return nil, "", false
	}
	return data.session, data.merchantID, true
}

func (s *webAuthnSessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *webAuthnSessionStore) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for k, v := range s.sessions {
				if now.After(v.expiresAt) {
					delete(s.sessions, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

// deriveWebAuthnConfig extracts rpID and rpOrigins from a base URL.
// Returns defaults if URL is empty or invalid.
func deriveWebAuthnConfig(baseURL string) (rpID string, rpOrigins []string) {
	rpID = "localhost"
	rpOrigins = []string{"http://localhost", "https://localhost"}

	if baseURL == "" {
		return rpID, rpOrigins
	}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return rpID, rpOrigins
	}

	host := parsed.Hostname()
	if host == "" {
		return rpID, rpOrigins
	}

	rpID = host
	rpOrigins = []string{baseURL}
	if parsed.Scheme == "https" {
		rpOrigins = append(rpOrigins, "http://"+parsed.Host)
	} else {
		rpOrigins = append(rpOrigins, "https://"+parsed.Host)
	}
	return rpID, rpOrigins
}

// initWebAuthn initializes the WebAuthn configuration.
func (s *Server) initWebAuthn() error {
	rpID, rpOrigins := deriveWebAuthnConfig(s.config.BaseURL)

	wconfig := &webauthn.Config{
		RPDisplayName: "shopy",
		RPID:          rpID,
		RPOrigins:     rpOrigins,
	}

	w, err := webauthn.New(wconfig)
	if err != nil {
		return err
	}

	s.webauthn = w
	s.webauthnSessions = newWebAuthnSessionStore()
	return nil
}

// handleWebAuthnRegisterBegin starts the passkey registration process.
func (s *Server) handleWebAuthnRegisterBegin(w http.ResponseWriter, r *http.Request) {
	if s.webauthn == nil {
		http.Error(w, "WebAuthn not configured", http.StatusServiceUnavailable)
		return
	}

	p := principalFromContext(r)
	merchant, err := s.store.GetMerchant(r.Context(), p.ID)
	if err != nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	// Existing credentials are excluded from re-registration
	existingCreds, err := s.store.GetWebAuthnCredentialsByMerchant(r.Context(), merchant.ID)
	if err != nil {
		s.logger.Error("failed to get existing credentials", "error", err)
		existingCreds = nil
	}

	waUser := &webAuthnUser{merchant: merchant, creds: existingCreds}

	options, session, err := s.webauthn.BeginRegistration(waUser)
	if err != nil {
		s.logger.Error("failed to begin registration", "error", err)
		http.Error(w, "Failed to start registration", http.StatusInternalServerError)
		return
	}

	sessionToken, err := generateSecureToken(32)
	if err != nil {
		http.Error(w, "Failed to generate session", http.StatusInternalServerError)
		return
	}
	s.webauthnSessions.Set(sessionToken, session, merchant.ID)

	response := struct {
		Options      *protocol.CredentialCreation `json:"options"`
		SessionToken string                       `json:"sessionToken"`
	}{
		Options:      options,
		SessionToken: sessionToken,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}

// webAuthnFinishRequest holds the common shape of finish-step requests.
type webAuthnFinishRequest struct {
	sessionToken string
	response     json.RawMessage
}

func parseWebAuthnFinishRequest(r *http.Request) (*webAuthnFinishRequest, error) {
	var req struct {
		SessionToken string          `json:"sessionToken"`
		Response     json.RawMessage `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return &webAuthnFinishRequest{sessionToken: req.SessionToken, response: req.Response}, nil
}

// storeWebAuthnCredential creates and stores a WebAuthn credential.
func (s *Server) storeWebAuthnCredential(ctx context.Context, merchantID string, cred *webauthn.Credential) (string, error) {
	credID, err := generateSecureToken(16)
	if err != nil {
		return "", err
	}

	transportsJSON, err := json.Marshal(cred.Transport)
	if err != nil {
		return "", err
	}

	storeCred := &store.WebAuthnCredential{
		ID:              credID,
		MerchantID:      merchantID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		Transports:      string(transportsJSON),
		SignCount:       cred.Authenticator.SignCount,
		CreatedAt:       time.Now(),
	}

	if err := s.store.CreateWebAuthnCredential(ctx, storeCred); err != nil {
		return "", err
	}
	return credID, nil
}

// handleWebAuthnRegisterFinish completes the passkey registration process.
func (s *Server) handleWebAuthnRegisterFinish(w http.ResponseWriter, r *http.Request) {
	if s.webauthn == nil {
		http.Error(w, "WebAuthn not configured", http.StatusServiceUnavailable)
		return
	}

	p := principalFromContext(r)
	merchant, err := s.store.GetMerchant(r.Context(), p.ID)
	if err != nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	req, err := parseWebAuthnFinishRequest(r)
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	session, sessionMerchantID, ok := s.webauthnSessions.Get(req.sessionToken)
	if !ok || sessionMerchantID != merchant.ID {
		http.Error(w, "Invalid or expired session", http.StatusBadRequest)
		return
	}
	s.webauthnSessions.Delete(req.sessionToken)

	parsedResponse, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.response))
	if err != nil {
		s.logger.Error("failed to parse registration response", "error", err)
		http.Error(w, "Invalid response", http.StatusBadRequest)
		return
	}

	existingCreds, _ := s.store.GetWebAuthnCredentialsByMerchant(r.Context(), merchant.ID)
	waUser := &webAuthnUser{merchant: merchant, creds: existingCreds}

	credential, err := s.webauthn.CreateCredential(waUser, *session, parsedResponse)
	if err != nil {
		s.logger.Error("failed to create credential", "error", err)
		http.Error(w, "Failed to verify credential", http.StatusBadRequest)
		return
	}

	credID, err := s.storeWebAuthnCredential(r.Context(), merchant.ID, credential)
	if err != nil {
		s.logger.Error("failed to store credential", "error", err)
		http.Error(w, "Failed to save credential", http.StatusInternalServerError)
		return
	}

	s.logger.Info("passkey registered", "merchant_id", merchant.ID, "credential_id", credID)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}

// handleWebAuthnLoginBegin starts the passkey login process.
func (s *Server) handleWebAuthnLoginBegin(w http.ResponseWriter, r *http.Request) {
	if s.webauthn == nil {
		http.Error(w, "WebAuthn not configured", http.StatusServiceUnavailable)
		return
	}

	// Discoverable credentials (resident keys) need no email up front
	options, session, err := s.webauthn.BeginDiscoverableLogin()
	if err != nil {
		s.logger.Error("failed to begin login", "error", err)
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	sessionToken, err := generateSecureToken(32)
	if err != nil {
		http.Error(w, "Failed to generate session", http.StatusInternalServerError)
		return
	}
	// No merchant ID yet - determined from the credential at finish
	s.webauthnSessions.Set(sessionToken, session, "")

	response := struct {
		Options      *protocol.CredentialAssertion `json:"options"`
		SessionToken string                        `json:"sessionToken"`
	}{
		Options:      options,
		SessionToken: sessionToken,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}

// lookupCredentialMerchant finds the credential and merchant for a login attempt.
func (s *Server) lookupCredentialMerchant(ctx context.Context, credentialID []byte) (*store.WebAuthnCredential, *store.Merchant, error) {
	storedCred, err := s.store.GetWebAuthnCredentialByCredentialID(ctx, credentialID)
	if err != nil {
		return nil, nil, err
	}
	merchant, err := s.store.GetMerchant(ctx, storedCred.MerchantID)
	if err != nil {
		return nil, nil, err
	}
	return storedCred, merchant, nil
}

// makeCredentialFinder creates a credential finder function for WebAuthn validation.
func makeCredentialFinder(waUser *webAuthnUser, merchantID string) func(rawID, userHandle []byte) (webauthn.User, error) {
	return func(rawID, userHandle []byte) (webauthn.User, error) {
		if len(userHandle) > 0 && string(userHandle) != merchantID {
			return nil, errors.New("user handle mismatch")
		}
		return waUser, nil
	}
}

// handleWebAuthnLoginFinish completes the passkey login process.
func (s *Server) handleWebAuthnLoginFinish(w http.ResponseWriter, r *http.Request) {
	if s.webauthn == nil {
		http.Error(w, "WebAuthn not configured", http.StatusServiceUnavailable)
		return
	}

	req, err := parseWebAuthnFinishRequest(r)
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	session, _, ok := s.webauthnSessions.Get(req.sessionToken)
	if !ok {
		http.Error(w, "Invalid or expired session", http.StatusBadRequest)
		return
	}
	s.webauthnSessions.Delete(req.sessionToken)

	parsedResponse, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.response))
	if err != nil {
		s.logger.Error("failed to parse login response", "error", err)
		http.Error(w, "Invalid response", http.StatusBadRequest)
		return
	}

	storedCred, merchant, err := s.lookupCredentialMerchant(r.Context(), parsedResponse.RawID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Unknown credential", http.StatusUnauthorized)
		} else {
			s.logger.Error("failed to lookup credential", "error", err)
			http.Error(w, "Failed to verify credential", http.StatusInternalServerError)
		}
		return
	}

	allCreds, _ := s.store.GetWebAuthnCredentialsByMerchant(r.Context(), merchant.ID)
	waUser := &webAuthnUser{merchant: merchant, creds: allCreds}

	credential, err := s.webauthn.ValidateDiscoverableLogin(makeCredentialFinder(waUser, merchant.ID), *session, parsedResponse)
	if err != nil {
		s.logger.Error("failed to validate login", "error", err)
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	if err := s.store.UpdateWebAuthnCredentialSignCount(r.Context(), storedCred.ID, credential.Authenticator.SignCount); err != nil {
		s.logger.Warn("failed to update sign count", "error", err)
	}

	sess, err := s.identity.StartSession(r.Context(), merchant)
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	s.setSessionCookie(w, r, sess)

	s.logger.Info("passkey login successful", "merchant_id", merchant.ID)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok", "redirect": gate.PathDashboard}); err != nil {
		s.logger.Debug("failed to encode response", "error", err)
	}
}
