package server

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"

	"github.com/taharajati/habit-tracker/internal/config"
	"github.com/taharajati/habit-tracker/internal/logger"
)

const (
	sessionMaxAge = 24 * time.Hour
	loginStateTTL = 5 * time.Minute
	liveKeyPrefix = "hab_live_"
)

type userCtxKey struct{}

type User struct {
	Subject string
	Email   string
	UserID  string
	Claims  map[string]any
}

// StateStore holds pending login attempts keyed by their OAuth2 state value.
// Expired attempts are swept whenever a new one is stored.
type StateStore struct {
	ttl time.Duration
	mu  sync.Mutex
	m   map[string]authState
}

type authState struct {
	Verifier string
	Return   string
	expires  time.Time
}

func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{ttl: ttl, m: make(map[string]authState)}
}

// ConfigureOIDCProviders discovers every configured identity provider and
// returns them with the codec used for session cookies.
func ConfigureOIDCProviders(cfg *config.Config) (map[string]*AuthProvider, *securecookie.SecureCookie, error) {
	hashKey, blockKey := securecookie.GenerateRandomKey(64), securecookie.GenerateRandomKey(32)
	if hashKey == nil || blockKey == nil {
		return nil, nil, fmt.Errorf("failed to generate secure cookie keys")
	}
	cookies := securecookie.New(hashKey, blockKey).MaxAge(int(sessionMaxAge.Seconds()))

	providers := make(map[string]*AuthProvider, len(cfg.OIDCProviders))
	for _, p := range cfg.OIDCProviders {
		prov, err := oidc.NewProvider(context.Background(), p.IssuerURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create OIDC provider %s: %w", p.Id, err)
		}
		providers[p.Id] = &AuthProvider{
			name: p.Name,
			oauth2: &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				Endpoint:     prov.Endpoint(),
				RedirectURL:  p.RedirectURL,
				Scopes:       p.Scopes,
			},
			oidcProv:   prov,
			idVerifier: prov.Verifier(&oidc.Config{ClientID: p.ClientID}),
			state:      NewStateStore(loginStateTTL),
		}
		logger.Info("OIDC provider configured", "id", p.Id, "issuer", p.IssuerURL)
	}
	return providers, cookies, nil
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serve := func(u *User) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, u)))
		}

		// session cookie first, then the Authorization header
		providerID, rawIDToken := s.sessionToken(r)
		if rawIDToken == "" {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			switch {
			case !ok:
			case strings.HasPrefix(token, liveKeyPrefix):
				u, ok := s.authenticateAPIKey(token)
				if !ok {
					RecordAuthEvent("verification", "failed", "apikey")
					s.handleAuthFailure(w, r, false)
					return
				}
				RecordAuthEvent("verification", "success", "apikey")
				serve(u)
				return
			case strings.Contains(token, ":"):
				if pID, raw, err := parseProviderToken(token); err == nil && s.authProviders[pID] != nil {
					providerID, rawIDToken = pID, raw
				} else {
					logger.Debug("Unusable provider token", "provider", pID, "error", err)
				}
			case s.cfg.JWTSecret != "":
				userID, err := parseServiceToken(s.cfg.JWTSecret, token)
				if err != nil {
					logger.Debug("Service token rejected", "error", err)
					RecordAuthEvent("verification", "failed", "jwt")
					s.handleAuthFailure(w, r, false)
					return
				}
				RecordAuthEvent("verification", "success", "jwt")
				serve(&User{UserID: userID, Subject: userID, Claims: map[string]any{"auth_method": "service_token"}})
				return
			}
		}

		if rawIDToken == "" {
			RecordAuthEvent("verification", "missing_token", "unknown")
			s.handleAuthFailure(w, r, false)
			return
		}

		idTok, err := s.verifyIDToken(w, r, providerID, rawIDToken)
		if err != nil {
			s.handleAuthFailure(w, r, true)
			return
		}
		var claims map[string]any
		if err := idTok.Claims(&claims); err != nil {
			logger.Error("Failed to extract claims from token", "error", err)
			s.handleAuthFailure(w, r, true)
			return
		}
		serve(&User{
			Subject: idTok.Subject,
			Email:   strClaim(claims, "email"),
			UserID:  userIDFromClaims(claims),
			Claims:  claims,
		})
	})
}

// sessionToken returns the provider and ID token held by a valid session
// cookie for a configured provider, or empty strings.
func (s *Server) sessionToken(r *http.Request) (providerID, rawIDToken string) {
	c, err := r.Cookie("session")
	if err != nil || s.sessionCookie == nil {
		return "", ""
	}
	var prefixed string
	if err := s.sessionCookie.Decode("session", c.Value, &prefixed); err != nil {
		logger.Debug("Failed to decode session cookie", "error", err)
		return "", ""
	}
	providerID, rawIDToken, err = parseProviderToken(prefixed)
	if err != nil || s.authProviders[providerID] == nil {
		logger.Debug("Unusable session token", "provider", providerID, "error", err)
		return "", ""
	}
	return providerID, rawIDToken
}

// setSessionCookie stores the provider-prefixed ID token in the session
// cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter, providerID, rawIDToken string) error {
	val, err := s.sessionCookie.Encode("session", providerID+":"+rawIDToken)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionMaxAge.Seconds()),
	})
	return nil
}

// verifyIDToken checks the token with its provider. A token that fails is
// swapped for one obtained with the user's stored refresh token, and the
// session cookie is rewritten to carry it.
func (s *Server) verifyIDToken(w http.ResponseWriter, r *http.Request, providerID, rawIDToken string) (*oidc.IDToken, error) {
	verifier := s.authProviders[providerID].idVerifier
	idTok, err := verifier.Verify(r.Context(), rawIDToken)
	if err == nil {
		RecordAuthEvent("verification", "success", providerID)
		return idTok, nil
	}
	logger.Debug("ID token verification failed, attempting refresh", "provider", providerID, "error", err)
	RecordAuthEvent("verification", "failed", providerID)

	fresh, ok := s.tryRefreshToken(r.Context(), providerID, rawIDToken)
	if !ok {
		RecordAuthEvent("refresh", "failed", providerID)
		return nil, err
	}
	if idTok, err = verifier.Verify(r.Context(), fresh); err != nil {
		logger.Debug("Refreshed ID token failed verification", "error", err)
		RecordAuthEvent("refresh", "verification_failed", providerID)
		return nil, err
	}
	RecordAuthEvent("refresh", "success", providerID)
	if err := s.setSessionCookie(w, providerID, fresh); err != nil {
		logger.Error("Failed to encode refreshed session cookie", "error", err)
		return nil, err
	}
	return idTok, nil
}

// parseProviderToken splits a "provider:jwt" token.
func parseProviderToken(token string) (providerID, jwt string, err error) {
	providerID, jwt, ok := strings.Cut(token, ":")
	switch {
	case !ok:
		return "", "", fmt.Errorf("invalid token format: expected 'provider:jwt'")
	case providerID == "":
		return "", "", fmt.Errorf("empty provider ID")
	case jwt == "":
		return "", "", fmt.Errorf("empty JWT token")
	}
	return providerID, jwt, nil
}

func strClaim(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}

// userIDFromClaims generates a consistent user ID from OIDC token claims
func userIDFromClaims(claims map[string]any) string {
	iss, ok := claims["iss"].(string)
	if !ok {
		return ""
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return ""
	}

	userInfo := iss + "|" + sub
	hash := sha256.Sum256([]byte(userInfo))
	return fmt.Sprintf("user-%x", hash[:8])
}

// userIDFromContext extracts user ID from authenticated request context
func userIDFromContext(authEnabled bool, r *http.Request) string {
	if !authEnabled {
		logger.Debug("Auth disabled, using anonymous userid")
		return "anonymous"
	}

	user, ok := r.Context().Value(userCtxKey{}).(*User)
	if !ok {
		logger.Error("No user in context")
		return ""
	}

	return user.UserID
}

// parseTokenClaims reads the claims of a signed but possibly expired ID token.
func (s *Server) parseTokenClaims(ctx context.Context, providerID, token string) (map[string]any, error) {
	p := s.authProviders[providerID]
	verifier := p.oidcProv.Verifier(&oidc.Config{ClientID: p.oauth2.ClientID, SkipExpiryCheck: true})
	idTok, err := verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expired token: %w", err)
	}
	var claims map[string]any
	err = idTok.Claims(&claims)
	return claims, err
}

func (s *StateStore) Put(key string, v authState) {
	now := time.Now()
	v.expires = now.Add(s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, old := range s.m {
		if now.After(old.expires) {
			delete(s.m, k)
		}
	}
	s.m[key] = v
}

// GetAndDelete consumes a pending login attempt. Each state is usable once.
func (s *StateStore) GetAndDelete(key string) (authState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	delete(s.m, key)
	if !ok || time.Now().After(v.expires) {
		return authState{}, false
	}
	return v, true
}

// handleAuthFailure redirects browsers to the login page and answers API
// clients with 401. clearCookie drops a session whose token is no longer
// usable.
func (s *Server) handleAuthFailure(w http.ResponseWriter, r *http.Request, clearCookie bool) {
	if clearCookie {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "", Path: "/", MaxAge: -1})
	}

	accept := r.Header.Get("Accept")
	if r.Method == http.MethodGet && (accept == "" || strings.Contains(accept, "text/html")) {
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return
	}
	challenge := `Bearer realm="habits"`
	if clearCookie {
		challenge = `Bearer error="invalid_token"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// tryRefreshToken exchanges the stored refresh token of the user named by an
// expired ID token for a fresh ID token. A refresh token the provider rejects
// is dropped.
func (s *Server) tryRefreshToken(ctx context.Context, providerID, expiredIDToken string) (string, bool) {
	claims, err := s.parseTokenClaims(ctx, providerID, expiredIDToken)
	if err != nil {
		logger.Debug("Expired token unreadable", "provider", providerID, "error", err)
		return "", false
	}
	userID := userIDFromClaims(claims)
	if userID == "" {
		return "", false
	}

	stored, exists, err := s.store.GetRefreshToken(userID)
	if err != nil {
		logger.Error("Failed to load refresh token", "userID", userID, "error", err)
		return "", false
	}
	if !exists {
		return "", false
	}

	fresh, err := s.authProviders[providerID].oauth2.TokenSource(ctx, stored).Token()
	if err != nil {
		logger.Debug("Token refresh failed", "userID", userID, "error", err)
		if delErr := s.store.DeleteRefreshToken(userID); delErr != nil {
			logger.Error("Failed to delete refresh token", "userID", userID, "error", delErr)
		}
		return "", false
	}
	if err := s.store.PutRefreshToken(userID, fresh); err != nil {
		logger.Error("Failed to persist refresh token", "userID", userID, "error", err)
	}

	idToken, ok := fresh.Extra("id_token").(string)
	return idToken, ok && idToken != ""
}

// authenticateAPIKey resolves an API key to its owner. Keys carry no OIDC
// identity, so Subject only names the key hash prefix.
func (s *Server) authenticateAPIKey(apiKey string) (*User, bool) {
	keyHash := hashAPIKey(apiKey)
	userID, found, err := s.store.GetAPIKey(keyHash)
	if err != nil {
		logger.Error("Failed to lookup API key", "error", err)
		return nil, false
	}
	if !found {
		logger.Debug("API key not found", "keyHash", truncateHash(keyHash))
		return nil, false
	}
	return &User{
		UserID:  userID,
		Subject: "apikey:" + truncateHash(keyHash),
		Claims:  map[string]any{"auth_method": "api_key"},
	}, true
}
