package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/taharajati/habit-tracker/internal/logger"
)

// hashAPIKey is the storage key for an API key; raw keys are never stored.
func hashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// truncateHash shortens a key hash for logs.
func truncateHash(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "..."
}

// generateAPIKey issues a new hab_live_ key for the caller. Only the hash is
// stored, so the key is shown exactly once.
func (s *Server) generateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(true, r)
	if userID == "" {
		RecordAuthEvent("apikey", "unauthenticated", "apikey")
		writeErrorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		logger.Error("Failed to generate API key", "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "failed to generate API key")
		return
	}
	apiKey := liveKeyPrefix + hex.EncodeToString(buf)
	keyHash := hashAPIKey(apiKey)

	if err := s.store.PutAPIKey(keyHash, userID); err != nil {
		logger.Error("Failed to store API key", "user_id", userID, "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "failed to store API key")
		return
	}

	RecordAuthEvent("apikey", "created", "apikey")
	logger.InfoContext(r.Context(), "API key created", "user_id", userID, "key_hash", truncateHash(keyHash))
	_ = writeJSON(w, http.StatusOK, APIKeyResponse{APIKey: apiKey})
}

func (s *Server) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(true, r)
	if userID == "" {
		writeErrorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	hashes, err := s.store.ListAPIKeyHashes(userID)
	if err != nil {
		logger.Error("Failed to list API keys", "user_id", userID, "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "failed to list API keys")
		return
	}

	resp := APIKeyListResponse{Keys: make([]APIKeyInfo, 0, len(hashes))}
	for _, h := range hashes {
		resp.Keys = append(resp.Keys, APIKeyInfo{Hash: h})
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

// deleteAPIKey revokes one of the caller's keys by its hash. Keys owned by
// other users are reported as missing.
func (s *Server) deleteAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(true, r)
	if userID == "" {
		writeErrorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keyHash := chi.URLParam(r, "hash")
	hashes, err := s.store.ListAPIKeyHashes(userID)
	if err != nil {
		logger.Error("Failed to list API keys", "user_id", userID, "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "failed to delete API key")
		return
	}
	if !slices.Contains(hashes, keyHash) {
		writeErrorJSON(w, http.StatusNotFound, "api key not found")
		return
	}

	if err := s.store.DeleteAPIKey(keyHash); err != nil {
		logger.Error("Failed to delete API key", "user_id", userID, "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, "failed to delete API key")
		return
	}
	RecordAuthEvent("apikey", "deleted", "apikey")
	w.WriteHeader(http.StatusNoContent)
}
