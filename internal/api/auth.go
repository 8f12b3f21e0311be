package api

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/viper"
	"golang.org/x/crypto/scrypt"

	escrowdb "github.com/passlock-labs/escrow-wallet.git/internal/database"
)

const challengeTTL = 2 * time.Minute

func (a *API) HandleChallengeRequest(w http.ResponseWriter, _ *http.Request) {
	log.Println("Challenge requested...")

	challenge, hash, err := generateChallenge()
	if err != nil {
		http.Error(w, "Failed to generate challenge", http.StatusInternalServerError)
		return
	}

	newChallenge := escrowdb.Challenge{
		Challenge: challenge,
		Hash:      hash,
		Status:    "unused",
		CreatedAt: time.Now(),
	}

	if err := escrowdb.Backend.SaveChallenge(newChallenge); err != nil {
		http.Error(w, "Failed to save challenge", http.StatusInternalServerError)
		return
	}

	// Opportunistic cleanup of stale challenges
	if err := escrowdb.Backend.ExpireOldChallenges(challengeTTL); err != nil {
		log.Printf("Error expiring old challenges: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"challenge": challenge}); err != nil {
		http.Error(w, "Failed to encode challenge", http.StatusInternalServerError)
	}
}

func generateChallenge() (string, string, error) {
	timestamp := time.Now().Format(time.RFC3339Nano)
	letters := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	challenge := make([]byte, 12)
	_, err := rand.Read(challenge)
	if err != nil {
		return "", "", err
	}
	for i := range challenge {
		challenge[i] = letters[challenge[i]%byte(len(letters))]
	}
	fullChallenge := fmt.Sprintf("%s-%s", string(challenge), timestamp)
	hash := sha256.Sum256([]byte(fullChallenge))
	return fullChallenge, hex.EncodeToString(hash[:]), nil
}

func (a *API) VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	log.Println("verifying challenge")
	var verifyPayload struct {
		Challenge string `json:"challenge"`
		APIKey    string `json:"api_key"`
	}

	if err := json.NewDecoder(r.Body).Decode(&verifyPayload); err != nil {
		http.Error(w, "Cannot parse JSON", http.StatusBadRequest)
		return
	}

	challengeHash := sha256.Sum256([]byte(verifyPayload.Challenge))
	hashString := hex.EncodeToString(challengeHash[:])
	challenge, err := escrowdb.Backend.GetChallenge(hashString)
	if err != nil || challenge.Status != "unused" {
		http.Error(w, "Invalid or expired challenge", http.StatusUnauthorized)
		return
	}

	if time.Since(challenge.CreatedAt) > challengeTTL {
		if err := escrowdb.Backend.MarkChallengeUsed(challenge.Hash); err != nil {
			log.Printf("Error marking challenge as used: %v", err)
		}
		http.Error(w, "Challenge expired", http.StatusUnauthorized)
		return
	}

	if !verifyAPIKey(verifyPayload.APIKey) {
		http.Error(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	if err := escrowdb.Backend.MarkChallengeUsed(challenge.Hash); err != nil {
		http.Error(w, "Failed to mark challenge as used", http.StatusInternalServerError)
		return
	}

	tokenString, err := GenerateJWT(a.Ledger.Owner())
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]string{"token": tokenString}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode token", http.StatusInternalServerError)
	}
}

// verifyAPIKey checks the presented key against the scrypt digest stored in
// the config as "base64(salt):base64(digest)".
func verifyAPIKey(apiKey string) bool {
	stored := viper.GetString("api_key_hash")
	if stored == "" || apiKey == "" {
		return false
	}

	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		log.Println("Malformed api_key_hash in config")
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	digest, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	derived, err := scrypt.Key([]byte(apiKey), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(derived, digest) == 1
}

// HashAPIKey derives the config representation of an API key. Used by the
// owner initialization flow.
func HashAPIKey(apiKey string) (string, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	digest, err := scrypt.Key([]byte(apiKey), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt) + ":" +
		base64.StdEncoding.EncodeToString(digest), nil
}

// Function to generate JWT token (called upon successful login)
func GenerateJWT(userID string) (string, error) {
	expirationTime := time.Now().Add(15 * time.Minute)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	signingKey := GetJWTKey()
	if signingKey == nil {
		return "", fmt.Errorf("JWT signing key not available")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(signingKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
