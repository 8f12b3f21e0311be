package creds

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/joho/godotenv"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/term"
)

const credsDir = "./credentials"

// OwnerCredentials is the output of the init-owner flow. The mnemonic is
// shown once and never stored; the API key is derived from it so the
// mnemonic alone can recover access.
type OwnerCredentials struct {
	OwnerAddress string
	Mnemonic     string
	APIKey       string
}

// GenerateOwnerCredentials creates a recovery mnemonic and derives the
// owner API key from it.
func GenerateOwnerCredentials(ownerAddress string) (*OwnerCredentials, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, fmt.Errorf("error generating entropy: %v", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("error generating mnemonic: %v", err)
	}

	return &OwnerCredentials{
		OwnerAddress: ownerAddress,
		Mnemonic:     mnemonic,
		APIKey:       DeriveAPIKey(mnemonic),
	}, nil
}

// DeriveAPIKey recomputes the API key from a recovery mnemonic.
func DeriveAPIKey(mnemonic string) string {
	seed := bip39.NewSeed(mnemonic, "")
	digest := sha256.Sum256(seed)
	return hex.EncodeToString(digest[:])
}

// ValidMnemonic reports whether phrase is a well-formed recovery mnemonic.
func ValidMnemonic(phrase string) bool {
	return bip39.IsMnemonicValid(phrase)
}

func encrypt(plaintext string, password string) string {
	key, salt := deriveKey(password, nil)
	iv := make([]byte, 12)
	rand.Read(iv)

	block, _ := aes.NewCipher(key)
	aesgcm, _ := cipher.NewGCM(block)
	ciphertext := aesgcm.Seal(nil, iv, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(salt) + ":" +
		base64.StdEncoding.EncodeToString(iv) + ":" +
		base64.StdEncoding.EncodeToString(ciphertext)
}

func decrypt(ciphertext string, password string) (string, error) {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid ciphertext format")
	}

	salt, _ := base64.StdEncoding.DecodeString(parts[0])
	iv, _ := base64.StdEncoding.DecodeString(parts[1])
	encryptedData, _ := base64.StdEncoding.DecodeString(parts[2])

	key, _ := deriveKey(password, salt)
	block, _ := aes.NewCipher(key)
	aesgcm, _ := cipher.NewGCM(block)
	plaintext, err := aesgcm.Open(nil, iv, encryptedData, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

func deriveKey(password string, salt []byte) ([]byte, []byte) {
	if salt == nil {
		salt = make([]byte, 32)
		if _, err := rand.Read(salt); err != nil {
			panic(err)
		}
	}

	key, err := scrypt.Key([]byte(password), salt, 1<<15, 8, 1, 32)
	if err != nil {
		panic(err)
	}

	return key, salt
}

// SaveOwnerCredentials encrypts the API key under password and writes the
// credentials env file for serviceName.
func SaveOwnerCredentials(serviceName string, c *OwnerCredentials, password string) error {
	if err := os.MkdirAll(credsDir, os.ModePerm); err != nil {
		return fmt.Errorf("error creating credentials directory: %v", err)
	}

	envFile := filepath.Join(credsDir, serviceName+".env")
	err := godotenv.Write(map[string]string{
		"OWNER_ADDRESS":     c.OwnerAddress,
		"ENCRYPTED_API_KEY": encrypt(c.APIKey, password),
	}, envFile)
	if err != nil {
		return fmt.Errorf("error saving encrypted credentials: %v", err)
	}

	return nil
}

// LoadOwnerCredentials reads the credentials env file and decrypts the API
// key with password.
func LoadOwnerCredentials(serviceName, password string) (ownerAddress, apiKey string, err error) {
	envFile := filepath.Join(credsDir, serviceName+".env")
	if err := godotenv.Load(envFile); err != nil {
		return "", "", fmt.Errorf("error loading credentials file: %v", err)
	}

	ownerAddress = os.Getenv("OWNER_ADDRESS")
	encryptedAPIKey := os.Getenv("ENCRYPTED_API_KEY")
	if ownerAddress == "" || encryptedAPIKey == "" {
		return "", "", fmt.Errorf("encrypted credentials not found")
	}

	apiKey, err = decrypt(encryptedAPIKey, password)
	if err != nil {
		return "", "", fmt.Errorf("error decrypting API key: %v", err)
	}

	return ownerAddress, apiKey, nil
}

// CopyAPIKeyToClipboard puts the API key on the system clipboard so the
// owner can paste it into a client without it hitting the shell history.
func CopyAPIKeyToClipboard(apiKey string) {
	if err := clipboard.WriteAll(apiKey); err != nil {
		log.Printf("Could not copy API key to clipboard: %v", err)
	}
}

// PromptPassword reads a password from the terminal without echoing it.
func PromptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("error reading password: %v", err)
	}
	return strings.TrimSpace(string(passwordBytes)), nil
}
