package auth

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

const (
	serviceName  = "mangactl"
	tokenAccount = "api-token"
	tokenEnvVar  = "MANGACTL_TOKEN"
)

// GetToken retrieves the API bearer token.
// If allowEnv is false, the environment variable is ignored.
func GetToken(allowEnv bool) (string, string) {
	// 1. Try Keychain
	token, err := keyring.Get(serviceName, tokenAccount)
	if err == nil && token != "" {
		return strings.TrimSpace(token), "Keychain"
	}

	if allowEnv {
		// 2. Try Env Var (optional)
		token = os.Getenv(tokenEnvVar)
		if token != "" {
			return strings.TrimSpace(token), "Environment Variable"
		}
	}

	return "", ""
}

// SaveToken saves the API token to the OS Keychain.
func SaveToken(token string) error {
	return keyring.Set(serviceName, tokenAccount, strings.TrimSpace(token))
}

// DeleteToken removes the API token from the OS Keychain.
func DeleteToken() error {
	return keyring.Delete(serviceName, tokenAccount)
}

// GetStatus returns whether a token exists in the keychain.
func GetStatus() bool {
	token, err := keyring.Get(serviceName, tokenAccount)
	if err != nil || token == "" {
		return false
	}
	return true
}

// PromptForToken securely prompts the user for their API token.
func PromptForToken(prompt string) (string, error) {
	fmt.Print(prompt)
	byteToken, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after hidden input
	return strings.TrimSpace(string(byteToken)), nil
}

// GetEnvToken retrieves the token from the environment only.
func GetEnvToken() (string, bool) {
	token := strings.TrimSpace(os.Getenv(tokenEnvVar))
	if token == "" {
		return "", false
	}
	return token, true
}
