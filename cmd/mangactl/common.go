package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/arqaam/mangactl/internal/auth"
	"github.com/arqaam/mangactl/internal/cleanup"
	"github.com/arqaam/mangactl/internal/logger"
	"golang.org/x/term"
)

var (
	isTerminal     = term.IsTerminal
	getToken       = auth.GetToken
	getEnvToken    = auth.GetEnvToken
	getStatus      = auth.GetStatus
	promptForToken = auth.PromptForToken
)

// resolveToken handles the logic for finding the API token.
func resolveToken(allowEnv, envOnly bool) (string, string, error) {
	if envOnly {
		if token, ok := getEnvToken(); ok {
			return token, "Environment Variable", nil
		}
		return "", "", fmt.Errorf("env-only set but MANGACTL_TOKEN is not set")
	}

	if token, source := getToken(false); token != "" {
		return token, source, nil
	}

	if allowEnv {
		if token, ok := getEnvToken(); ok {
			return token, "Environment Variable", nil
		}
	}

	if isTerminal(int(os.Stdin.Fd())) {
		token, err := promptForToken("API Token (press Enter to skip): ")
		if err != nil {
			return "", "", fmt.Errorf("error reading API token: %w", err)
		}
		if strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), "Terminal Prompt", nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", fmt.Errorf("no API token available (non-interactive shell); set keychain or use --allow-env")
	}
	if allowEnv {
		return "", "", fmt.Errorf("API token is required; not found in keychain or environment")
	}
	return "", "", fmt.Errorf("API token is required; not found in keychain (environment disabled by default; use --allow-env)")
}

// setupLogging wires the logger according to the shared --debug and
// --log-file flags. The log file handle is closed by cleanup.RunAll.
func setupLogging(debug bool, logFilePath string) error {
	logLevel := logger.LevelInfo
	if debug {
		logLevel = logger.LevelDebug
	}
	var logFileW io.Writer
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register(f.Close)
		logFileW = f
	}
	logger.Init(logLevel, logFileW)
	return nil
}

// confirm asks a yes/no question on stdin. Auto-approves when yes is
// set or stdin is not a terminal with yes unset (refuse, stay safe).
func confirm(question string, yes bool) bool {
	if yes {
		return true
	}
	if !isTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("%s [y/N]: ", question)
	var answer string
	if _, err := fmt.Fscanln(os.Stdin, &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("Cancellation requested")
		cancel()
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
