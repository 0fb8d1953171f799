package api

import (
	"encoding/json"
	"fmt"

	"github.com/arqaam/mangactl/internal/apperrors"
)

// errorBody is the error envelope the platform returns on non-2xx
// responses. Bodies are not guaranteed to be JSON at all.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// extractErrorMessage pulls a human-readable message out of an error
// response body, best-effort.
func extractErrorMessage(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if parsed.Error != "" {
		return parsed.Error
	}
	return parsed.Detail
}

// classifyResponse turns a non-2xx response into a typed error.
// fallbackKind distinguishes submission-phase failures from poll-phase
// failures when the status code is not more specific.
func classifyResponse(op string, statusCode int, body []byte, fallbackKind apperrors.Kind) error {
	msg := extractErrorMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("%s failed (HTTP %d)", op, statusCode)
	}
	cause := fmt.Errorf("%s: HTTP %d", op, statusCode)

	switch {
	case statusCode == 401 || statusCode == 403:
		return apperrors.New(apperrors.KindAuth, msg, cause)
	case statusCode >= 500:
		return apperrors.New(apperrors.KindTransient, msg, cause)
	default:
		return apperrors.New(fallbackKind, msg, cause)
	}
}

// classifyTransport wraps request-level failures (DNS, socket, timeout).
func classifyTransport(op string, err error, fallbackKind apperrors.Kind) error {
	return apperrors.New(fallbackKind, "", fmt.Errorf("%s request failed: %w", op, err))
}
