package backend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/productstudio/backend/internal/domain"
)

// ErrorMessage extracts the operator-facing message from an error body.
// The "error" field wins over "detail"; FastAPI validation details (a list
// of {"msg": ...}) are joined. Returns "" when nothing usable is found.
func ErrorMessage(body []byte) string {
	v, err := decodeValue(body)
	if err != nil {
		return ""
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	for _, key := range []string{"error", "detail"} {
		if msg := messageFrom(obj[key]); msg != "" {
			return msg
		}
	}
	return ""
}

func messageFrom(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}:
		for _, key := range []string{"message", "msg"} {
			if s, ok := t[key].(string); ok && s != "" {
				return s
			}
		}
	case []interface{}:
		var parts []string
		for _, item := range t {
			if msg := messageFrom(item); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// remoteError converts a non-success response into a domain error
func remoteError(endpoint string, status int, body []byte) error {
	msg := ErrorMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("%s failed %d", endpoint, status)
	}
	return &domain.Error{Kind: domain.ErrRemote, Message: msg, Endpoint: endpoint, Status: status}
}

// exportError converts a failed export response into a domain error
func exportError(endpoint string, status int, body []byte) error {
	text := ErrorMessage(body)
	if text == "" {
		text = strings.TrimSpace(string(body))
	}
	if text == "" {
		text = fmt.Sprintf("%d %s", status, http.StatusText(status))
	}
	return &domain.Error{
		Kind:     domain.ErrExport,
		Message:  "Export failed: " + text,
		Endpoint: endpoint,
		Status:   status,
	}
}
