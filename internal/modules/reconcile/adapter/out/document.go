package out

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	countdown "timeblocks/internal/modules/countdown/domain"
	"timeblocks/internal/modules/reconcile/domain"
)

// decodeSnapshot reads one remote document. "null" and empty payloads mean
// the document does not exist.
func decodeSnapshot(payload []byte) (domain.RemoteSnapshot, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.RemoteSnapshot{}, nil
	}
	patch := countdown.Patch{}
	if err := json.Unmarshal(trimmed, &patch); err != nil {
		return domain.RemoteSnapshot{}, fmt.Errorf("decode remote document: %w", err)
	}
	return domain.RemoteSnapshot{Patch: patch, Exists: true}, nil
}

func splitPath(path string) (string, string, error) {
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("document path %q must be namespace/user", path)
	}
	return parts[0], parts[1], nil
}
