package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidPath   = errors.New("invalid document path")
	ErrInvalidFields = errors.New("document fields must be a JSON object")
)

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Path addresses one document as namespace/userID.
type Path struct {
	Namespace string
	UserID    string
}

func NewPath(namespace, userID string) (Path, error) {
	for _, segment := range []string{namespace, userID} {
		if segment == "." || segment == ".." || !segmentPattern.MatchString(segment) {
			return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, segment)
		}
	}
	return Path{Namespace: namespace, UserID: userID}, nil
}

func ParsePath(raw string) (Path, error) {
	namespace, userID, ok := strings.Cut(raw, "/")
	if !ok {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}
	return NewPath(namespace, userID)
}

func (p Path) String() string {
	return p.Namespace + "/" + p.UserID
}

// Fields is the JSON object stored for a document, one raw value per key.
type Fields map[string]json.RawMessage

// DecodeFields parses a JSON object. A JSON null value inside the object
// marks the key for removal on merge.
func DecodeFields(payload []byte) (Fields, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidFields
	}
	fields := Fields{}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFields, err)
	}
	return fields, nil
}

func (f Fields) Encode() ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]json.RawMessage(f))
}

type Document struct {
	Path      Path
	Fields    Fields
	Revision  int64
	UpdatedAt time.Time
}

// Merge overwrites the given keys and drops keys whose value is null.
// Keys not named in patch keep their stored value.
func (d Document) Merge(patch Fields, now time.Time) Document {
	merged := make(Fields, len(d.Fields)+len(patch))
	for key, value := range d.Fields {
		merged[key] = value
	}
	for key, value := range patch {
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}
	return Document{
		Path:      d.Path,
		Fields:    merged,
		Revision:  d.Revision + 1,
		UpdatedAt: now,
	}
}

// Snapshot is what subscribers receive: the whole document or its absence.
type Snapshot struct {
	Document Document
	Exists   bool
}
