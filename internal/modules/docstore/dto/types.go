package dto

import (
	"encoding/json"
	"time"
)

// DocumentOutput is a document as served over the wire. Body is the
// stored JSON object and is nil when the document does not exist.
type DocumentOutput struct {
	Namespace string
	UserID    string
	Exists    bool
	Body      json.RawMessage
	Revision  int64
	UpdatedAt time.Time
}
