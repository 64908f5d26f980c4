package audit

import (
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/blake3"

	"docbay/internal/constants"
	"docbay/internal/document"
)

// Entry represents a single audit log entry
type Entry struct {
	ID          int64  `json:"id"`
	Timestamp   int64  `json:"timestamp"`
	Action      string `json:"action"`
	Collection  string `json:"collection"`
	RecordID    string `json:"record_id"`
	UserID      string `json:"user_id,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// IsValidAction checks if an action type is valid
func IsValidAction(action string) bool {
	for _, valid := range constants.ValidAuditActions {
		if action == valid {
			return true
		}
	}
	return false
}

// Fingerprint hashes a record's canonical JSON form so audit entries can
// attest to record contents without storing them.
func Fingerprint(record document.Doc) string {
	if record == nil {
		return ""
	}
	data, err := json.Marshal(record)
	if err != nil {
		return ""
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
