package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// AuditLog appends one line per executed engine operation to
// logs/commands.log. Logging is best effort: a failure to write the log must
// never fail the operation itself, so Record swallows errors.
type AuditLog struct {
	path string
}

// NewAuditLog creates an audit log writing to the store's log path.
func NewAuditLog(s *Store) *AuditLog {
	return &AuditLog{path: s.LogPath()}
}

// Record appends one entry: timestamp, a fresh operation id, the operation
// name and a free-form detail string, tab separated.
func (l *AuditLog) Record(op, detail string) {
	if l == nil {
		return
	}
	line := fmt.Sprintf("%s\t%s\t%s\t%s\n",
		time.Now().Format(time.RFC3339), uuid.NewString(), op, detail)
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line)
}
