package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/nftbarter/discovery-engine/engine/webhook"
)

// DeadLetterLog implements webhook.DeadLetterSink by appending one JSON
// line per exhausted delivery to dir/<tenant>/deadletter.jsonl (spec.md
// §4.6). Appends are serialized by a mutex; each tenant's file is opened
// append-only so a writer never needs to read the existing file back.
type DeadLetterLog struct {
	mu  sync.Mutex
	dir string
}

func NewDeadLetterLog(dir string) *DeadLetterLog {
	return &DeadLetterLog{dir: dir}
}

type deadLetterEntry struct {
	Payload  webhook.Payload `json:"payload"`
	Error    string          `json:"error"`
	LoggedAt time.Time       `json:"loggedAt"`
}

func (d *DeadLetterLog) Append(tenant identity.TenantID, payload webhook.Payload, lastErr error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tenantDir := filepath.Join(d.dir, string(tenant))
	if err := os.MkdirAll(tenantDir, 0o755); err != nil {
		return fmt.Errorf("create deadletter dir: %w", err)
	}

	entry := deadLetterEntry{Payload: payload, LoggedAt: time.Now()}
	if lastErr != nil {
		entry.Error = lastErr.Error()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal deadletter entry: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(filepath.Join(tenantDir, "deadletter.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open deadletter log: %w", err)
	}
	defer f.Close()

	_, err = f.Write(line)
	return err
}
