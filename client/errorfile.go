package client

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
)

// errorLog accumulates non-fatal operation failures between
// synchronizations so they can be reported to the server in one batch.
type errorLog struct {
	mu   sync.Mutex
	path string
}

func newErrorLog(path string) *errorLog {
	return &errorLog{path: path}
}

// Write appends one timestamped error block.
func (e *errorLog) Write(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	block := fmt.Sprintf("%s\n%s\n%s\n\n",
		strings.Repeat("-", 20),
		time.Now().Format("2006-01-02 15:04:05"),
		msg)

	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		grip.Warning(message.WrapError(err, message.Fields{
			"message": "could not record error",
			"file":    e.path,
		}))

		return
	}
	defer f.Close()

	_, _ = f.WriteString(block)
}

// Pending returns the accumulated content when there is any.
func (e *errorLog) Pending() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw, err := os.ReadFile(e.path)
	if err != nil || len(raw) == 0 {
		return "", false
	}

	return string(raw), true
}

// Clear discards the accumulated content.
func (e *errorLog) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	_ = os.Remove(e.path)
}
