package email

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"greendrake/freight/internal/utils"
)

// FileEmailSender keeps a local outbox: every message is appended to one file,
// framed by a header line naming recipients, subject and template.
type FileEmailSender struct {
	path string

	mu sync.Mutex
}

func NewFileEmailSender(path string) (*FileEmailSender, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("email outbox path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create outbox directory: %w", err)
	}
	return &FileEmailSender{path: path}, nil
}

func (s *FileEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	template := "-"
	if msg, err := mail.ReadMessage(bytes.NewReader(rawMessage)); err == nil {
		if id := msg.Header.Get(HeaderTemplateID); id != "" {
			template = id
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "=== %s to=%s template=%s\nSubject: %s\n",
		time.Now().UTC().Format(time.RFC3339), strings.Join(to, ","), template, subject)
	w.Write(rawMessage)
	if !bytes.HasSuffix(rawMessage, []byte("\n")) {
		w.WriteByte('\n')
	}
	w.WriteString("===\n")

	werr := w.Flush()
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("write outbox: %w", werr)
	}

	utils.Debug("email written to outbox", map[string]any{"path": s.path, "template_id": template})
	return nil
}
