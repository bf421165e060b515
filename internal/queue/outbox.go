package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LeventeLantos/sms-bridge/internal/model"
)

// MalformedRecordError marks an outbox file whose content cannot be
// used. The file is terminal for the poller; the path lets an operator
// find it.
type MalformedRecordError struct {
	Path string
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed outbox record %s: %v", e.Path, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Outbox is the directory the agent drops messages to send into. The
// bridge is the only party that reads and disposes of a discovered
// record: deleted once sent, renamed to a .failed marker otherwise.
type Outbox struct {
	dir string
}

func NewOutbox(dir string) (*Outbox, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Outbox{dir: dir}, nil
}

func (out *Outbox) Dir() string { return out.dir }

// List returns the queued record files, one absolute path per message.
// Only *.json files qualify; .failed markers and anything else the
// agent leaves around are skipped. Order carries no meaning.
func (out *Outbox) List() ([]string, error) {
	entries, err := os.ReadDir(out.dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(out.dir, e.Name()))
	}
	return paths, nil
}

// Read parses one queued record. An unreadable file or one without a
// destination is a *MalformedRecordError.
func (out *Outbox) Read(path string) (model.OutboundMessage, error) {
	var msg model.OutboundMessage

	data, err := os.ReadFile(path)
	if err != nil {
		return msg, &MalformedRecordError{Path: path, Err: err}
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, &MalformedRecordError{Path: path, Err: err}
	}
	if msg.To == "" {
		return msg, &MalformedRecordError{Path: path, Err: errors.New("missing destination")}
	}
	return msg, nil
}

// MarkSent removes a record whose send succeeded.
func (out *Outbox) MarkSent(path string) error {
	return os.Remove(path)
}

// MarkFailed renames a record to a terminal .failed marker, content
// untouched. Failed records are never picked up again.
func (out *Outbox) MarkFailed(path string) error {
	return os.Rename(path, path+".failed")
}

// Depths reports queued and failed record counts.
func (out *Outbox) Depths() (pending, failed int, err error) {
	entries, err := os.ReadDir(out.dir)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch {
		case filepath.Ext(e.Name()) == ".json":
			pending++
		case strings.HasSuffix(e.Name(), ".failed"):
			failed++
		}
	}
	return pending, failed, nil
}
