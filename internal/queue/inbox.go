// Package queue implements the two filesystem-backed message queues
// that form the integration surface with the external agent process.
// One file per message; the directories are the only durable state the
// bridge has.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LeventeLantos/sms-bridge/internal/model"
)

// Inbox is the directory the bridge writes received messages into. The
// agent is its only reader and deleter; the bridge never removes inbox
// files.
type Inbox struct {
	dir string
}

func NewInbox(dir string) (*Inbox, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Inbox{dir: dir}, nil
}

func (in *Inbox) Dir() string { return in.dir }

// Write stores one received message as {timestamp}-{phone}.json. The
// content is written under a temporary name and renamed into place so
// a concurrent reader never observes a partial file. Two messages from
// the same sender in the same second share a name; the second write
// wins.
func (in *Inbox) Write(msg model.InboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	final := filepath.Join(in.dir, fmt.Sprintf("%d-%s.json", msg.Timestamp, msg.From))
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Depth reports how many messages are waiting for the agent.
func (in *Inbox) Depth() (int, error) {
	matches, err := filepath.Glob(filepath.Join(in.dir, "*.json"))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}
