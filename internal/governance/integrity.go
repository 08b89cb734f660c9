package governance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Lock manages the install lock file: a small fingerprinted record
// created on first run and checked on every startup.
type Lock struct {
	Path   string
	Secret string
	Events EventSink
}

type lockFile struct {
	FirstRun     bool   `json:"first_run"`
	EnrolledUser string `json:"enrolled_user"`
	HostID       string `json:"host_id"`
	Fingerprint  string `json:"fingerprint,omitempty"`
}

func NewLock(path, secret string, events EventSink) *Lock {
	return &Lock{Path: path, Secret: secret, Events: events}
}

func (l *Lock) fingerprint(cfg lockFile) (string, error) {
	cfg.Fingerprint = ""
	// json.Marshal sorts map keys but struct fields keep declaration
	// order, which is stable across runs.
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(l.Secret))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func hostID() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// Initialize creates the lock file on first run and records the event.
// It is a no-op when the lock already exists.
func (l *Lock) Initialize(owner string) error {
	if _, err := os.Stat(l.Path); err == nil {
		return nil
	}

	cfg := lockFile{
		FirstRun:     false,
		EnrolledUser: owner,
		HostID:       hostID(),
	}
	fp, err := l.fingerprint(cfg)
	if err != nil {
		return err
	}
	cfg.Fingerprint = fp

	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(l.Path, data, 0400); err != nil {
		return err
	}
	if l.Events != nil {
		_ = l.Events.LogEvent("first_run", owner, "")
	}
	return nil
}

// Verify checks the lock file fingerprint and host identity, recording
// a tamper event on any mismatch.
func (l *Lock) Verify() error {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		l.tamper("lock file missing")
		return errors.New("missing lock file")
	}

	var cfg lockFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		l.tamper("lock file unreadable")
		return fmt.Errorf("corrupt lock file: %w", err)
	}

	stored := cfg.Fingerprint
	check, err := l.fingerprint(cfg)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(stored), []byte(check)) {
		l.tamper("fingerprint mismatch")
		return errors.New("integrity check failed")
	}
	if cfg.FirstRun {
		return errors.New("core not initialised")
	}
	if cfg.HostID != hostID() {
		l.tamper("host id changed")
		return errors.New("system mismatch")
	}
	return nil
}

func (l *Lock) tamper(details string) {
	if l.Events != nil {
		_ = l.Events.LogEvent("tamper", "", details)
	}
}
