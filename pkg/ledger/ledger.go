package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OpenTasmania/oj-server-sub001/pkg/engine"
)

// FormatVersion is the ledger file format version written to new headers.
const FormatVersion = "1"

// Header metadata line prefixes.
const (
	fingerprintPrefix = "# FINGERPRINT: "
	versionPrefix     = "# VERSION: "
	resetPrefix       = "# RESET: "
)

// Config configures a ledger store.
type Config struct {
	// Path is the ledger file location. Required.
	Path string

	// LockPath is the lock file location. Defaults to Path + ".lock".
	LockPath string

	// Fingerprint provides the current implementation fingerprint.
	// Required.
	Fingerprint func() (string, error)
}

var _ engine.StateStore = (*Store)(nil)

// entry is one completed step record.
type entry struct {
	id string
	at time.Time
}

// Store is the file-backed completion ledger. It implements
// engine.StateStore. A Store holds an exclusive lock from Open until Close;
// all mutations are atomic replace-on-write.
type Store struct {
	path        string
	lockPath    string
	fingerprint string

	header struct {
		fingerprint string
		version     string
	}
	entries []entry
	index   map[string]struct{}

	closed bool
}

// Open acquires the ledger at cfg.Path, creating it with a fresh
// fingerprint header if absent. It fails fast with a LOCKED ledger error
// when another process holds the lock. The caller must Close the store on
// every exit path to release the lock.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, engine.NewLedgerError("ledger path is required", nil).
			WithCode(engine.ErrCodeInternal)
	}
	if cfg.Fingerprint == nil {
		return nil, engine.NewLedgerError("ledger fingerprint provider is required", nil).
			WithCode(engine.ErrCodeInternal)
	}

	current, err := cfg.Fingerprint()
	if err != nil {
		return nil, engine.NewLedgerError("failed to compute implementation fingerprint", err).
			WithCode(engine.ErrCodeInternal)
	}

	lockPath := cfg.LockPath
	if lockPath == "" {
		lockPath = cfg.Path + ".lock"
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, engine.NewLedgerError("failed to create ledger directory", err)
	}

	if err := acquireLock(lockPath); err != nil {
		return nil, err
	}

	s := &Store{
		path:        cfg.Path,
		lockPath:    lockPath,
		fingerprint: current,
		index:       make(map[string]struct{}),
	}

	if err := s.load(); err != nil {
		_ = os.Remove(lockPath)
		return nil, err
	}

	return s, nil
}

// acquireLock creates the lock file exclusively, recording the owner pid.
// An existing lock means another run is in progress: fail fast, never wait.
func acquireLock(lockPath string) error {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return engine.NewLedgerError(
				fmt.Sprintf("ledger is locked (%s): another run is in progress", lockPath), nil).
				WithCode(engine.ErrCodeLocked)
		}
		return engine.NewLedgerError("failed to acquire ledger lock", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return f.Close()
}

// load reads the ledger from disk, creating it if absent. A corrupt or
// unreadable header is treated as a reset condition, not an error.
func (s *Store) load() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		s.header.fingerprint = s.fingerprint
		s.header.version = FormatVersion
		return s.write()
	}
	if err != nil {
		return engine.NewLedgerError("failed to open ledger", err)
	}
	defer f.Close()

	corrupt := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, fingerprintPrefix):
			s.header.fingerprint = strings.TrimPrefix(line, fingerprintPrefix)
		case strings.HasPrefix(line, versionPrefix):
			s.header.version = strings.TrimPrefix(line, versionPrefix)
		case strings.HasPrefix(line, resetPrefix):
			// informational only
		case strings.HasPrefix(line, "#"):
			// unknown metadata, tolerated
		default:
			e, ok := parseEntry(line)
			if !ok {
				corrupt = true
				continue
			}
			s.appendEntry(e)
		}
	}
	if err := scanner.Err(); err != nil {
		return engine.NewLedgerError("failed to read ledger", err)
	}

	if corrupt || s.header.fingerprint == "" || s.header.version == "" {
		// Defined reset condition: unreadable or incomplete header.
		return s.reset()
	}
	return nil
}

// parseEntry parses one entry line: the step identifier, optionally
// followed by a tab and an RFC 3339 completion timestamp.
func parseEntry(line string) (entry, bool) {
	id, ts, found := strings.Cut(line, "\t")
	if id == "" {
		return entry{}, false
	}
	e := entry{id: id}
	if found {
		at, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return entry{}, false
		}
		e.at = at
	}
	return e, true
}

func (s *Store) appendEntry(e entry) {
	if _, dup := s.index[e.id]; dup {
		return
	}
	s.entries = append(s.entries, e)
	s.index[e.id] = struct{}{}
}

// ValidateOrReset compares the stored fingerprint against the current one
// and resets the ledger on mismatch. A mismatch is a defined reset
// condition: historic completion claims from a different implementation are
// discarded rather than trusted. Reports whether a reset occurred.
func (s *Store) ValidateOrReset() (bool, error) {
	if s.header.fingerprint == s.fingerprint && s.header.version == FormatVersion {
		return false, nil
	}
	if err := s.reset(); err != nil {
		return false, err
	}
	return true, nil
}

// reset clears all entries and rewrites the header with the current
// fingerprint and a reset timestamp.
func (s *Store) reset() error {
	s.entries = nil
	s.index = make(map[string]struct{})
	s.header.fingerprint = s.fingerprint
	s.header.version = FormatVersion
	return s.writeWithReset(time.Now())
}

// IsCompleted reports whether stepID is recorded as completed.
func (s *Store) IsCompleted(stepID string) bool {
	_, ok := s.index[stepID]
	return ok
}

// MarkCompleted appends stepID to the ledger. Marking an already-present id
// is a no-op.
func (s *Store) MarkCompleted(stepID string) error {
	if _, dup := s.index[stepID]; dup {
		return nil
	}
	s.appendEntry(entry{id: stepID, at: time.Now()})
	return s.write()
}

// ListCompleted returns the completed step ids in completion order.
func (s *Store) ListCompleted() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.id
	}
	return out
}

// Clear truncates all entries and rewrites the header with the current
// fingerprint and a reset timestamp.
func (s *Store) Clear() error {
	return s.reset()
}

// Close releases the ledger lock. Safe to call more than once.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := os.Remove(s.lockPath); err != nil && !os.IsNotExist(err) {
		return engine.NewLedgerError("failed to release ledger lock", err)
	}
	return nil
}

// write persists the ledger atomically: the content goes to a temporary
// file in the same directory, which is then renamed over the ledger.
func (s *Store) write() error {
	return s.writeWithReset(time.Time{})
}

func (s *Store) writeWithReset(resetAt time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", fingerprintPrefix, s.header.fingerprint)
	fmt.Fprintf(&b, "%s%s\n", versionPrefix, s.header.version)
	if !resetAt.IsZero() {
		fmt.Fprintf(&b, "%s%s\n", resetPrefix, resetAt.UTC().Format(time.RFC3339))
	}
	for _, e := range s.entries {
		if e.at.IsZero() {
			fmt.Fprintf(&b, "%s\n", e.id)
		} else {
			fmt.Fprintf(&b, "%s\t%s\n", e.id, e.at.UTC().Format(time.RFC3339))
		}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return engine.NewLedgerError("failed to create temporary ledger", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return engine.NewLedgerError("failed to write temporary ledger", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return engine.NewLedgerError("failed to sync temporary ledger", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return engine.NewLedgerError("failed to close temporary ledger", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return engine.NewLedgerError("failed to replace ledger", err)
	}
	return nil
}
