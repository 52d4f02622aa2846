package machine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/danmuck/cpkctl/internal/logging"
)

var (
	ErrMachineNotFound = errors.New("machine: not found")
	ErrMachineExists   = errors.New("machine: already exists")
)

// RecordVersion is the on-disk schema version of a machine record.
const RecordVersion = "1.0"

const recordFile = "config.json"

// record is the serialized form stored under <root>/<name>/config.json.
type record struct {
	Version       string        `json:"version"`
	Type          Type          `json:"type"`
	Description   string        `json:"description"`
	Configuration Configuration `json:"configuration"`
}

// Store is the directory-backed machine registry. Each machine owns a
// subdirectory holding its record and any provisioned credentials.
type Store struct {
	root string
	log  zerolog.Logger
}

// NewStore opens the registry rooted at dir, creating it on first use.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("machine: creating registry root: %w", err)
	}
	return &Store{root: dir, log: logging.Component("machine")}, nil
}

// Root returns the registry root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the directory owned by the named machine.
func (s *Store) Dir(name string) string { return filepath.Join(s.root, name) }

// Save writes the machine record, replacing any existing one.
func (s *Store) Save(m Machine) error {
	if err := m.Validate(); err != nil {
		return err
	}
	dir := s.Dir(m.Name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("machine: creating record dir: %w", err)
	}
	rec := record{
		Version:       RecordVersion,
		Type:          m.Type,
		Description:   m.Description,
		Configuration: m.Configuration,
	}
	raw, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("machine: encoding record: %w", err)
	}
	path := filepath.Join(dir, recordFile)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("machine: writing record: %w", err)
	}
	s.log.Debug().Str("machine", m.Name).Str("path", path).Msg("machine record saved")
	return nil
}

// Get loads the named machine record.
func (s *Store) Get(name string) (Machine, error) {
	path := filepath.Join(s.Dir(name), recordFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Machine{}, fmt.Errorf("%w: %q", ErrMachineNotFound, name)
		}
		return Machine{}, fmt.Errorf("machine: reading record: %w", err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Machine{}, fmt.Errorf("%w: %q: %v", ErrInvalidMachine, name, err)
	}
	if rec.Version != RecordVersion {
		return Machine{}, fmt.Errorf("%w: %q: unsupported record version %q", ErrInvalidMachine, name, rec.Version)
	}
	return Machine{
		Name:          name,
		Type:          rec.Type,
		Description:   rec.Description,
		Configuration: rec.Configuration,
	}, nil
}

// Exists reports whether a record for name is present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.Dir(name), recordFile))
	return err == nil
}

// List returns all readable machine records sorted by name. Malformed
// records are logged and skipped rather than failing the listing.
func (s *Store) List() ([]Machine, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("machine: listing registry: %w", err)
	}
	var machines []Machine
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := s.Get(entry.Name())
		if err != nil {
			s.log.Warn().Str("machine", entry.Name()).Err(err).Msg("skipping unreadable machine record")
			continue
		}
		machines = append(machines, m)
	}
	sort.Slice(machines, func(i, j int) bool { return machines[i].Name < machines[j].Name })
	return machines, nil
}

// Remove deletes the machine's directory, credentials included.
func (s *Store) Remove(name string) error {
	if !s.Exists(name) {
		return fmt.Errorf("%w: %q", ErrMachineNotFound, name)
	}
	if err := os.RemoveAll(s.Dir(name)); err != nil {
		return fmt.Errorf("machine: removing record: %w", err)
	}
	s.log.Info().Str("machine", name).Msg("machine removed")
	return nil
}

// Resolve maps a CLI machine argument to a usable machine: a registered
// name first, then a parseable ad-hoc target, falling back to the local
// socket when the argument is empty.
func (s *Store) Resolve(arg string) (Machine, error) {
	if arg == "" {
		return DefaultSocket(), nil
	}
	if m, err := s.Get(arg); err == nil {
		return m, nil
	} else if !errors.Is(err, ErrMachineNotFound) {
		return Machine{}, err
	}
	return ParseTarget("adhoc", arg)
}
