// Package snapshot persists the canonical schema graph of the last successful
// generation so the next run can diff against it.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"backforge/internal/core"
)

// FormatVersion is the version of the encoded snapshot layout.
const FormatVersion = 1

var (
	// ErrNotFound is returned by Store.Load when nothing has been saved yet.
	ErrNotFound = errors.New("snapshot: not found")
	// ErrCorrupt is returned when a stored snapshot fails its checksum.
	ErrCorrupt = errors.New("snapshot: checksum mismatch")
	// ErrIncomplete is returned when the latest snapshot is missing but a
	// prior one exists, which means a save was interrupted.
	ErrIncomplete = errors.New("snapshot: latest missing")
)

// Snapshot is a persisted schema graph.
type Snapshot struct {
	ID        uuid.UUID         `json:"id"`
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"createdAt"`
	Checksum  string            `json:"checksum"`
	Graph     *core.SchemaGraph `json:"graph"`
}

// Store reads and writes the latest snapshot. Save overwrites the latest
// snapshot and keeps exactly one prior version.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot) error
	Close() error
}

// New wraps a graph in a snapshot with a fresh ID and checksum.
func New(g *core.SchemaGraph) (*Snapshot, error) {
	sum, err := Checksum(g)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		ID:        uuid.New(),
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Checksum:  sum,
		Graph:     g,
	}, nil
}

// Checksum returns the hex SHA-256 of the canonical graph encoding. Equal
// graphs always have equal checksums.
func Checksum(g *core.SchemaGraph) (string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode graph: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Encode serializes a snapshot.
func Encode(s *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses an encoded snapshot and verifies its version and checksum.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("decode snapshot: unsupported version %d", s.Version)
	}
	if s.Graph == nil {
		return nil, fmt.Errorf("decode snapshot: missing graph")
	}
	sum, err := Checksum(s.Graph)
	if err != nil {
		return nil, err
	}
	if sum != s.Checksum {
		return nil, fmt.Errorf("%w: stored %s, computed %s", ErrCorrupt, s.Checksum, sum)
	}
	return &s, nil
}
