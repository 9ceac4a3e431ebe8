package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no program is stored under a key
var ErrNotFound = errors.New("program not found")

// Entry is a stored compilation result
type Entry struct {
	Key       string    `json:"key"`
	CompileID string    `json:"compile_id"`
	Program   string    `json:"program"`
	CreatedAt time.Time `json:"created_at"`
}

// ProgramStore persists compiled programs
type ProgramStore interface {
	Get(key string) (Entry, error)
	Put(entry Entry) error
	Delete(key string) error
	Close() error
}
