package webserv

import (
	"io"
	"os"
)

// Fs is the filesystem surface handlers depend on, injected rather than
// reached through a process-wide singleton. The default implementation,
// osFs, forwards directly to the os package; tests substitute an in-memory
// fake.
type Fs interface {
	Open(name string) (File, error)
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
	Create(name string) (File, error)
	Remove(name string) error
}

// File is the subset of *os.File handlers use.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Stat() (os.FileInfo, error)
}

// osFs is the production Fs, backed directly by the os package.
type osFs struct{}

// DefaultFs is the Fs used when an Engine is constructed without an
// explicit override.
var DefaultFs Fs = osFs{}

func (osFs) Open(name string) (File, error) { return os.Open(name) }

func (osFs) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (osFs) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

func (osFs) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (osFs) Create(name string) (File, error) { return os.Create(name) }

func (osFs) Remove(name string) error { return os.Remove(name) }
