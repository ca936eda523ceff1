package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a Device whose contents live in an image file. Every write is
// flushed to disk before it returns. File is safe for concurrent use.
type File struct {
	mu   sync.Mutex
	path string
	mem  *Memory
}

// OpenFile loads the image at path, creating an erased image of the given
// size if none exists. An existing image shorter than size is padded with
// erased bytes; a longer one is kept at its own length.
func OpenFile(path string, size int) (*File, error) {
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		f := &File{path: path, mem: NewMemory(size)}
		if err := f.flush(); err != nil {
			return nil, err
		}
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("storage: read image: %w", err)
	}

	mem := NewMemory(max(size, len(data)))
	copy(mem.data, data)
	return &File{path: path, mem: mem}, nil
}

// Path returns the image path.
func (f *File) Path() string {
	return f.path
}

// Size returns the capacity.
func (f *File) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mem.Size()
}

// ReadByteAt returns the byte at addr.
func (f *File) ReadByteAt(addr int) (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mem.ReadByteAt(addr)
}

// WriteByteAt stores b at addr and flushes the image.
func (f *File) WriteByteAt(addr int, b byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.WriteByteAt(addr, b); err != nil {
		return err
	}
	return f.flush()
}

// Get copies bytes starting at addr into dst.
func (f *File) Get(addr int, dst []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mem.Get(addr, dst)
}

// Put stores src starting at addr and flushes the image.
func (f *File) Put(addr int, src []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mem.Put(addr, src); err != nil {
		return err
	}
	return f.flush()
}

// Erase resets the image to erased bytes.
func (f *File) Erase() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mem.Erase()
	return f.flush()
}

// flush writes the image atomically. Caller holds f.mu.
func (f *File) flush() error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, f.mem.data, 0644); err != nil {
		return fmt.Errorf("storage: write image: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("storage: replace image: %w", err)
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ Device = (*File)(nil)
