package remote

import (
	"context"
	"fmt"
	"sync"
)

// FakeStore is an in-memory Store honoring the conditional write contract,
// for unit tests and dry runs against nothing.
type FakeStore struct {
	sync.Mutex
	files map[string]*File
	seq   int
	gets  int
	puts  int
}

// NewFakeStore creates an empty in-memory store
func NewFakeStore() *FakeStore {
	return &FakeStore{
		files: make(map[string]*File),
	}
}

// GetFile returns a copy of the stored file, or ErrNotFound
func (f *FakeStore) GetFile(ctx context.Context, path string) (*File, error) {
	f.Lock()
	defer f.Unlock()

	f.gets++

	file, ok := f.files[path]
	if !ok {
		return nil, ErrNotFound
	}

	return &File{Content: file.Content, Tag: file.Tag}, nil
}

// PutFile stores content if expectedTag matches the current state: the
// current file's tag, or "" when the file doesn't exist yet.
func (f *FakeStore) PutFile(ctx context.Context, path, content, message, expectedTag string) (string, error) {
	f.Lock()
	defer f.Unlock()

	f.puts++

	current := ""
	if file, ok := f.files[path]; ok {
		current = file.Tag
	}

	if expectedTag != current {
		return "", ErrConflict
	}

	f.seq++
	tag := fmt.Sprintf("tag-%d", f.seq)
	f.files[path] = &File{Content: content, Tag: tag}

	return tag, nil
}

// Content returns the current content of a stored file ("" if absent)
func (f *FakeStore) Content(path string) string {
	f.Lock()
	defer f.Unlock()

	if file, ok := f.files[path]; ok {
		return file.Content
	}
	return ""
}

// GetCalls returns the number of GetFile calls so far
func (f *FakeStore) GetCalls() int {
	f.Lock()
	defer f.Unlock()
	return f.gets
}

// PutCalls returns the number of PutFile calls so far
func (f *FakeStore) PutCalls() int {
	f.Lock()
	defer f.Unlock()
	return f.puts
}
