package webserv

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"sort"
	"time"
)

// fakeFs is an in-memory Fs used across this package's tests, something a
// test can seed and inspect directly without touching the real filesystem.
type fakeFs struct {
	files map[string][]byte
	dirs  map[string]bool
	mtime map[string]time.Time
}

func newFakeFs() *fakeFs {
	return &fakeFs{
		files: map[string][]byte{},
		dirs:  map[string]bool{"/": true},
		mtime: map[string]time.Time{},
	}
}

func (f *fakeFs) putFile(path string, data []byte) {
	f.files[path] = data
	f.mtime[path] = time.Unix(1700000000, 0)
}

func (f *fakeFs) putDir(path string) {
	f.dirs[path] = true
}

type fakeFileInfo struct {
	name  string
	size  int64
	isDir bool
	mtime time.Time
}

func (i fakeFileInfo) Name() string       { return i.name }
func (i fakeFileInfo) Size() int64        { return i.size }
func (i fakeFileInfo) ModTime() time.Time { return i.mtime }
func (i fakeFileInfo) IsDir() bool        { return i.isDir }
func (i fakeFileInfo) Sys() interface{}   { return nil }

func (i fakeFileInfo) Mode() os.FileMode {
	if i.isDir {
		return os.ModeDir
	}
	return 0o644
}

func (f *fakeFs) Stat(name string) (os.FileInfo, error) {
	if f.dirs[name] {
		return fakeFileInfo{name: name, isDir: true}, nil
	}
	if data, ok := f.files[name]; ok {
		return fakeFileInfo{name: name, size: int64(len(data)), mtime: f.mtime[name]}, nil
	}
	return nil, os.ErrNotExist
}

type fakeDirEntry struct{ info fakeFileInfo }

func (e fakeDirEntry) Name() string               { return e.info.name }
func (e fakeDirEntry) IsDir() bool                { return e.info.isDir }
func (e fakeDirEntry) Type() fs.FileMode          { return e.info.Mode() }
func (e fakeDirEntry) Info() (fs.FileInfo, error) { return e.info, nil }

func (f *fakeFs) ReadDir(name string) ([]os.DirEntry, error) {
	if !f.dirs[name] {
		return nil, os.ErrNotExist
	}
	prefix := name
	if prefix != "/" {
		prefix += "/"
	} else {
		prefix = "/"
	}
	seen := map[string]bool{}
	var entries []os.DirEntry
	for path, data := range f.files {
		if rest, ok := cutPrefix(path, prefix); ok && rest != "" && !contains(rest, "/") {
			if seen[rest] {
				continue
			}
			seen[rest] = true
			entries = append(entries, fakeDirEntry{fakeFileInfo{name: rest, size: int64(len(data)), mtime: f.mtime[path]}})
		}
	}
	for dir := range f.dirs {
		if rest, ok := cutPrefix(dir, prefix); ok && rest != "" && !contains(rest, "/") {
			if seen[rest] {
				continue
			}
			seen[rest] = true
			entries = append(entries, fakeDirEntry{fakeFileInfo{name: rest, isDir: true}})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return "", false
	}
	return s[len(prefix):], true
}

func contains(s, substr string) bool {
	return bytes.Contains([]byte(s), []byte(substr))
}

func (f *fakeFs) MkdirAll(path string, perm os.FileMode) error {
	f.dirs[path] = true
	return nil
}

func (f *fakeFs) Remove(name string) error {
	if _, ok := f.files[name]; !ok {
		return os.ErrNotExist
	}
	delete(f.files, name)
	delete(f.mtime, name)
	return nil
}

func (f *fakeFs) Open(name string) (File, error) {
	data, ok := f.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &fakeFile{name: name, r: bytes.NewReader(data)}, nil
}

func (f *fakeFs) Create(name string) (File, error) {
	buf := &bytes.Buffer{}
	f.files[name] = nil
	f.mtime[name] = time.Unix(1700000000, 0)
	return &fakeFile{name: name, w: buf, fs: f}, nil
}

type fakeFile struct {
	name string
	r    *bytes.Reader
	w    *bytes.Buffer
	fs   *fakeFs
}

func (ff *fakeFile) Read(p []byte) (int, error) {
	if ff.r == nil {
		return 0, errors.New("not opened for reading")
	}
	return ff.r.Read(p)
}

func (ff *fakeFile) Write(p []byte) (int, error) {
	if ff.w == nil {
		return 0, errors.New("not opened for writing")
	}
	n, err := ff.w.Write(p)
	ff.fs.files[ff.name] = append(ff.fs.files[ff.name], p[:n]...)
	return n, err
}

func (ff *fakeFile) Close() error { return nil }

func (ff *fakeFile) Stat() (os.FileInfo, error) {
	if ff.w != nil {
		return fakeFileInfo{name: ff.name, size: int64(ff.w.Len())}, nil
	}
	return fakeFileInfo{name: ff.name, size: int64(ff.r.Len())}, nil
}
