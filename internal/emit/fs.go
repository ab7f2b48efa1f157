package emit

import (
	"os"
)

// FS is the slice of the filesystem the emitter touches. OS is the real
// implementation; tests substitute one that fails on demand.
type FS interface {
	MkdirAll(path string, perm os.FileMode) error
	MkdirTemp(dir, pattern string) (string, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	ReadFile(name string) ([]byte, error)
	ReadDir(name string) ([]os.DirEntry, error)
	Stat(name string) (os.FileInfo, error)
	Chmod(name string, mode os.FileMode) error
	Rename(oldpath, newpath string) error
	RemoveAll(path string) error
}

// Exchanger is implemented by filesystems that can swap two directories in
// a single step. Exchange returns an error matching errors.ErrUnsupported
// when the platform or the filesystem cannot.
type Exchanger interface {
	Exchange(a, b string) error
}

// OS is the operating system filesystem.
var OS FS = osFS{}

type osFS struct{}

func (osFS) MkdirAll(path string, perm os.FileMode) error  { return os.MkdirAll(path, perm) }
func (osFS) MkdirTemp(dir, pattern string) (string, error) { return os.MkdirTemp(dir, pattern) }
func (osFS) ReadFile(name string) ([]byte, error)          { return os.ReadFile(name) }
func (osFS) ReadDir(name string) ([]os.DirEntry, error)    { return os.ReadDir(name) }
func (osFS) Stat(name string) (os.FileInfo, error)         { return os.Stat(name) }
func (osFS) Chmod(name string, mode os.FileMode) error     { return os.Chmod(name, mode) }
func (osFS) Rename(oldpath, newpath string) error          { return os.Rename(oldpath, newpath) }
func (osFS) RemoveAll(path string) error                   { return os.RemoveAll(path) }
func (osFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
