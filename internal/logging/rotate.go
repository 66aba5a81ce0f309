package logging

import (
	"fmt"
	"os"
)

const (
	// MinFileSizeLimit is the smallest accepted rotation threshold.
	MinFileSizeLimit int64 = 4096
	// MaxFileSizeLimit is the default and largest rotation threshold.
	MaxFileSizeLimit int64 = 1<<31 - 1
	// MaxRotateCount is the largest accepted rotated-file count.
	MaxRotateCount int = 9
)

// rotatingFile appends to a file and rotates it to numbered backups
// (path.1 .. path.N) once the size limit is reached.
type rotatingFile struct {
	file     *os.File
	path     string
	maxSize  int64
	maxFiles int
	size     int64
}

func newRotatingFile(path string, maxSize int64, maxFiles int) (*rotatingFile, error) {
	if maxSize <= 0 {
		maxSize = MaxFileSizeLimit
	}
	if maxFiles < 1 {
		maxFiles = 1
	}
	if maxFiles > MaxRotateCount {
		maxFiles = MaxRotateCount
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	return &rotatingFile{
		file:     file,
		path:     path,
		maxSize:  maxSize,
		maxFiles: maxFiles,
		size:     info.Size(),
	}, nil
}

// Write implements io.Writer.
func (f *rotatingFile) Write(p []byte) (int, error) {
	if f.size+int64(len(p)) > f.maxSize {
		if err := f.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log: %w", err)
		}
	}

	n, err := f.file.Write(p)
	f.size += int64(n)
	return n, err
}

// rotate shifts path.N-1 -> path.N, ..., path -> path.1 and reopens.
func (f *rotatingFile) rotate() error {
	if err := f.file.Close(); err != nil {
		return err
	}

	for i := f.maxFiles - 1; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", f.path, i)
		dst := fmt.Sprintf("%s.%d", f.path, i+1)
		if _, err := os.Stat(src); err == nil {
			if err := os.Rename(src, dst); err != nil {
				return err
			}
		}
	}

	if err := os.Rename(f.path, f.path+".1"); err != nil {
		return err
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	f.file = file
	f.size = 0
	return nil
}

// Close closes the underlying file.
func (f *rotatingFile) Close() error {
	return f.file.Close()
}
