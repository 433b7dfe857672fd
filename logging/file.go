package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileWriter appends log lines to a file and rotates it once it grows past maxSize.
// Rotated files are renamed with a timestamp suffix; only the newest maxFiles are kept.
type FileWriter struct {
	mu          sync.Mutex
	dir         string
	filename    string
	maxSize     int64
	maxFiles    int
	currentFile *os.File
	currentSize int64
	closed      bool
	// reported is set once a rotation failure has been written to errOut.
	reported bool
	now      func() time.Time
	rename   func(oldpath, newpath string) error
	errOut   io.Writer
}

// NewFileWriter opens (or creates) dir/filename for appending.
func NewFileWriter(dir, filename string, maxSizeMB, maxFiles int) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if maxFiles <= 0 {
		maxFiles = 5
	}

	fw := &FileWriter{
		dir:      dir,
		filename: filename,
		maxSize:  int64(maxSizeMB) * 1024 * 1024,
		maxFiles: maxFiles,
		now:      time.Now,
		rename:   os.Rename,
		errOut:   os.Stderr,
	}
	if err := fw.open(); err != nil {
		return nil, err
	}
	return fw, nil
}

// Path returns the path of the active log file.
func (fw *FileWriter) Path() string {
	return filepath.Join(fw.dir, fw.filename)
}

func (fw *FileWriter) open() error {
	f, err := os.OpenFile(fw.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	fw.currentFile = f
	fw.currentSize = info.Size()
	return nil
}

func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return 0, os.ErrClosed
	}
	if fw.currentFile == nil {
		if err := fw.open(); err != nil {
			return 0, err
		}
	}
	if fw.currentSize > 0 && fw.currentSize+int64(len(p)) > fw.maxSize {
		if err := fw.rotate(); err != nil {
			fw.report(err)
			// Keep appending to the oversized file rather than dropping lines.
			if fw.currentFile == nil {
				if err := fw.open(); err != nil {
					return 0, err
				}
			}
		}
	}
	n, err := fw.currentFile.Write(p)
	fw.currentSize += int64(n)
	return n, err
}

func (fw *FileWriter) rotate() error {
	if err := fw.currentFile.Close(); err != nil {
		return fmt.Errorf("close current file: %w", err)
	}
	fw.currentFile = nil

	rotated := fmt.Sprintf("%s.%s", fw.Path(), fw.now().Format("20060102-150405.000"))
	if err := fw.rename(fw.Path(), rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}
	fw.prune()
	return fw.open()
}

// report writes the first rotation failure to errOut. Called with mu held.
func (fw *FileWriter) report(err error) {
	if fw.reported || fw.errOut == nil {
		return
	}
	fw.reported = true
	fmt.Fprintf(fw.errOut, "logging: %v; continuing in %s\n", err, fw.Path())
}

// prune removes the oldest rotated files beyond maxFiles. Called with mu held.
func (fw *FileWriter) prune() {
	matches, err := filepath.Glob(fw.Path() + ".*")
	if err != nil || len(matches) <= fw.maxFiles {
		return
	}
	// The timestamp suffix sorts lexically in creation order.
	sort.Strings(matches)
	for _, path := range matches[:len(matches)-fw.maxFiles] {
		_ = os.Remove(path)
	}
}

// Close closes the active file.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.closed = true
	if fw.currentFile == nil {
		return nil
	}
	err := fw.currentFile.Close()
	fw.currentFile = nil
	return err
}
