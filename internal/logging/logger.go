package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Options configures a Logger.
type Options struct {
	// Level is the maximum severity that gets written.
	Level Level
	// Console enables mirroring to stdout.
	Console bool
	// FilePath enables mirroring to a rotated file when non-empty.
	FilePath string
	// FileSizeLimit is the rotation threshold in bytes.
	FileSizeLimit int64
	// RotateCount is how many rotated files to keep (1..9).
	RotateCount int
}

// Logger writes timestamped, level-filtered lines to the console and,
// optionally, to a size-rotated file.
type Logger struct {
	mu      sync.Mutex
	level   Level
	console bool
	file    *rotatingFile

	// now is overridable for tests.
	now func() time.Time
}

// New creates a logger from options. A file open failure is returned to the
// caller: startup treats it as fatal.
func New(opts Options) (*Logger, error) {
	l := &Logger{
		level:   opts.Level,
		console: opts.Console,
		now:     time.Now,
	}

	if opts.FilePath != "" {
		f, err := newRotatingFile(opts.FilePath, opts.FileSizeLimit, opts.RotateCount)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		l.file = f
	}

	return l, nil
}

// Close flushes and closes the file mirror, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Level returns the configured severity threshold.
func (l *Logger) Level() Level {
	return l.level
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// Warnf logs at warning level.
func (l *Logger) Warnf(format string, args ...any) { l.logf(LevelWarn, format, args...) }

// Infof logs at informational level.
func (l *Logger) Infof(format string, args ...any) { l.logf(LevelInfo, format, args...) }

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }

// logf formats one `<sec>.<ms>|LEVEL|<message>` line and fans it out.
func (l *Logger) logf(level Level, format string, args ...any) {
	if level > l.level {
		return
	}

	now := l.now()
	line := fmt.Sprintf("%d.%03d|%s|%s\n",
		now.Unix(), now.Nanosecond()/1e6, level, fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.console {
		fmt.Fprint(os.Stdout, line)
	}
	if l.file != nil {
		// Rotation failures must not take the daemon down.
		_, _ = l.file.Write([]byte(line))
	}
}
