package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newtron-network/lldpsync/pkg/util"
)

// Logger is an audit sink for run events.
type Logger interface {
	Log(event *Event) error
	Query(filter Filter) ([]*Event, error)
	Close() error
}

// RotationConfig bounds the audit file. When the live file reaches MaxSize
// it becomes path.1, older backups shift up, and anything past MaxBackups is
// removed. MaxSize zero disables rotation.
type RotationConfig struct {
	MaxSize    int64
	MaxBackups int
}

// FileLogger appends one JSON object per run to a file and keeps numbered
// backups. Query reads the backups and the live file, so history survives
// rotation.
type FileLogger struct {
	path     string
	rotation RotationConfig

	mu   sync.RWMutex
	file *os.File
	size int64
}

// NewFileLogger opens (or creates) the audit file at path.
func NewFileLogger(path string, rotation RotationConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	l := &FileLogger{path: path, rotation: rotation}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("opening audit log: %w", err)
	}
	l.file, l.size = f, info.Size()
	return nil
}

// Log appends event, rotating first if the live file is full. Events built
// without NewEvent get an ID and timestamp here.
func (l *FileLogger) Log(event *Event) error {
	if event.ID == "" {
		event.ID = generateID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotation.MaxSize > 0 && l.size > 0 && l.size+int64(len(line)) > l.rotation.MaxSize {
		if err := l.rotate(); err != nil {
			return fmt.Errorf("rotating audit log: %w", err)
		}
	}
	n, err := l.file.Write(line)
	l.size += int64(n)
	return err
}

// Query returns matching events oldest first.
func (l *FileLogger) Query(filter Filter) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var events []*Event
	for i := l.rotation.MaxBackups; i >= 1; i-- {
		if err := scanFile(l.backupPath(i), filter, &events); err != nil {
			return nil, err
		}
	}
	if err := scanFile(l.path, filter, &events); err != nil {
		return nil, err
	}
	return filter.window(events), nil
}

// scanFile appends the events in path that match filter. A missing file
// holds no events; malformed lines are skipped with a warning.
func scanFile(path string, filter Filter, out *[]*Event) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			util.Warnf("audit: skipping malformed entry %s:%d: %v", filepath.Base(path), lineNum, err)
			continue
		}
		if filter.Match(&e) {
			*out = append(*out, &e)
		}
	}
	return scanner.Err()
}

// Close closes the live file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *FileLogger) backupPath(n int) string {
	return l.path + "." + strconv.Itoa(n)
}

// rotate shifts path.N-1 to path.N down to path to path.1 and reopens the
// live file. With no backups allowed the live file is truncated instead.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	if l.rotation.MaxBackups > 0 {
		if err := os.Remove(l.backupPath(l.rotation.MaxBackups)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		for i := l.rotation.MaxBackups - 1; i >= 1; i-- {
			if err := os.Rename(l.backupPath(i), l.backupPath(i+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
		if err := os.Rename(l.path, l.backupPath(1)); err != nil {
			return err
		}
	} else if err := os.Truncate(l.path, 0); err != nil {
		return err
	}
	return l.open()
}

// holder gives atomic.Pointer a concrete type for the Logger interface.
type holder struct{ Logger }

var defaultLogger atomic.Pointer[holder]

// SetDefaultLogger installs the process-wide logger; nil disables auditing.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		defaultLogger.Store(nil)
		return
	}
	defaultLogger.Store(&holder{logger})
}

// Log records event with the default logger, if one is set.
func Log(event *Event) error {
	if h := defaultLogger.Load(); h != nil {
		return h.Log(event)
	}
	return nil
}

// Query searches the default logger. Without one there is no history.
func Query(filter Filter) ([]*Event, error) {
	if h := defaultLogger.Load(); h != nil {
		return h.Query(filter)
	}
	return []*Event{}, nil
}
