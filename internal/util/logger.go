package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LOG_BUFFER_SIZE = 1000

var ErrLogNotInitialized = errors.New("log object is not initialized yet")

const (
	LOG_LEVEL_ERROR = iota + 1
	LOG_LEVEL_WARN
	LOG_LEVEL_INFO
	LOG_LEVEL_DEBUG
)

// LogOptions selects where and how verbosely a ServiceLogger writes.
type LogOptions struct {
	Dir     string
	File    string
	Level   string
	Stderr  bool
	Rewrite bool
}

// ServiceLogger hands events to a background writer over a buffered channel
// so request handlers never block on log I/O.
type ServiceLogger struct {
	mu                sync.RWMutex
	logBuffer         chan leveledEvent
	handle            *os.File
	wg                *sync.WaitGroup
	loggerInitialized bool
	zapLogger         *zap.Logger
}

type leveledEvent struct {
	level  int
	logMsg string
}

func (m *ServiceLogger) Init(opts LogOptions) error {
	level, err := ParseLogLevel(opts.Level)
	if err != nil {
		return err
	}

	var writer zapcore.WriteSyncer
	if opts.Stderr {
		writer = zapcore.Lock(os.Stderr)
	} else {
		if err := CheckAndCreateLogFolder(opts.Dir); err != nil {
			return err
		}
		flags := os.O_RDWR | os.O_CREATE | os.O_APPEND
		if opts.Rewrite {
			flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
		}
		m.handle, err = os.OpenFile(filepath.Join(opts.Dir, opts.File), flags, 0666)
		if err != nil {
			return err
		}
		writer = zapcore.AddSync(m.handle)
	}

	m.zapLogger = newZapLogger(writer, zapLevel(level))
	m.wg = new(sync.WaitGroup)
	m.logBuffer = make(chan leveledEvent, LOG_BUFFER_SIZE)

	m.wg.Add(1)
	go m.logWriter()

	m.mu.Lock()
	m.loggerInitialized = true
	m.mu.Unlock()
	return nil
}

func newZapLogger(writer zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(config)

	return zap.New(zapcore.NewCore(encoder, writer, level))
}

// ParseLogLevel maps a configured level name to a LOG_LEVEL constant.
// An empty name means info.
func ParseLogLevel(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return LOG_LEVEL_ERROR, nil
	case "warn", "warning":
		return LOG_LEVEL_WARN, nil
	case "info", "":
		return LOG_LEVEL_INFO, nil
	case "debug":
		return LOG_LEVEL_DEBUG, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

func zapLevel(level int) zapcore.Level {
	switch level {
	case LOG_LEVEL_ERROR:
		return zapcore.ErrorLevel
	case LOG_LEVEL_WARN:
		return zapcore.WarnLevel
	case LOG_LEVEL_DEBUG:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func (m *ServiceLogger) logWriter() {
	defer m.wg.Done()
	for event := range m.logBuffer {
		switch event.level {
		case LOG_LEVEL_ERROR:
			m.zapLogger.Error(event.logMsg)
		case LOG_LEVEL_WARN:
			m.zapLogger.Warn(event.logMsg)
		case LOG_LEVEL_DEBUG:
			m.zapLogger.Debug(event.logMsg)
		default:
			m.zapLogger.Info(event.logMsg)
		}
	}
	_ = m.zapLogger.Sync()
}

// LogEvent queues a message. A leading LOG_LEVEL constant selects the level,
// otherwise INFO is used; the remaining arguments are joined with spaces.
func (m *ServiceLogger) LogEvent(v ...interface{}) error {
	level := LOG_LEVEL_INFO
	if len(v) > 1 {
		if l, ok := v[0].(int); ok && l >= LOG_LEVEL_ERROR && l <= LOG_LEVEL_DEBUG {
			level = l
			v = v[1:]
		}
	}
	msg := strings.TrimSuffix(fmt.Sprintln(v...), "\n")

	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.loggerInitialized {
		return ErrLogNotInitialized
	}
	m.logBuffer <- leveledEvent{level, msg}
	return nil
}

// DeInit drains queued events and closes the log file.
func (m *ServiceLogger) DeInit() {
	m.mu.Lock()
	if !m.loggerInitialized {
		m.mu.Unlock()
		return
	}
	m.loggerInitialized = false
	close(m.logBuffer)
	m.mu.Unlock()

	m.wg.Wait()
	if m.handle != nil {
		m.handle.Close()
	}
}

func CheckAndCreateLogFolder(folderNameWithPath string) error {
	if _, err := os.Stat(folderNameWithPath); os.IsNotExist(err) {
		if err := os.MkdirAll(folderNameWithPath, 0755); err != nil {
			return fmt.Errorf("create folder %s: %w", folderNameWithPath, err)
		}
	}
	return nil
}
