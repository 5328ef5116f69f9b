package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var Logger = newLogger(os.Stderr, logrus.InfoLevel)

var (
	mu      sync.Mutex
	logFile *os.File
)

type formatter struct{}

// Format renders "[time] [LEVL] (file:line) message k=v ..."
func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] (%s) %s",
		entry.Time.Format("15:04:05 MST 2006/01/02"),
		level,
		caller(),
		entry.Message)

	for k, v := range entry.Data {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	b.WriteByte('\n')

	return []byte(b.String()), nil
}

func caller() string {
	for i := 2; i < 20; i++ {
		_, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		if strings.Contains(file, "sirupsen") || strings.HasSuffix(file, "logger/logger.go") {
			continue
		}

		return fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	return "unknown:0"
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&formatter{})
	l.SetLevel(level)
	return l
}

func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Init replaces the package logger. An empty path logs to stderr. A log
// file opened by an earlier Init is closed.
func Init(level, path string) error {
	var out io.Writer = os.Stderr
	var f *os.File
	if path != "" {
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file %s: %v", path, err)
		}
		out = f
	}

	return swap(newLogger(out, ParseLevel(level)), f)
}

// Close goes back to logging on stderr and closes the log file, if any.
func Close() error {
	return swap(newLogger(os.Stderr, Logger.GetLevel()), nil)
}

func swap(l *logrus.Logger, f *os.File) error {
	mu.Lock()
	defer mu.Unlock()

	prev := logFile
	Logger = l
	logFile = f

	if prev != nil {
		return prev.Close()
	}
	return nil
}

func Debugf(format string, args ...any) { Logger.Debugf(format, args...) }
func Infof(format string, args ...any)  { Logger.Infof(format, args...) }
func Warnf(format string, args ...any)  { Logger.Warnf(format, args...) }
func Errorf(format string, args ...any) { Logger.Errorf(format, args...) }

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}
