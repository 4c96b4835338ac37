package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

type consoleFormatter struct{}

func (f *consoleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelText string
	switch entry.Level {
	case logrus.InfoLevel:
		levelText = "[INF]"
	case logrus.WarnLevel:
		levelText = "[WARN]"
	case logrus.ErrorLevel:
		levelText = "[ERR]"
	case logrus.DebugLevel:
		levelText = "[DBG]"
	default:
		levelText = "[???]"
	}
	return []byte(fmt.Sprintf("%s %s\n", levelText, entry.Message)), nil
}

// fileFormatter renders "2006-01-02 15:04:05 - INFO - message".
type fileFormatter struct{}

func (f *fileFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	if entry.Level == logrus.WarnLevel {
		level = "WARNING"
	}
	return []byte(fmt.Sprintf("%s - %s - %s\n", entry.Time.Format("2006-01-02 15:04:05"), level, entry.Message)), nil
}

func NewConsoleLogger(out io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&consoleFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// NewFileLogger builds a logger in the stage-log format on an arbitrary sink.
func NewFileLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&fileFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

// StageLog is an append-only log file owned by one pipeline stage for one run.
type StageLog struct {
	*logrus.Logger
	file *os.File
}

func OpenLogFile(path string) (*StageLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &StageLog{Logger: NewFileLogger(file), file: file}, nil
}

func (w *Workspace) OpenStageLog(stage string) (*StageLog, error) {
	return OpenLogFile(w.LogPath(stage))
}

// Writer exposes the raw file for subprocess output.
func (l *StageLog) Writer() io.Writer {
	return l.file
}

func (l *StageLog) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
