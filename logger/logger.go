package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// LogBuild collects the logger settings; Make turns them into a logger.
type LogBuild struct {
	writer io.Writer
	path   string
	level  string
	pretty bool
}

type LogData struct {
	LogFile *os.File
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{writer: os.Stdout, level: "info"}
}

// FromPath appends to the file instead of writing to stdout.
func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

func (build *LogBuild) Level(level string) *LogBuild {
	build.level = level
	return build
}

// Pretty switches from JSON lines to zerolog's console format.
func (build *LogBuild) Pretty(pretty bool) *LogBuild {
	build.pretty = pretty
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	level, err := zerolog.ParseLevel(build.level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logData = new(LogData)
	writer := build.writer
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		writer = zerolog.SyncWriter(logData.LogFile)
	}
	if build.pretty {
		writer = zerolog.ConsoleWriter{Out: writer}
	}
	logData.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logData, nil
}

// Close closes the log file, if any.
func (logData *LogData) Close() error {
	if logData.LogFile == nil {
		return nil
	}
	return logData.LogFile.Close()
}
