// Package log provides the validator's global logger: a rotating,
// level-filtered logrus logger configured once via SetGlobalLogger and
// used everywhere else through its package-level Debugf/Infof/Warnf/
// Errorf helpers.
package log

import (
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

const (
	defaultLogLevel = logrus.InfoLevel

	globalLogFileName = "global.log"
	logDir             = "nodelogs"

	logMaxSizeMB  = 500 // maximum file size before rotation, in MB
	logMaxBackups = 3   // maximum number of old log files to keep
	logMaxAgeDays = 28  // maximum number of days to retain old log files
)

var (
	logger *logrus.Logger

	defaultLogFilePath = "./" + logDir + "/" + globalLogFileName
)

func init() {
	logger = createStandardLogger(defaultLogFilePath, defaultLogLevel.String())
}

// SetGlobalLogger points the global logger at logFilename (falling back to
// the default nodelogs path if empty) and sets its level, parsing logLevel
// with logrus and falling back to defaultLogLevel if it doesn't parse.
func SetGlobalLogger(logFilename string, logLevel string) {
	if logFilename == "" {
		logFilename = defaultLogFilePath
	}
	output := &lumberjack.Logger{
		Filename:   logFilename,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
	}
	logger.SetOutput(io.MultiWriter(output, os.Stdout))

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = defaultLogLevel
	}
	logger.SetLevel(level)
}

func createStandardLogger(logFilename string, logLevel string) *logrus.Logger {
	l := logrus.New()
	output := &lumberjack.Logger{
		Filename:   logFilename,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
	}
	l.SetOutput(output)
	l.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		PadLevelText:    true,
		FullTimestamp:   true,
		TimestampFormat: "01-02|15:04:05.000",
	})
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = defaultLogLevel
	}
	l.SetLevel(level)
	return l
}

func Debugf(msg string, args ...interface{}) {
	logger.Debugf(msg, args...)
}

func Infof(msg string, args ...interface{}) {
	logger.Infof(msg, args...)
}

func Warnf(msg string, args ...interface{}) {
	logger.Warnf(msg, args...)
}

func Errorf(msg string, args ...interface{}) {
	logger.Errorf(msg, args...)
}
