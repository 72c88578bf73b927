// Package log is the leveled logging front-end for packetlogd,
// backed by the zap global sugared logger.
package log

import (
	"strings"

	"go.uber.org/zap"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
	FATAL
)

var logLevel = INFO

func init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(logger)
}

func Debug(format string, args ...interface{}) {
	if logLevel <= DEBUG {
		zap.S().Debugf(format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if logLevel <= INFO {
		zap.S().Infof(format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if logLevel <= WARNING {
		zap.S().Warnf(format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if logLevel <= ERROR {
		zap.S().Errorf(format, args...)
	}
}

func Fatal(format string, args ...interface{}) {
	zap.S().Fatalf(format, args...)
}

func SetLevel(level Level) {
	logLevel = level
}

// SetLevelFromString maps a config string ("debug", "info", "warning",
// "error", "fatal") to a level. Unknown strings leave the level unchanged
// and return false.
func SetLevelFromString(s string) bool {
	switch strings.ToLower(s) {
	case "debug":
		logLevel = DEBUG
	case "info":
		logLevel = INFO
	case "warning", "warn":
		logLevel = WARNING
	case "error":
		logLevel = ERROR
	case "fatal":
		logLevel = FATAL
	default:
		return false
	}
	return true
}
