package logger

import (
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func New(logLevel string) *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
		log.Warn("unknown log level, use info")
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.JSONFormatter{})

	return log
}

// Discard is a logger for tests and tools that must stay quiet.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// ForUpdate tags every line written while handling one inbound update.
func ForUpdate(log logrus.FieldLogger, userID int64) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"userId":     userID,
		"request_id": uuid.NewString(),
	})
}
