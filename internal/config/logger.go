package config

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the root log entry from the log settings
func NewLogger(cfg LogConfig, out io.Writer) *logrus.Entry {
	log := logrus.New()

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	log.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log.WithFields(logrus.Fields{
		"service": "prompt-composer",
	})
}
