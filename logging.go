package bli

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the logger used by the command line tools.
func NewLogger(level, format string) (*logrus.Logger, error) {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	logger.SetLevel(lvl)

	switch format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Errorf("unknown log format %q: must be one of: text, json", format)
	}

	return logger, nil
}

// LogOptions are the logging flags shared by the command line tools.
type LogOptions struct {
	Level  string `long:"log-level" default:"info" description:"log level: trace, debug, info, warn, error"`
	Format string `long:"log-format" default:"text" choice:"text" choice:"json" description:"log output format"`
}

// Logger builds a logger from the flags.
func (o LogOptions) Logger() (*logrus.Logger, error) {
	return NewLogger(o.Level, o.Format)
}

func loggerOrDiscard(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger != nil {
		return logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
