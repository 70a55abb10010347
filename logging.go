package reconbank

import "github.com/sirupsen/logrus"

// Per-component structured loggers. Each subsystem gets its own
// *logrus.Entry with a fixed "component" field so log lines can be
// filtered per component without parsing messages.
var (
	logClassifier = logrus.WithField("component", "classifier")
	logDispatcher = logrus.WithField("component", "dispatcher")
	logExecutor   = logrus.WithField("component", "executor")
	logTDC        = logrus.WithField("component", "tdc_assigner")
	logStorage    = logrus.WithField("component", "storage")
	logValidators = logrus.WithField("component", "validators")
	logEngine     = logrus.WithField("component", "engine")
)

// SetLogLevel parses level (e.g. "debug", "info", "warn") and applies it
// to the package-wide logrus standard logger. Unrecognized levels leave
// the current level unchanged and log a warning.
func SetLogLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logEngine.WithField("requested_level", level).Warn("unrecognized log level, keeping current")
		return
	}
	logrus.SetLevel(lvl)
}
