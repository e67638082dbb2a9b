package logsinkhook

import (
	"github.com/sirupsen/logrus"

	"github.com/logsink-io/logsink/pkg/pipeline"
	"github.com/logsink-io/logsink/pkg/sink"
)

// Install builds a pipeline over the sink, starts its delivery goroutine and
// attaches a hook to the standard logrus logger. The returned pipeline is
// the host's handle for counters; the hook itself is process-wide from this
// point on, mirroring a global subscriber installation.
func Install(s sink.Sink, cfg pipeline.Config, opts ...Option) *pipeline.Pipeline {
	p := pipeline.New(s, cfg)
	p.Start()
	logrus.AddHook(New(p, opts...))
	return p
}

// InstallOn is Install for a specific logger instance, for hosts that avoid
// the global logrus logger.
func InstallOn(logger *logrus.Logger, s sink.Sink, cfg pipeline.Config, opts ...Option) *pipeline.Pipeline {
	p := pipeline.New(s, cfg)
	p.Start()
	logger.AddHook(New(p, opts...))
	return p
}
