package logging

import (
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// UseLoggingInterface routes fx's own lifecycle events through the
// logging.Interface provided inside the container being built, instead of
// fx's default console output.
var UseLoggingInterface fx.Option = fx.WithLogger(
	func(logger Interface) fxevent.Logger {
		return &fxAdapter{Interface: logger}
	},
)

type fxAdapter struct{ Interface }

// LogEvent logs an fx app event to the underlying logging.Interface.
func (f fxAdapter) LogEvent(event fxevent.Event) {
	log := f.Interface.WithField("fx", "event")

	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		log.WithField("callee", e.FunctionName).
			WithField("caller", e.CallerName).
			Info("OnStart hook executing")
	case *fxevent.OnStartExecuted:
		outcome(log.WithField("callee", e.FunctionName).
			WithField("caller", e.CallerName).
			WithField("method", e.Method).
			WithField("runtime", e.Runtime.String()),
			"OnStart hook", e.Err)
	case *fxevent.OnStopExecuting:
		log.WithField("callee", e.FunctionName).
			WithField("caller", e.CallerName).
			Info("OnStop hook executing")
	case *fxevent.OnStopExecuted:
		outcome(log.WithField("callee", e.FunctionName).
			WithField("caller", e.CallerName).
			WithField("runtime", e.Runtime.String()),
			"OnStop hook", e.Err)
	case *fxevent.Supplied:
		log.WithField("type", e.TypeName).
			WithError(e.Err).
			Info("Supplied")
	case *fxevent.Provided:
		for _, rtype := range e.OutputTypeNames {
			log.WithField("constructor", e.ConstructorName).
				WithField("type", rtype).
				Info("Provided")
		}
		if e.Err != nil {
			log.WithError(e.Err).Error("error encountered while applying options")
		}
	case *fxevent.Invoking:
		log.WithField("function", e.FunctionName).
			Info("Invoking")
	case *fxevent.Invoked:
		outcome(log.WithField("stack", e.Trace).
			WithField("function", e.FunctionName),
			"Invoke", e.Err)
	case *fxevent.Stopping:
		log.WithField("signal", strings.ToUpper(e.Signal.String())).
			Info("Stopping: received signal")
	case *fxevent.Stopped:
		outcome(log, "App stop", e.Err)
	case *fxevent.RollingBack:
		outcome(log, "Start failed, rolling back", e.StartErr)
	case *fxevent.RolledBack:
		outcome(log, "Rollback", e.Err)
	case *fxevent.Started:
		outcome(log, "App start", e.Err)
	case *fxevent.LoggerInitialized:
		outcome(log.WithField("function", e.ConstructorName),
			"Custom logger initialization", e.Err)
	default:
		log.WithField("event", event).Warn("Unknown fx event")
	}
}

func outcome(log Interface, msg string, err error) {
	if err == nil {
		log.Info(msg + " succeeded")
		return
	}

	log.WithError(err).Error(msg + " failed")
}
