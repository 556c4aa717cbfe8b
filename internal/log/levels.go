package log

import "log/slog"

// LevelTrace sits below slog.LevelDebug for full graph dumps.
const LevelTrace = slog.Level(-8)

// Verbosity levels selected with -v.
const (
	VerbosityError = 0 // errors only
	VerbosityWarn  = 1 // + warnings (missing legacy twins, stale reports)
	VerbosityInfo  = 2 // + manifest written, watch cycles
	VerbosityDebug = 3 // + per pass and per unit details
	VerbosityTrace = 4 // + resolver walks
)

// VerbosityToLevel maps -v=N to a slog level.
func VerbosityToLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelError
	case v == 1:
		return slog.LevelWarn
	case v == 2:
		return slog.LevelInfo
	case v == 3:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// LevelToVerbosity maps a slog level back to -v=N.
func LevelToVerbosity(l slog.Level) int {
	switch {
	case l >= slog.LevelError:
		return VerbosityError
	case l >= slog.LevelWarn:
		return VerbosityWarn
	case l >= slog.LevelInfo:
		return VerbosityInfo
	case l >= slog.LevelDebug:
		return VerbosityDebug
	default:
		return VerbosityTrace
	}
}

// LevelName returns the display name of l, including TRACE.
func LevelName(l slog.Level) string {
	if l <= LevelTrace {
		return "TRACE"
	}
	return l.String()
}
