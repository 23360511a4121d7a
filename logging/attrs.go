package logging

import "log/slog"

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Workflow(name string) slog.Attr {
	return slog.String("workflow", name)
}

func RunID(id string) slog.Attr {
	return slog.String("run_id", id)
}

func ContextID(id string) slog.Attr {
	return slog.String("context_id", id)
}

func Step(name string) slog.Attr {
	return slog.String("step", name)
}

func EventType(name string) slog.Attr {
	return slog.String("event_type", name)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
