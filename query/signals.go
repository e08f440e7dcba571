package query

import "github.com/zoobzio/capitan"

// Signals for statement compilation.
var (
	CompileCompleted = capitan.NewSignal("sift.query.compile.completed", "Statement translated and rendered")
	CompileFailed    = capitan.NewSignal("sift.query.compile.failed", "Statement compilation failed")
)

// Field keys for event extraction.
var (
	FieldTable    = capitan.NewStringKey("table")
	FieldSQL      = capitan.NewStringKey("sql")
	FieldParams   = capitan.NewIntKey("params")
	FieldDuration = capitan.NewDurationKey("duration")
	FieldError    = capitan.NewErrorKey("error")
)
