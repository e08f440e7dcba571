package sift

import "github.com/zoobzio/capitan"

// Signals for database and index lifecycle events.
var (
	QueryStarted    = capitan.NewSignal("sift.query.started", "Query execution initiated")
	QueryCompleted  = capitan.NewSignal("sift.query.completed", "Query execution succeeded")
	QueryFailed     = capitan.NewSignal("sift.query.failed", "Query execution failed")
	GetStarted      = capitan.NewSignal("sift.get.started", "Record fetch initiated")
	GetCompleted    = capitan.NewSignal("sift.get.completed", "Record fetch succeeded")
	GetFailed       = capitan.NewSignal("sift.get.failed", "Record fetch failed")
	DeleteStarted   = capitan.NewSignal("sift.delete.started", "Record deletion initiated")
	DeleteCompleted = capitan.NewSignal("sift.delete.completed", "Record deletion succeeded")
	DeleteFailed    = capitan.NewSignal("sift.delete.failed", "Record deletion failed")
	SearchStarted   = capitan.NewSignal("sift.search.started", "Similarity search initiated")
	SearchCompleted = capitan.NewSignal("sift.search.completed", "Similarity search succeeded")
	SearchFailed    = capitan.NewSignal("sift.search.failed", "Similarity search failed")
)

// Field keys for event extraction.
var (
	FieldTable    = capitan.NewStringKey("table")
	FieldKey      = capitan.NewStringKey("key")
	FieldDuration = capitan.NewDurationKey("duration")
	FieldError    = capitan.NewErrorKey("error")
	FieldCount    = capitan.NewIntKey("count")
	FieldLimit    = capitan.NewIntKey("limit")
)
