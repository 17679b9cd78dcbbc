package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through a call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRunID is the scrape run ID
	FieldRunID = "run_id"

	// FieldTrigger is what started a scrape run (scheduled, manual, cli)
	FieldTrigger = "trigger"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSource is the job board source name
	FieldSource = "source"

	// FieldUniqueKey is the dedup key of a job posting
	FieldUniqueKey = "unique_key"
)

// Metric fields, attached per log line through the Entry API.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldNewCount is the number of newly inserted postings
	FieldNewCount = "new_count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
