// Package envelope provides the standardized response wrapper for all tool
// responses. Success and failure share one shape: a failure envelope carries
// the error message, its code, and structured details next to the command
// that produced it, so composite callers can route on code without parsing
// message text.
package envelope

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`
	Total       int    `json:"total,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// CacheInfo describes cache status for this response.
type CacheInfo struct {
	Hit bool   `json:"hit"`
	Age string `json:"age,omitempty"` // if hit, how old (e.g., "2m30s")
	Key string `json:"key,omitempty"` // cache key for debugging
}

// Meta holds response metadata.
type Meta struct {
	Truncation *Truncation `json:"truncation,omitempty"`
	Cache      *CacheInfo  `json:"cache,omitempty"`
	DurationMs int64       `json:"durationMs,omitempty"`
	RequestID  string      `json:"requestId,omitempty"`
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Response is the standard envelope for all tool responses.
type Response struct {
	SchemaVersion string         `json:"schemaVersion"`
	Command       string         `json:"command,omitempty"`
	Data          any            `json:"data,omitempty"`
	Meta          *Meta          `json:"meta,omitempty"`
	Warnings      []Warning      `json:"warnings,omitempty"`
	Error         *string        `json:"error,omitempty"`
	Code          string         `json:"code,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// IsError reports whether this is a failure envelope.
func (r *Response) IsError() bool {
	return r.Error != nil
}
