package envelope

import (
	"time"

	"varlens/internal/errors"
)

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	resp *Response
}

// New creates a new envelope builder.
func New() *Builder {
	return &Builder{
		resp: &Response{
			SchemaVersion: CurrentSchemaVersion,
		},
	}
}

// Command records the command this response answers.
func (b *Builder) Command(name string) *Builder {
	b.resp.Command = name
	return b
}

// Data sets the command-specific payload.
func (b *Builder) Data(data any) *Builder {
	b.resp.Data = data
	return b
}

// WithTruncation adds truncation metadata. A non-truncated result leaves the
// envelope untouched.
func (b *Builder) WithTruncation(truncated bool, shown, total int, reason string) *Builder {
	if !truncated {
		return b
	}

	b.meta().Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
		Reason:      reason,
	}
	return b
}

// WithCache adds cache status. Age is only reported for hits.
func (b *Builder) WithCache(hit bool, age time.Duration, key string) *Builder {
	info := &CacheInfo{Hit: hit, Key: key}
	if hit {
		info.Age = age.Round(time.Millisecond).String()
	}
	b.meta().Cache = info
	return b
}

// WithTiming records the wall-clock handler duration.
func (b *Builder) WithTiming(d time.Duration) *Builder {
	b.meta().DurationMs = d.Milliseconds()
	return b
}

// WithRequestID tags the response for log correlation.
func (b *Builder) WithRequestID(id string) *Builder {
	if id != "" {
		b.meta().RequestID = id
	}
	return b
}

// Warning adds a warning message.
func (b *Builder) Warning(msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Message: msg})
	return b
}

// WarningWithCode adds a warning with a machine-readable code.
func (b *Builder) WarningWithCode(code, msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: msg})
	return b
}

// Error turns this into a failure envelope. Structured errors contribute
// their code and details; anything else is reported as an internal error.
func (b *Builder) Error(err error) *Builder {
	if err == nil {
		return b
	}

	if le, ok := errors.AsLensError(err); ok {
		msg := le.Message
		if cause := le.Unwrap(); cause != nil {
			msg = msg + ": " + cause.Error()
		}
		b.resp.Error = &msg
		b.resp.Code = string(le.Code)
		if len(le.Details) > 0 {
			b.resp.Details = le.Details
		}
		return b
	}

	msg := err.Error()
	b.resp.Error = &msg
	b.resp.Code = string(errors.InternalError)
	return b
}

// Build returns the completed response envelope.
func (b *Builder) Build() *Response {
	return b.resp
}

func (b *Builder) meta() *Meta {
	if b.resp.Meta == nil {
		b.resp.Meta = &Meta{}
	}
	return b.resp.Meta
}

// Operational creates a simple envelope for administrative results that carry
// no engine data (cache invalidation, stats, health).
func Operational(data any) *Response {
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Data:          data,
	}
}
