package envelope

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"varlens/internal/errors"
)

func TestBuilder_Success(t *testing.T) {
	resp := New().
		Command("lint").
		Data(map[string]any{"count": 3}).
		Build()

	if resp.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", resp.SchemaVersion, CurrentSchemaVersion)
	}
	if resp.Command != "lint" {
		t.Errorf("Command = %q, want %q", resp.Command, "lint")
	}
	if resp.IsError() {
		t.Error("success envelope should not report IsError")
	}
	if resp.Code != "" {
		t.Errorf("Code = %q, want empty on success", resp.Code)
	}
}

func TestBuilder_WithTruncation(t *testing.T) {
	// Non-truncated results leave meta untouched
	resp := New().Data("x").WithTruncation(false, 10, 10, "").Build()
	if resp.Meta != nil && resp.Meta.Truncation != nil {
		t.Error("WithTruncation(false, ...) should be a no-op")
	}

	resp = New().Data("x").WithTruncation(true, 200, 250, "limit").Build()
	if resp.Meta == nil || resp.Meta.Truncation == nil {
		t.Fatal("truncation metadata missing")
	}
	tr := resp.Meta.Truncation
	if !tr.IsTruncated || tr.Shown != 200 || tr.Total != 250 {
		t.Errorf("Truncation = %+v", tr)
	}
}

func TestBuilder_WithCache(t *testing.T) {
	resp := New().WithCache(true, 90*time.Second, "abc123").Build()

	info := resp.Meta.Cache
	if info == nil {
		t.Fatal("cache metadata missing")
	}
	if !info.Hit {
		t.Error("Hit should be true")
	}
	if info.Age != "1m30s" {
		t.Errorf("Age = %q, want %q", info.Age, "1m30s")
	}
	if info.Key != "abc123" {
		t.Errorf("Key = %q", info.Key)
	}

	// Misses carry no age
	resp = New().WithCache(false, 0, "abc123").Build()
	if resp.Meta.Cache.Age != "" {
		t.Errorf("miss Age = %q, want empty", resp.Meta.Cache.Age)
	}
}

func TestBuilder_Error_LensError(t *testing.T) {
	lensErr := errors.NewUnknownCommand("frobnicate", []string{"lint", "analyze"})

	resp := New().Command("frobnicate").Error(lensErr).Build()

	if !resp.IsError() {
		t.Fatal("IsError() should be true")
	}
	if resp.Code != "UNKNOWN_COMMAND" {
		t.Errorf("Code = %q, want UNKNOWN_COMMAND", resp.Code)
	}
	if resp.Details == nil {
		t.Fatal("Details missing")
	}
	available, ok := resp.Details["available"].([]string)
	if !ok || len(available) != 2 {
		t.Errorf("Details.available = %v", resp.Details["available"])
	}
	if !strings.Contains(*resp.Error, "frobnicate") {
		t.Errorf("Error = %q should name the rejected command", *resp.Error)
	}
}

func TestBuilder_Error_WithCause(t *testing.T) {
	cause := errors.NewEngineFailure("lint", errStub("exit status 2"))

	resp := New().Error(cause).Build()

	if resp.Code != "ENGINE_FAILURE" {
		t.Errorf("Code = %q", resp.Code)
	}
	// The underlying engine message must be surfaced
	if !strings.Contains(*resp.Error, "exit status 2") {
		t.Errorf("Error = %q should carry the cause", *resp.Error)
	}
}

func TestBuilder_Error_Plain(t *testing.T) {
	resp := New().Error(errStub("boom")).Build()

	if resp.Code != "INTERNAL_ERROR" {
		t.Errorf("Code = %q, want INTERNAL_ERROR for plain errors", resp.Code)
	}
	if *resp.Error != "boom" {
		t.Errorf("Error = %q", *resp.Error)
	}
}

func TestBuilder_Error_Nil(t *testing.T) {
	resp := New().Data("ok").Error(nil).Build()
	if resp.IsError() {
		t.Error("Error(nil) should not mark the envelope as failed")
	}
}

func TestBuilder_Warnings(t *testing.T) {
	resp := New().
		Warning("first").
		WarningWithCode("CACHE_COLD", "second").
		Build()

	if len(resp.Warnings) != 2 {
		t.Fatalf("got %d warnings, want 2", len(resp.Warnings))
	}
	if resp.Warnings[1].Code != "CACHE_COLD" {
		t.Errorf("Warnings[1].Code = %q", resp.Warnings[1].Code)
	}
}

func TestResponse_JSONShape(t *testing.T) {
	resp := New().
		Command("callers").
		Data([]int{1, 2}).
		WithTruncation(true, 2, 5, "limit").
		WithTiming(1500 * time.Millisecond).
		WithRequestID("req-1").
		Build()

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["schemaVersion"] != "1.0" {
		t.Errorf("schemaVersion = %v", decoded["schemaVersion"])
	}
	if _, present := decoded["error"]; present {
		t.Error("success envelope should omit the error field entirely")
	}

	meta, ok := decoded["meta"].(map[string]any)
	if !ok {
		t.Fatal("meta missing")
	}
	if meta["durationMs"] != float64(1500) {
		t.Errorf("durationMs = %v", meta["durationMs"])
	}
	if meta["requestId"] != "req-1" {
		t.Errorf("requestId = %v", meta["requestId"])
	}
}

func TestOperational(t *testing.T) {
	resp := Operational(map[string]int{"cleared": 4})

	if resp.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %q", resp.SchemaVersion)
	}
	if resp.IsError() {
		t.Error("operational envelope should not be an error")
	}
}

type errStub string

func (e errStub) Error() string { return string(e) }
