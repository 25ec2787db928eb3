package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/rcflow/rcflow/domain/audit"
	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/remoteconfig"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := bolt.NewJSONHandler(buf)
	logger := bolt.New(handler).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()

	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "console" {
		t.Errorf("Format = %s, want console", config.Format)
	}
	if config.Output != os.Stdout {
		t.Errorf("Output = %v, want os.Stdout", config.Output)
	}
}

func TestProductionConfig(t *testing.T) {
	t.Parallel()

	config := ProductionConfig()

	if config.Level != "info" {
		t.Errorf("Level = %s, want info", config.Level)
	}
	if config.Format != "json" {
		t.Errorf("Format = %s, want json", config.Format)
	}
	if config.Output != os.Stdout {
		t.Errorf("Output = %v, want os.Stdout", config.Output)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO}, // Default
		{"", bolt.INFO},        // Empty defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestChangeRequestIDField(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	field := ChangeRequestID("cr-123")
	if field == nil {
		t.Fatal("ChangeRequestID() returned nil")
	}

	event := logger.Info()
	field(event).Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"change_request_id":"cr-123"`)) {
		t.Errorf("expected change_request_id field in output: %s", buf.String())
	}
}

func TestEnvField(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	event := logger.Info()
	Env(remoteconfig.EnvStaging)(event).Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"environment":"staging"`)) {
		t.Errorf("expected environment field in output: %s", buf.String())
	}
}

func TestStatusFields(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	event := logger.Info()
	FromStatus(changerequest.StatusDraft)(ToStatus(changerequest.StatusPendingReview)(event)).Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"from_status":"draft"`)) {
		t.Errorf("expected from_status field in output: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"to_status":"pending_review"`)) {
		t.Errorf("expected to_status field in output: %s", buf.String())
	}
}

func TestActionField(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	event := logger.Info()
	Action(audit.ActionReviewerApproved)(event).Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"action":"reviewer_approved"`)) {
		t.Errorf("expected action field in output: %s", buf.String())
	}
}

func TestDurationField(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	field := Duration(100 * time.Millisecond)
	if field == nil {
		t.Fatal("Duration() returned nil")
	}

	event := logger.Info()
	field(event).Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"duration_ms":100`)) {
		t.Errorf("expected duration_ms field in output: %s", buf.String())
	}
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	event := logger.Info()
	ErrorField(errors.New("boom"))(event).Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`boom`)) {
		t.Errorf("expected error in output: %s", buf.String())
	}
}

func TestErrorFieldNil(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	event := logger.Info()
	ErrorField(nil)(event).Msg("test")

	if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
		t.Errorf("nil error should not emit error field: %s", buf.String())
	}
}

func TestLogEventChaining(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	NewEvent(logger.Info()).
		Add(Component("workflow")).
		Add(Operation("publish")).
		Add(ReviewerID("rev-1")).
		Add(Actor("u1")).
		Add(Str("custom", "value")).
		Add(Int("count", 2)).
		Msg("test")

	for _, want := range []string{
		`"component":"workflow"`,
		`"operation":"publish"`,
		`"reviewer_id":"rev-1"`,
		`"actor":"u1"`,
		`"custom":"value"`,
		`"count":2`,
	} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("expected %s in output: %s", want, buf.String())
		}
	}
}
