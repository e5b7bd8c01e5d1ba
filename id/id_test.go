package id_test

import (
	"strings"
	"testing"
	"time"

	"github.com/xraph/herald/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
		prefix  string
	}{
		{"RoleID", id.NewRoleID, id.ParseRoleID, "irole_"},
		{"AssignmentID", id.NewAssignmentID, id.ParseAssignmentID, "iasgn_"},
		{"ModLogID", id.NewModLogID, id.ParseModLogID, "modlog_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			if !strings.HasPrefix(original.String(), tt.prefix) {
				t.Fatalf("expected prefix %q, got %q", tt.prefix, original.String())
			}
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseRoleID(id.NewAssignmentID().String()); err == nil {
		t.Error("ParseRoleID accepted an assignment ID")
	}
	if _, err := id.ParseAssignmentID(id.NewModLogID().String()); err == nil {
		t.Error("ParseAssignmentID accepted a modlog ID")
	}
	if _, err := id.ParseModLogID(id.NewRoleID().String()); err == nil {
		t.Error("ParseModLogID accepted a role ID")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" || i.Prefix() != "" {
		t.Errorf("expected empty string and prefix, got %q / %q", i.String(), i.Prefix())
	}
}

func TestTextAndSQLRoundTrip(t *testing.T) {
	original := id.NewRoleID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var fromText id.ID
	if err := fromText.UnmarshalText(data); err != nil {
		t.Fatal(err)
	}
	if fromText != original {
		t.Errorf("text mismatch: %q != %q", fromText, original)
	}

	val, err := original.Value()
	if err != nil {
		t.Fatal(err)
	}
	var fromSQL id.ID
	if err := fromSQL.Scan(val); err != nil {
		t.Fatal(err)
	}
	if fromSQL.String() != original.String() {
		t.Errorf("scan mismatch: %q != %q", fromSQL, original)
	}

	var nilID id.ID
	if v, _ := nilID.Value(); v != nil {
		t.Errorf("expected NULL for nil ID, got %v", v)
	}
	if err := fromSQL.Scan(nil); err != nil || !fromSQL.IsNil() {
		t.Errorf("scan(nil) = %v, nil=%v", err, fromSQL.IsNil())
	}
}

func TestCreationOrder(t *testing.T) {
	first := id.NewRoleID()
	time.Sleep(2 * time.Millisecond)
	second := id.NewRoleID()
	if !first.Less(second) {
		t.Errorf("expected %q to sort before %q", first, second)
	}
}
