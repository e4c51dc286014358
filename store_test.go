package main

import (
	"strings"
	"testing"
)

func TestSanitizeIdentifier(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"budget_reallocator", true},
		{"ad_group_stats", true},
		{"  padded  ", true},
		{"", false},
		{"bad-name", false},
		{"drop table;--", false},
		{"1leading", false},
	}
	for _, tc := range cases {
		got, err := sanitizeIdentifier(tc.value)
		if tc.ok && err != nil {
			t.Fatalf("sanitizeIdentifier(%q) failed: %v", tc.value, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("sanitizeIdentifier(%q) should have failed", tc.value)
		}
		if tc.ok && strings.TrimSpace(tc.value) != got {
			t.Fatalf("sanitizeIdentifier(%q) = %q, want trimmed input", tc.value, got)
		}
	}
}

func TestNullString(t *testing.T) {
	if value := nullString(""); value.Valid {
		t.Fatal("empty string should map to NULL")
	}
	if value := nullString("   "); value.Valid {
		t.Fatal("blank string should map to NULL")
	}
	value := nullString("tag")
	if !value.Valid || value.String != "tag" {
		t.Fatalf("unexpected null string: %+v", value)
	}
}
