package model

import (
	"strings"
	"testing"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"canonical open", "open", "open", true},
		{"canonical in_progress", "in_progress", "in_progress", true},
		{"canonical resolved", "resolved", "resolved", true},
		{"canonical closed", "closed", "closed", true},
		{"legacy new maps to open", "new", "open", true},
		{"legacy in-progress maps to in_progress", "in-progress", "in_progress", true},
		{"mixed case", "Open", "open", true},
		{"surrounding whitespace", "  resolved ", "resolved", true},
		{"legacy pr is rejected", "pr", "pr", false},
		{"unknown value", "done", "done", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeStatus(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeStatus(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizePriority(t *testing.T) {
	for _, p := range []string{"low", "medium", "high", "urgent"} {
		if got, ok := NormalizePriority(p); !ok || got != p {
			t.Errorf("NormalizePriority(%q) = (%q, %v), want (%q, true)", p, got, ok, p)
		}
	}
	if got, ok := NormalizePriority(" URGENT "); !ok || got != "urgent" {
		t.Errorf("NormalizePriority(\" URGENT \") = (%q, %v), want (\"urgent\", true)", got, ok)
	}
	for _, p := range []string{"", "critical", "p1"} {
		if _, ok := NormalizePriority(p); ok {
			t.Errorf("NormalizePriority(%q) accepted, want rejection", p)
		}
	}
}

func TestValidateNew(t *testing.T) {
	tests := []struct {
		name      string
		ticket    Ticket
		wantField string
	}{
		{
			name:   "valid",
			ticket: Ticket{Subject: "Printer jam", Department: "IT Support", Priority: "high"},
		},
		{
			name:      "missing subject",
			ticket:    Ticket{Department: "IT Support", Priority: "high"},
			wantField: "subject",
		},
		{
			name:      "blank subject",
			ticket:    Ticket{Subject: "   ", Department: "IT Support", Priority: "high"},
			wantField: "subject",
		},
		{
			name:      "subject too long",
			ticket:    Ticket{Subject: strings.Repeat("a", 256), Department: "IT Support", Priority: "low"},
			wantField: "subject",
		},
		{
			name:      "missing department",
			ticket:    Ticket{Subject: "VPN down", Priority: "high"},
			wantField: "department",
		},
		{
			name:      "invalid priority",
			ticket:    Ticket{Subject: "VPN down", Department: "IT Support", Priority: "critical"},
			wantField: "priority",
		},
		{
			name:      "missing priority",
			ticket:    Ticket{Subject: "VPN down", Department: "IT Support"},
			wantField: "priority",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNew(&tt.ticket)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateNew() = %v, want nil", err)
				}
				return
			}
			ve, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("ValidateNew() = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("ValidateNew() field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestValidateNewNormalizesPriority(t *testing.T) {
	tk := Ticket{Subject: "Laptop battery", Department: "IT Support", Priority: " High "}
	if err := ValidateNew(&tk); err != nil {
		t.Fatalf("ValidateNew() = %v, want nil", err)
	}
	if tk.Priority != PriorityHigh {
		t.Errorf("priority = %q, want %q", tk.Priority, PriorityHigh)
	}
}
