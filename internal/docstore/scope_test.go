package docstore

import (
	"errors"
	"testing"
)

func TestNormalizeScopeCanonicalizes(t *testing.T) {
	scope, err := NormalizeScope(ScopeInput{
		Platform:      "  iOS ",
		Line:          "CONSUMER",
		DocType:       "TERMS",
		Lang:          " en-US ",
		EffectiveDate: "2024-03-01",
	})
	if err != nil {
		t.Fatalf("NormalizeScope() error = %v", err)
	}
	if scope.Platform != "ios" {
		t.Errorf("platform = %q, want %q", scope.Platform, "ios")
	}
	if scope.Line != "consumer" {
		t.Errorf("line = %q, want %q", scope.Line, "consumer")
	}
	if scope.DocType != "terms" {
		t.Errorf("docType = %q, want %q", scope.DocType, "terms")
	}
	// Language casing is preserved: en-US and en-us are distinct scopes.
	if scope.Lang != "en-US" {
		t.Errorf("lang = %q, want %q", scope.Lang, "en-US")
	}
	if scope.EffectiveDate != "2024-03-01" {
		t.Errorf("effectiveDate = %q, want %q", scope.EffectiveDate, "2024-03-01")
	}
}

func TestNormalizeScopeLineOptional(t *testing.T) {
	scope, err := NormalizeScope(ScopeInput{
		Platform:      "web",
		DocType:       "privacy",
		Lang:          "it",
		EffectiveDate: "2023-12-31",
	})
	if err != nil {
		t.Fatalf("NormalizeScope() error = %v", err)
	}
	if scope.Line != "" {
		t.Errorf("line = %q, want empty", scope.Line)
	}
}

func TestNormalizeScopeRejections(t *testing.T) {
	cases := []struct {
		name  string
		input ScopeInput
		field string
	}{
		{"missing platform", ScopeInput{DocType: "terms", Lang: "en", EffectiveDate: "2024-01-01"}, "platform"},
		{"blank platform", ScopeInput{Platform: "   ", DocType: "terms", Lang: "en", EffectiveDate: "2024-01-01"}, "platform"},
		{"unknown docType", ScopeInput{Platform: "ios", DocType: "eula", Lang: "en", EffectiveDate: "2024-01-01"}, "docType"},
		{"missing lang", ScopeInput{Platform: "ios", DocType: "terms", EffectiveDate: "2024-01-01"}, "lang"},
		{"slash date", ScopeInput{Platform: "ios", DocType: "terms", Lang: "en", EffectiveDate: "2024/01/01"}, "effectiveDate"},
		{"short date", ScopeInput{Platform: "ios", DocType: "terms", Lang: "en", EffectiveDate: "2024-1-1"}, "effectiveDate"},
		{"missing date", ScopeInput{Platform: "ios", DocType: "terms", Lang: "en"}, "effectiveDate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeScope(tc.input)
			if err == nil {
				t.Fatalf("NormalizeScope() expected error for %s", tc.name)
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("NormalizeScope() error = %T, want *ValidationError", err)
			}
			if validationErr.Field != tc.field {
				t.Errorf("field = %q, want %q", validationErr.Field, tc.field)
			}
		})
	}
}

func TestNormalizeScopeAcceptsNonCalendarDate(t *testing.T) {
	// Pattern check only: 2024-13-45 matches YYYY-MM-DD and is accepted.
	if _, err := NormalizeScope(ScopeInput{
		Platform:      "ios",
		DocType:       "terms",
		Lang:          "en",
		EffectiveDate: "2024-13-45",
	}); err != nil {
		t.Fatalf("NormalizeScope() error = %v", err)
	}
}

func TestHashContent(t *testing.T) {
	a := HashContent([]byte("hello"))
	b := HashContent([]byte("hello"))
	c := HashContent([]byte("world"))
	if a != b {
		t.Errorf("same content hashed differently: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("different content produced the same hash")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}
