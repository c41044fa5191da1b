package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		_, ok := IsValidDate(s)
		if !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		if ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	valid := []string{"2024-05-01", " 2024-05-01 ", "2024-05-01T10:30:00Z", "2024-05-01T10:30:00.123+03:00"}
	invalid := []string{"", "01/05/2024", "May 1st", "2024-05-01 10:30"}
	for _, s := range valid {
		if _, ok := ParseTimestamp(s); !ok {
			t.Errorf("ParseTimestamp(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := ParseTimestamp(s); ok {
			t.Errorf("ParseTimestamp(%q) = true, want false", s)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	if !IsInSlice("a", slice) {
		t.Errorf("IsInSlice('a') = false, want true")
	}
	if IsInSlice("d", slice) {
		t.Errorf("IsInSlice('d') = true, want false")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" accounting, legal_status_active ,, ")
	if len(got) != 2 || got[0] != "accounting" || got[1] != "legal_status_active" {
		t.Errorf("SplitList() = %v", got)
	}
	if SplitList("  ") != nil {
		t.Errorf("SplitList(blank) should be nil")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "date", Message: "is required"},
		{Field: "document_set", Message: "unknown document set"},
	}
	got := errs.Error()
	want := "date: is required; document_set: unknown document set"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "date", Message: "is required"},
		{Field: "file", Message: "file is empty"},
	}
	got := errs.ToMap()
	want := map[string]string{"date": "is required", "file": "file is empty"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
