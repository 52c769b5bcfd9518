package store

import (
	"bytes"
	"testing"
)

func TestCanonicalJSONSortsKeysRecursively(t *testing.T) {
	input := []byte(`{"zeta":1,"alpha":{"nested_z":true,"nested_a":[{"b":2,"a":1}]},"beta":"x"}`)

	want := `{
  "alpha": {
    "nested_a": [
      {
        "a": 1,
        "b": 2
      }
    ],
    "nested_z": true
  },
  "beta": "x",
  "zeta": 1
}`

	got, err := CanonicalJSON(input)
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	if string(got) != want {
		t.Errorf("CanonicalJSON =\n%s\nwant\n%s", got, want)
	}
}

func TestCanonicalJSONIdempotent(t *testing.T) {
	inputs := []string{
		`{"b": 2, "a": 1}`,
		`{"outer": {"z": [1, 2, {"y": null, "x": "s"}], "a": 1.5}}`,
		`[]`,
		`{}`,
		`{"empty_obj": {}, "empty_arr": [], "num": 12.340, "neg": -7}`,
		`"just a string"`,
		`42`,
		`null`,
	}

	for _, input := range inputs {
		first, err := CanonicalJSON([]byte(input))
		if err != nil {
			t.Fatalf("CanonicalJSON(%q) failed: %v", input, err)
		}
		second, err := CanonicalJSON(first)
		if err != nil {
			t.Fatalf("CanonicalJSON of canonical output failed: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("canonicalization not idempotent for %q:\nfirst:  %s\nsecond: %s", input, first, second)
		}
	}
}

// TestCanonicalJSONPreservesNumberLiterals checks that numbers are not
// reformatted, which would break idempotency.
func TestCanonicalJSONPreservesNumberLiterals(t *testing.T) {
	got, err := CanonicalJSON([]byte(`{"a": 1.50, "b": 1e3}`))
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	want := "{\n  \"a\": 1.50,\n  \"b\": 1e3\n}"
	if string(got) != want {
		t.Errorf("CanonicalJSON = %q, want %q", got, want)
	}
}

func TestCanonicalJSONRejectsInvalidInput(t *testing.T) {
	invalid := []string{
		``,
		`{"a":`,
		`{"a": 1} trailing`,
		`not json`,
	}
	for _, input := range invalid {
		if _, err := CanonicalJSON([]byte(input)); err == nil {
			t.Errorf("CanonicalJSON(%q) succeeded, want error", input)
		}
	}
}
