package bundle

import (
	"errors"
	"testing"
)

func TestSerializeScalars(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"int", Int(3), "3"},
		{"negative int", Int(-41), "-41"},
		{"float", Float(1.5), "1.5"},
		{"float no exponent", Float(0.00001), "0.00001"},
		{"float integral", Float(2), "2"},
		{"string", String("x"), `"x"`},
		{"string verbatim", String("~/Applications"), `"~/Applications"`},
		{"empty string", String(""), `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Serialize(tt.in)
			if err != nil {
				t.Fatalf("Serialize(%v) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Serialize(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSerializeNested(t *testing.T) {
	v := Dict{
		{Key: "a", Value: Int(1)},
		{Key: "b", Value: List{Bool(true), String("y")}},
	}

	got, err := Serialize(v)
	if err != nil {
		t.Fatalf("Serialize returned error: %v", err)
	}
	want := `{ a: 1, b: [true, "y"] }`
	if got != want {
		t.Errorf("Serialize = %q, want %q", got, want)
	}
}

func TestSerializeKeyOrderPreserved(t *testing.T) {
	v := Dict{
		{Key: "zeta", Value: Int(1)},
		{Key: "alpha", Value: Int(2)},
		{Key: "mid", Value: Int(3)},
	}

	got, err := Serialize(v)
	if err != nil {
		t.Fatalf("Serialize returned error: %v", err)
	}
	want := "{ zeta: 1, alpha: 2, mid: 3 }"
	if got != want {
		t.Errorf("Serialize = %q, want %q (insertion order must be preserved)", got, want)
	}
}

func TestSerializeEmptyContainers(t *testing.T) {
	got, err := Serialize(List{})
	if err != nil {
		t.Fatalf("Serialize(List{}) returned error: %v", err)
	}
	if got != "[]" {
		t.Errorf("Serialize(List{}) = %q, want %q", got, "[]")
	}

	got, err = Serialize(Dict{})
	if err != nil {
		t.Fatalf("Serialize(Dict{}) returned error: %v", err)
	}
	if got != "{}" {
		t.Errorf("Serialize(Dict{}) = %q, want %q", got, "{}")
	}
}

func TestSerializeNilIsAuthoringError(t *testing.T) {
	_, err := Serialize(nil)
	if err == nil {
		t.Fatal("Serialize(nil) did not return an error")
	}
	if !IsAuthoring(err) {
		t.Errorf("Serialize(nil) error is not an authoring error: %v", err)
	}

	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("error is not a ConfigError: %v", err)
	}
	if ce.Class != ErrorClassAuthoring {
		t.Errorf("error class = %q, want %q", ce.Class, ErrorClassAuthoring)
	}
}

func TestSerializeErrorInsideContainer(t *testing.T) {
	_, err := Serialize(List{Int(1), nil})
	if err == nil {
		t.Fatal("Serialize with nil element did not return an error")
	}
	if !IsAuthoring(err) {
		t.Errorf("nested nil error is not an authoring error: %v", err)
	}

	_, err = Serialize(Dict{{Key: "k", Value: nil}})
	if err == nil {
		t.Fatal("Serialize with nil dict value did not return an error")
	}
}
