// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"strings"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{expr: "4 * 7 / 3", want: "9.333333333333334"},
		{expr: "37 + 20", want: "57"},
		{expr: "(2 + 3) * -4", want: "-20"},
		{expr: "17 // 5", want: "3"},
		{expr: "17 % 5", want: "2"},
		{expr: " 1.5 * 2 ", want: "3.0"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q) failed: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateRejectsNonArithmetic(t *testing.T) {
	for _, expr := range []string{
		"",
		"x + 1",
		`"a" * 3`,
		"len([1, 2])",
		"[1, 2]",
		"1 if True else 2",
		"1 < 2",
		"not 1",
		"lambda: 1",
		"1 +",
	} {
		if got, err := Evaluate(expr); err == nil {
			t.Errorf("Evaluate(%q) = %q, want error", expr, got)
		}
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	if _, err := Evaluate("1 / 0"); err == nil {
		t.Fatal("expected division error")
	}
}

func TestCalculatorReportsErrorsAsObservation(t *testing.T) {
	calc := Calculator()
	if calc.Name() != "calculate" {
		t.Fatalf("Name() = %q", calc.Name())
	}
	out, err := calc.Perform(context.Background(), "import os")
	if err != nil {
		t.Fatalf("Perform returned error: %v", err)
	}
	if !strings.HasPrefix(out, "error: ") {
		t.Errorf("Perform() = %q, want an error observation", out)
	}

	out, err = calc.Perform(context.Background(), "2 * 21")
	if err != nil || out != "42" {
		t.Errorf("Perform() = %q, %v", out, err)
	}
}

func TestDogWeight(t *testing.T) {
	dog := DogWeight()
	tests := map[string]string{
		"Border Collie":    "a Border Collies average weight is 37 lbs",
		" poodle ":         "a poodles average weight is 27 lbs",
		"Chihuahua":        "Have no idea about the average weight for Chihuahua, but an average dog weights 50 lbs",
		"scottish terrier": "Scottish Terriers average 20 lbs",
	}
	for in, want := range tests {
		got, err := dog.Perform(context.Background(), in)
		if err != nil {
			t.Fatalf("Perform(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("Perform(%q) = %q, want %q", in, got, want)
		}
	}
}
