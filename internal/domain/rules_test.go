package domain

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Move
		expected Outcome
	}{
		{name: "rock vs rock", a: Rock, b: Rock, expected: OutcomeDraw},
		{name: "rock vs paper", a: Rock, b: Paper, expected: OutcomeB},
		{name: "rock vs scissors", a: Rock, b: Scissors, expected: OutcomeA},
		{name: "paper vs rock", a: Paper, b: Rock, expected: OutcomeA},
		{name: "paper vs paper", a: Paper, b: Paper, expected: OutcomeDraw},
		{name: "paper vs scissors", a: Paper, b: Scissors, expected: OutcomeB},
		{name: "scissors vs rock", a: Scissors, b: Rock, expected: OutcomeB},
		{name: "scissors vs paper", a: Scissors, b: Paper, expected: OutcomeA},
		{name: "scissors vs scissors", a: Scissors, b: Scissors, expected: OutcomeDraw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.a, tt.b); got != tt.expected {
				t.Errorf("Resolve(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.expected)
			}
			// Repeated calls never change the answer.
			if got := Resolve(tt.a, tt.b); got != tt.expected {
				t.Errorf("Resolve(%s, %s) not deterministic", tt.a, tt.b)
			}
		})
	}
}

func TestResolveIsAntisymmetric(t *testing.T) {
	mirror := map[Outcome]Outcome{OutcomeA: OutcomeB, OutcomeB: OutcomeA, OutcomeDraw: OutcomeDraw}
	for _, a := range Moves {
		for _, b := range Moves {
			if got, want := Resolve(b, a), mirror[Resolve(a, b)]; got != want {
				t.Errorf("Resolve(%s, %s) = %s, want %s", b, a, got, want)
			}
		}
	}
}

func TestParseMove(t *testing.T) {
	tests := []struct {
		input   string
		want    Move
		wantErr bool
	}{
		{input: "rock", want: Rock},
		{input: " Paper ", want: Paper},
		{input: "SCISSORS", want: Scissors},
		{input: "lizard", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMove(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMove) {
					t.Fatalf("ParseMove(%q) error = %v, want ErrInvalidMove", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMove(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseMove(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}
