package domain

import (
	"fmt"
	"strings"
)

// Move is a single hand a player throws in a round.
type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
)

// Moves lists every valid move in a stable order.
var Moves = []Move{Rock, Paper, Scissors}

// beats maps each move to the move it defeats.
var beats = map[Move]Move{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// Valid reports whether m is one of rock, paper or scissors.
func (m Move) Valid() bool {
	_, ok := beats[m]
	return ok
}

// NormalizeMove lowercases and trims client input without validating it.
func NormalizeMove(s string) Move {
	return Move(strings.ToLower(strings.TrimSpace(s)))
}

// ParseMove normalizes client input into a Move.
func ParseMove(s string) (Move, error) {
	m := NormalizeMove(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown move %q", ErrInvalidMove, s)
	}
	return m, nil
}

// Outcome is the result of comparing two moves from the first move's point of view.
type Outcome string

const (
	OutcomeA    Outcome = "A"
	OutcomeB    Outcome = "B"
	OutcomeDraw Outcome = "draw"
)

// Resolve compares two moves. It is pure and defined for all nine valid pairs.
// Callers must validate moves first; an invalid move never wins.
func Resolve(a, b Move) Outcome {
	if a == b {
		return OutcomeDraw
	}
	if beats[a] == b {
		return OutcomeA
	}
	if beats[b] == a {
		return OutcomeB
	}
	return OutcomeDraw
}
