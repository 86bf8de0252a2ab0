package domain

import "errors"

// ErrorKind names a rejection category reported to the transport layer.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindInvalidMove       ErrorKind = "InvalidMove"
	KindPhaseViolation    ErrorKind = "PhaseViolation"
	KindInsufficientFunds ErrorKind = "InsufficientFunds"
	KindUnknownUpgrade    ErrorKind = "UnknownUpgrade"
	KindUpgradeNotOffered ErrorKind = "UpgradeNotOffered"
	KindMatchAlreadyOver  ErrorKind = "MatchAlreadyOver"
	KindUnknownPlayer     ErrorKind = "UnknownPlayer"
	KindUnknownMatch      ErrorKind = "UnknownMatch"
	KindInternal          ErrorKind = "Internal"
)

var (
	ErrInvalidMove       = errors.New("invalid move")
	ErrPhaseViolation    = errors.New("action not allowed in current phase")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownUpgrade    = errors.New("unknown upgrade")
	ErrUpgradeNotOffered = errors.New("upgrade not offered")
	ErrMatchAlreadyOver  = errors.New("match already over")
	ErrUnknownPlayer     = errors.New("player not found")
	ErrUnknownMatch      = errors.New("match not found")
)

var kindBySentinel = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidMove, KindInvalidMove},
	{ErrPhaseViolation, KindPhaseViolation},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrUnknownUpgrade, KindUnknownUpgrade},
	{ErrUpgradeNotOffered, KindUpgradeNotOffered},
	{ErrMatchAlreadyOver, KindMatchAlreadyOver},
	{ErrUnknownPlayer, KindUnknownPlayer},
	{ErrUnknownMatch, KindUnknownMatch},
}

// KindOf maps an error returned by the core to its ErrorKind.
// Errors that do not wrap a known sentinel report KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, s := range kindBySentinel {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindInternal
}

// Code returns a stable numeric code for the kind, used by binary transports.
func (k ErrorKind) Code() int {
	switch k {
	case KindNone:
		return 0
	case KindInvalidMove:
		return 1
	case KindPhaseViolation:
		return 2
	case KindInsufficientFunds:
		return 3
	case KindUnknownUpgrade:
		return 4
	case KindUpgradeNotOffered:
		return 5
	case KindMatchAlreadyOver:
		return 6
	case KindUnknownPlayer:
		return 7
	case KindUnknownMatch:
		return 8
	default:
		return 99
	}
}
