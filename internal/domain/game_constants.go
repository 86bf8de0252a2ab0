package domain

// GameName is advertised in match labels and used as the storage namespace.
const GameName = "chaosclash"

// SeatCount is the number of players in a duel.
const SeatCount = 2
