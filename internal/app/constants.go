package app

import "chaosclash/internal/domain"

// MinPlayersToStartGame defines how many occupied seats start a duel.
// Keep this centralized so transports do not hard-code the seat count.
const MinPlayersToStartGame = domain.SeatCount
