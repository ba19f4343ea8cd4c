package game

const (
	basePoints       = 100
	speedBonusPerSec = 2
	firstGuessBonus  = 50
)

// Points scores a correct guess. The speed bonus is two points per whole
// second left in the round and never goes negative.
func Points(timeToGuessMs, roundDurationMs int64, isFirstCorrect bool) int {
	points := basePoints
	if remaining := roundDurationMs - timeToGuessMs; remaining > 0 {
		points += int(remaining/1000) * speedBonusPerSec
	}
	if isFirstCorrect {
		points += firstGuessBonus
	}
	return points
}
