package engine

import (
	"time"

	"github.com/skewer-chess/skewer/internal/board"
)

// ClockInfo carries the game-clock parameters a UCI "go" command supplies.
type ClockInfo struct {
	Time      [2]time.Duration // remaining time per color
	Inc       [2]time.Duration // increment per move per color
	MovesToGo int              // moves to the next time control, 0 = sudden death
}

// AllocateTime converts a game clock into a per-move budget for the side to
// move. ply is the game half-move number, used to estimate remaining moves
// under sudden death.
func AllocateTime(clock ClockInfo, us board.Color, ply int) time.Duration {
	remaining := clock.Time[us]
	if remaining <= 0 {
		return 0
	}

	mtg := clock.MovesToGo
	if mtg == 0 {
		// Sudden death: assume fewer moves remain as the game progresses.
		mtg = 40 - ply/4
		if mtg < 10 {
			mtg = 10
		}
	}

	budget := remaining/time.Duration(mtg) + clock.Inc[us]*9/10

	// Never commit more than a fifth of the clock to one move, and always
	// leave a little for the overhead of actually sending it.
	if ceiling := remaining / 5; budget > ceiling {
		budget = ceiling
	}
	if budget < 10*time.Millisecond {
		budget = 10 * time.Millisecond
	}
	return budget
}
