// Package uci adapts the search core to the Universal Chess Interface text
// protocol. It is the external boundary: user-supplied moves are validated
// against generated legal moves before ever touching the board.
package uci

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skewer-chess/skewer/internal/board"
	"github.com/skewer-chess/skewer/internal/book"
	"github.com/skewer-chess/skewer/internal/engine"
)

// UCI is the protocol handler: one engine, one current position.
type UCI struct {
	opts   engine.Options
	engine *engine.Engine
	pos    *board.Board

	// Position keys of the game so far, for repetition detection.
	keys []uint64

	book    *book.Book
	ownBook bool

	searchMu   sync.Mutex
	searchDone chan struct{}
}

// New creates a handler around a freshly configured engine.
func New(opts engine.Options) (*UCI, error) {
	eng, err := engine.New(opts)
	if err != nil {
		return nil, err
	}
	u := &UCI{
		opts:   opts,
		engine: eng,
		pos:    board.New(),
	}
	u.keys = []uint64{u.pos.Key()}
	return u, nil
}

// Engine returns the underlying engine, so the binary can wire the
// persistent cache into its transposition table.
func (u *UCI) Engine() *engine.Engine {
	return u.engine
}

// SetBook installs an opening book and enables probing it before searching.
func (u *UCI) SetBook(bk *book.Book) {
	u.book = bk
	u.ownBook = bk != nil
}

// Run reads commands from stdin until quit or EOF.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "setoption":
			u.handleSetOption(args)
		case "quit":
			u.handleStop()
			return
		// Debug commands.
		case "d":
			fmt.Println(u.pos.String())
		case "perft":
			u.handlePerft(args)
		case "eval":
			fmt.Printf("static eval: %s\n", engine.ScoreToString(u.engine.Evaluate(u.pos)))
		}
	}
}

func (u *UCI) handleUCI() {
	fmt.Println("id name Skewer")
	fmt.Println("id author the Skewer authors")
	fmt.Println()
	fmt.Println("option name Hash type spin default 64 min 1 max 4096")
	fmt.Println("option name Threads type spin default 1 min 1 max 64")
	fmt.Println("option name OwnBook type check default false")
	fmt.Println("option name BookFile type string default <empty>")
	fmt.Println("uciok")
}

func (u *UCI) handleNewGame() {
	u.waitSearch()
	u.engine.Clear()
	u.pos = board.New()
	u.keys = []uint64{u.pos.Key()}
}

// handlePosition parses "position [startpos | fen <fen>] [moves ...]".
func (u *UCI) handlePosition(args []string) {
	u.waitSearch()
	if len(args) == 0 {
		return
	}

	var movesIdx int
	switch args[0] {
	case "startpos":
		u.pos = board.New()
		movesIdx = 1
	case "fen":
		fenEnd := len(args)
		for i, a := range args {
			if a == "moves" {
				fenEnd = i
				break
			}
		}
		b, err := board.FromFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			log.Printf("position: %v", err)
			return
		}
		u.pos = b
		movesIdx = fenEnd
	default:
		return
	}

	u.keys = []uint64{u.pos.Key()}

	if movesIdx < len(args) && args[movesIdx] == "moves" {
		for _, ms := range args[movesIdx+1:] {
			if err := u.playMove(ms); err != nil {
				log.Printf("position: %v", err)
				return
			}
		}
	}
}

// playMove validates a user move against the generated legal moves before
// applying it; the board itself never sees unvalidated input.
func (u *UCI) playMove(ms string) error {
	m, err := board.ParseMove(ms, u.pos)
	if err != nil {
		return err
	}
	if !u.pos.LegalMoves().Contains(m) {
		return fmt.Errorf("illegal move %s in position %s", ms, u.pos.FEN())
	}
	if _, err := u.pos.Apply(m); err != nil {
		return err
	}
	u.keys = append(u.keys, u.pos.Key())
	return nil
}

// handleGo parses search limits and starts the search asynchronously.
func (u *UCI) handleGo(args []string) {
	u.waitSearch()

	if u.ownBook && u.book != nil {
		if m, ok := u.book.Probe(u.pos); ok {
			fmt.Printf("bestmove %s\n", m)
			return
		}
	}

	limits := u.parseGoLimits(args)

	u.searchMu.Lock()
	u.searchDone = make(chan struct{})
	done := u.searchDone
	u.searchMu.Unlock()

	pos := u.pos.Copy()
	u.engine.SetRootKeys(u.keys)
	u.engine.OnInfo = printInfo

	go func() {
		defer close(done)
		res, err := u.engine.Search(pos, limits)
		if err != nil {
			log.Printf("search: %v", err)
			fmt.Println("bestmove 0000")
			return
		}
		fmt.Printf("bestmove %s\n", res.Move)
	}()
}

// parseGoLimits maps the protocol's go arguments onto search limits. A bare
// "go" carries no bound at all, which the protocol means as "search until
// stopped", not as a zero-ply budget.
func (u *UCI) parseGoLimits(args []string) engine.Limits {
	limits := engine.Limits{}
	var clock engine.ClockInfo
	useClock := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				i++
				limits.Depth, _ = strconv.Atoi(args[i])
			}
		case "nodes":
			if i+1 < len(args) {
				i++
				n, _ := strconv.ParseUint(args[i], 10, 64)
				limits.Nodes = n
			}
		case "movetime":
			if i+1 < len(args) {
				i++
				ms, _ := strconv.Atoi(args[i])
				limits.MoveTime = time.Duration(ms) * time.Millisecond
			}
		case "wtime", "btime", "winc", "binc":
			if i+1 < len(args) {
				c := board.White
				if args[i][0] == 'b' {
					c = board.Black
				}
				isInc := strings.HasSuffix(args[i], "inc")
				i++
				ms, _ := strconv.Atoi(args[i])
				d := time.Duration(ms) * time.Millisecond
				if isInc {
					clock.Inc[c] = d
				} else {
					clock.Time[c] = d
				}
				useClock = true
			}
		case "movestogo":
			if i+1 < len(args) {
				i++
				clock.MovesToGo, _ = strconv.Atoi(args[i])
			}
		case "infinite":
			limits.Infinite = true
		}
	}

	if useClock && limits.MoveTime == 0 && !limits.Infinite {
		ply := (u.pos.FullMoveNumber() - 1) * 2
		limits.MoveTime = engine.AllocateTime(clock, u.pos.SideToMove(), ply)
	}
	if limits.Depth == 0 && limits.Nodes == 0 && limits.MoveTime == 0 {
		limits.Infinite = true
	}
	return limits
}

func printInfo(r engine.Result) {
	var score string
	if engine.IsMateScore(r.Score) {
		mate := engine.MateDistance(r.Score)
		if r.Score < 0 {
			mate = -mate
		}
		score = fmt.Sprintf("mate %d", mate)
	} else {
		score = fmt.Sprintf("cp %d", r.Score)
	}

	ms := r.Time.Milliseconds()
	nps := int64(0)
	if ms > 0 {
		nps = int64(r.Nodes) * 1000 / ms
	}

	var pv strings.Builder
	for _, m := range r.PV {
		pv.WriteByte(' ')
		pv.WriteString(m.String())
	}

	fmt.Printf("info depth %d score %s nodes %d nps %d time %d pv%s\n",
		r.Depth, score, r.Nodes, nps, ms, pv.String())
}

func (u *UCI) handleStop() {
	u.engine.Stop()
	u.waitSearch()
}

// waitSearch blocks until any running search has printed its bestmove.
func (u *UCI) waitSearch() {
	u.searchMu.Lock()
	done := u.searchDone
	u.searchMu.Unlock()
	if done != nil {
		<-done
	}
}

// handleSetOption rebuilds the engine when Hash or Threads change.
func (u *UCI) handleSetOption(args []string) {
	u.waitSearch()

	var name, value string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "name":
			if i+1 < len(args) {
				name = args[i+1]
			}
		case "value":
			// Everything after "value" belongs to it (file paths may
			// contain spaces).
			if i+1 < len(args) {
				value = strings.Join(args[i+1:], " ")
			}
		}
	}

	opts := u.opts
	switch name {
	case "Hash":
		if mb, err := strconv.Atoi(value); err == nil {
			opts.HashMB = mb
		}
	case "Threads":
		if n, err := strconv.Atoi(value); err == nil {
			opts.Threads = n
		}
	case "OwnBook":
		u.ownBook = value == "true" && u.book != nil
		return
	case "BookFile":
		bk, err := book.LoadPolyglot(value)
		if err != nil {
			log.Printf("setoption: %v", err)
			return
		}
		u.SetBook(bk)
		return
	default:
		return
	}

	eng, err := engine.New(opts)
	if err != nil {
		log.Printf("setoption: %v", err)
		return
	}
	u.opts = opts
	u.engine = eng
}

func (u *UCI) handlePerft(args []string) {
	depth := 4
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil {
			depth = d
		}
	}
	start := time.Now()
	nodes := u.engine.Perft(u.pos, depth)
	elapsed := time.Since(start)
	fmt.Printf("perft(%d) = %d (%.0f knps, %s)\n",
		depth, nodes, float64(nodes)/1000/elapsed.Seconds(), elapsed.Round(time.Millisecond))
}
