// Package main implements an interactive analysis shell for the engine:
// play through positions, run searches and perft counts, inspect evaluation.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/skewer-chess/skewer/internal/board"
	"github.com/skewer-chess/skewer/internal/engine"
	"github.com/skewer-chess/skewer/internal/storage"
)

var (
	hashMB  = flag.Int("hash", 64, "transposition table size in MB")
	threads = flag.Int("threads", 1, "number of search threads")
)

type shell struct {
	engine *engine.Engine
	pos    *board.Board
	keys   []uint64
	undos  []board.Undo
}

func main() {
	flag.Parse()

	opts := engine.DefaultOptions()
	opts.HashMB = *hashMB
	opts.Threads = *threads
	eng, err := engine.New(opts)
	if err != nil {
		log.Fatal(err)
	}

	sh := &shell{engine: eng, pos: board.New()}
	sh.keys = []uint64{sh.pos.Key()}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "skewer> ",
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		log.Fatal(err)
	}
	defer rl.Close()

	fmt.Println("Skewer analysis shell. Type 'help' for commands.")

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			break
		}
		if err != nil {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		sh.execute(line)
	}
}

func historyFile() string {
	dir, err := storage.DataDir()
	if err != nil {
		return ".skewer_history"
	}
	return filepath.Join(dir, "cli_history")
}

func (sh *shell) execute(line string) {
	parts := strings.Fields(line)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "help":
		sh.cmdHelp()
	case "board", "b":
		fmt.Println(sh.pos.String())
	case "fen":
		fmt.Println(sh.pos.FEN())
	case "position", "pos":
		sh.cmdPosition(args)
	case "move", "m":
		sh.cmdMove(args)
	case "undo", "u":
		sh.cmdUndo()
	case "moves":
		sh.cmdMoves()
	case "go", "search":
		sh.cmdGo(args)
	case "eval", "e":
		fmt.Printf("static eval: %s (material %s)\n",
			engine.ScoreToString(sh.engine.Evaluate(sh.pos)),
			engine.ScoreToString(engine.EvaluateMaterial(sh.pos)))
	case "perft":
		sh.cmdPerft(args)
	case "new":
		sh.setPosition(board.New())
	case "clear":
		sh.engine.Clear()
		fmt.Println("search state cleared")
	default:
		// Bare move notation works too: "e2e4" instead of "move e2e4".
		if _, err := board.ParseMove(cmd, sh.pos); err == nil {
			sh.cmdMove([]string{cmd})
			return
		}
		fmt.Printf("unknown command %q (try 'help')\n", cmd)
	}
}

func (sh *shell) cmdHelp() {
	fmt.Print(`commands:
  board | b            show the current position
  fen                  print the current position as FEN
  position <fen>       set position from FEN ('position startpos' resets)
  move <uci> | <uci>   play a move in coordinate notation (e2e4, e7e8q)
  undo | u             take back the last move
  moves                list legal moves
  go [depth N | movetime MS | nodes N]   search the position
  eval | e             static evaluation of the position
  perft <depth>        count leaf nodes to the given depth
  new                  reset to the starting position
  clear                clear the transposition table and search state
  quit                 exit
`)
}

func (sh *shell) setPosition(b *board.Board) {
	sh.pos = b
	sh.keys = []uint64{b.Key()}
	sh.undos = sh.undos[:0]
}

func (sh *shell) cmdPosition(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: position <fen> | position startpos")
		return
	}
	if args[0] == "startpos" {
		sh.setPosition(board.New())
		return
	}
	b, err := board.FromFEN(strings.Join(args, " "))
	if err != nil {
		fmt.Printf("bad FEN: %v\n", err)
		return
	}
	sh.setPosition(b)
}

func (sh *shell) cmdMove(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: move <uci>")
		return
	}
	m, err := board.ParseMove(args[0], sh.pos)
	if err != nil {
		fmt.Println(err)
		return
	}
	if !sh.pos.LegalMoves().Contains(m) {
		fmt.Printf("illegal move: %s\n", args[0])
		return
	}
	undo, err := sh.pos.Apply(m)
	if err != nil {
		fmt.Println(err)
		return
	}
	sh.undos = append(sh.undos, undo)
	sh.keys = append(sh.keys, sh.pos.Key())
}

func (sh *shell) cmdUndo() {
	if len(sh.undos) == 0 {
		fmt.Println("nothing to undo")
		return
	}
	last := sh.undos[len(sh.undos)-1]
	sh.undos = sh.undos[:len(sh.undos)-1]
	sh.keys = sh.keys[:len(sh.keys)-1]
	sh.pos.Undo(last)
}

func (sh *shell) cmdMoves() {
	ml := sh.pos.LegalMoves()
	for i := 0; i < ml.Len(); i++ {
		fmt.Printf("%s ", ml.Get(i))
	}
	fmt.Printf("(%d legal)\n", ml.Len())
}

// parseSearchLimits collects the go arguments into one limit set; the pairs
// combine, so "go depth 6 movetime 500" bounds by both. With no arguments the
// shell searches for three seconds.
func parseSearchLimits(args []string) (engine.Limits, error) {
	var limits engine.Limits
	for i := 0; i+1 < len(args); i += 2 {
		switch args[i] {
		case "depth":
			d, err := strconv.Atoi(args[i+1])
			if err != nil {
				return limits, fmt.Errorf("bad depth %q", args[i+1])
			}
			limits.Depth = d
		case "movetime":
			ms, err := strconv.Atoi(args[i+1])
			if err != nil {
				return limits, fmt.Errorf("bad movetime %q", args[i+1])
			}
			limits.MoveTime = time.Duration(ms) * time.Millisecond
		case "nodes":
			n, err := strconv.ParseUint(args[i+1], 10, 64)
			if err != nil {
				return limits, fmt.Errorf("bad node count %q", args[i+1])
			}
			limits.Nodes = n
		}
	}
	if limits == (engine.Limits{}) {
		limits.MoveTime = 3 * time.Second
	}
	return limits, nil
}

func (sh *shell) cmdGo(args []string) {
	limits, err := parseSearchLimits(args)
	if err != nil {
		fmt.Println(err)
		return
	}

	sh.engine.SetRootKeys(sh.keys)
	sh.engine.OnInfo = func(r engine.Result) {
		var pv strings.Builder
		for _, m := range r.PV {
			pv.WriteByte(' ')
			pv.WriteString(m.String())
		}
		fmt.Printf("depth %2d  score %-8s  nodes %9d  time %6s  pv%s\n",
			r.Depth, engine.ScoreToString(r.Score), r.Nodes,
			r.Time.Round(time.Millisecond), pv.String())
	}

	res, err := sh.engine.Search(sh.pos, limits)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("best %s (%s)\n", res.Move, engine.ScoreToString(res.Score))
}

func (sh *shell) cmdPerft(args []string) {
	depth := 4
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println("usage: perft <depth>")
			return
		}
		depth = d
	}
	start := time.Now()
	nodes := sh.engine.Perft(sh.pos, depth)
	elapsed := time.Since(start)
	fmt.Printf("perft(%d) = %d in %s\n", depth, nodes, elapsed.Round(time.Millisecond))
}
