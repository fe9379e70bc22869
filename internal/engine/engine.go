package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/skewer-chess/skewer/internal/board"
)

var validate = validator.New()

// ConfigurationError reports invalid engine options or search limits,
// rejected before any search work starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func configErr(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		return &ConfigurationError{
			Field:  errs[0].Field(),
			Reason: fmt.Sprintf("fails %q constraint", errs[0].Tag()),
		}
	}
	return &ConfigurationError{Field: "?", Reason: err.Error()}
}

// Options configures an Engine at construction. Tunables travel in explicit
// structs so concurrent engines stay independent.
type Options struct {
	HashMB    int `validate:"min=1,max=4096"`
	Threads   int `validate:"min=1,max=64"`
	DisableTT bool
	Eval      EvalConfig
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		HashMB:  64,
		Threads: 1,
		Eval:    DefaultEvalConfig(),
	}
}

// Limits bounds one search call. Depth 0 is a zero-ply budget: the static
// evaluation is returned without searching. MoveTime 0 means no deadline,
// Nodes 0 no node cap. Depth tops out at MaxPly-1, which also keeps stored
// table depths inside their 8-bit field.
type Limits struct {
	Depth    int           `validate:"min=0,max=127"`
	Nodes    uint64        `validate:"min=0"`
	MoveTime time.Duration `validate:"min=0"`
	Infinite bool
}

// Result is the outcome of one search: the best move, its score in
// centipawns from the side to move (mate band near ±MateScore), the depth
// that fully completed, and the bound type of the score.
type Result struct {
	Move  board.Move
	Score int
	Depth int
	Bound Bound
	Nodes uint64
	Time  time.Duration
	PV    []board.Move
}

// Engine drives iterative-deepening searches. One primary searcher is
// authoritative; optional helpers search the same depths on their own board
// copies, feeding the shared transposition table.
type Engine struct {
	opts Options
	tt   *TranspositionTable
	eval *Evaluator

	stop       atomic.Bool
	helperStop atomic.Bool
	primary    *Searcher
	helpers    []*Searcher

	rootKeys []uint64

	// OnInfo, when set, is called after every completed depth.
	OnInfo func(Result)
}

// New creates an engine, validating the options first.
func New(opts Options) (*Engine, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, configErr(err)
	}
	e := &Engine{
		opts: opts,
		eval: NewEvaluator(opts.Eval),
	}
	if !opts.DisableTT {
		e.tt = NewTranspositionTable(opts.HashMB)
	}
	e.primary = NewSearcher(e.tt, e.eval, &e.stop)
	for i := 1; i < opts.Threads; i++ {
		e.helpers = append(e.helpers, NewSearcher(e.tt, e.eval, &e.helperStop))
	}
	return e, nil
}

// TT exposes the transposition table for snapshot persistence; nil when the
// table is disabled.
func (e *Engine) TT() *TranspositionTable {
	return e.tt
}

// SetRootKeys installs the game's position-key history so the search can
// recognize threefold repetitions that straddle the root.
func (e *Engine) SetRootKeys(keys []uint64) {
	e.rootKeys = append(e.rootKeys[:0], keys...)
}

// Stop aborts the current search. The search returns the best result from
// the last fully completed depth.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Clear wipes the transposition table and ordering state between games.
func (e *Engine) Clear() {
	if e.tt != nil {
		e.tt.Clear()
	}
	e.primary.orderer.Clear()
	for _, h := range e.helpers {
		h.orderer.Clear()
	}
}

// Evaluate returns the static evaluation of the position.
func (e *Engine) Evaluate(b *board.Board) int {
	return e.eval.Evaluate(b)
}

// Perft counts move-generation leaf nodes, exposed for the debug surfaces.
func (e *Engine) Perft(b *board.Board, depth int) uint64 {
	return b.Perft(depth)
}

const aspirationWindow = 50

// Search finds the best move within the given limits.
//
// Iterative deepening: each depth runs to completion before its result is
// reported, and an aborted depth is discarded entirely, so the returned
// result always comes from a depth whose root moves were all examined.
// Depth 1 always runs to completion as the floor, so a too-short deadline
// still yields a meaningful move rather than an empty result.
func (e *Engine) Search(b *board.Board, limits Limits) (Result, error) {
	if err := validate.Struct(limits); err != nil {
		return Result{}, configErr(err)
	}

	start := time.Now()
	e.stop.Store(false)
	if e.tt != nil {
		e.tt.NewSearch()
	}

	// Terminal root positions never reach the evaluator.
	rootMoves := b.LegalMoves()
	if rootMoves.Len() == 0 {
		res := Result{Depth: 0, Bound: BoundExact, Time: time.Since(start)}
		if b.InCheck(b.SideToMove()) {
			res.Score = -MateScore
		}
		return res, nil
	}

	if limits.Depth == 0 && !limits.Infinite && limits.MoveTime == 0 && limits.Nodes == 0 {
		return Result{
			Score: e.eval.Evaluate(b),
			Depth: 0,
			Bound: BoundExact,
			Time:  time.Since(start),
		}, nil
	}

	maxDepth := limits.Depth
	if maxDepth == 0 {
		maxDepth = MaxPly - 1
	}

	var deadline time.Time
	if limits.MoveTime > 0 && !limits.Infinite {
		deadline = start.Add(limits.MoveTime)
	}

	e.primary.Reset()
	e.primary.SetRootKeys(e.rootKeys)
	e.primary.Prepare(b)
	e.primary.SetBudget(deadline, limits.Nodes)
	for _, h := range e.helpers {
		h.Reset()
		h.SetRootKeys(e.rootKeys)
		h.Prepare(b)
		h.SetBudget(deadline, 0)
	}

	var best Result
	completed := false

	for depth := 1; depth <= maxDepth; depth++ {
		if depth > 1 && !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		stopHelpers := e.startHelpers(depth)
		move, score, ok := e.searchDepth(depth, best, completed)
		stopHelpers()

		if !ok {
			break
		}

		best = Result{
			Move:  move,
			Score: score,
			Depth: depth,
			Bound: BoundExact,
			Nodes: e.totalNodes(),
			Time:  time.Since(start),
			PV:    e.primary.PV(),
		}
		completed = true

		if e.OnInfo != nil {
			e.OnInfo(best)
		}

		if IsMateScore(score) {
			break
		}
		// Starting another full depth rarely pays once half the budget is
		// spent: the next iteration costs more than all previous combined.
		if !deadline.IsZero() {
			elapsed := time.Since(start)
			if elapsed*2 > limits.MoveTime {
				break
			}
		}
	}

	if !completed {
		// The budget expired inside depth 1. Static evaluation with any
		// legal move is the contractual floor.
		best = Result{
			Move:  rootMoves.Get(0),
			Score: e.eval.Evaluate(b),
			Depth: 0,
			Bound: BoundExact,
			Nodes: e.totalNodes(),
			Time:  time.Since(start),
		}
	}
	best.Nodes = e.totalNodes()
	best.Time = time.Since(start)
	return best, nil
}

// searchDepth runs one iteration, managing the aspiration window around the
// previous depth's score. Returns ok=false when the depth did not complete.
func (e *Engine) searchDepth(depth int, prev Result, havePrev bool) (board.Move, int, bool) {
	alpha, beta := -Infinity, Infinity
	if depth >= 5 && havePrev && !IsMateScore(prev.Score) {
		alpha = prev.Score - aspirationWindow
		beta = prev.Score + aspirationWindow
	}

	for {
		move, score := e.primary.SearchDepth(depth, alpha, beta)
		if e.stop.Load() {
			return board.NoMove, 0, false
		}
		switch {
		case score <= alpha && alpha > -Infinity:
			alpha = -Infinity
		case score >= beta && beta < Infinity:
			beta = Infinity
		default:
			return move, score, move != board.NoMove
		}
	}
}

// startHelpers launches the helper searchers on the same depth and returns a
// function that stops and joins them. Helpers only feed the shared table;
// their own results are discarded.
func (e *Engine) startHelpers(depth int) func() {
	if len(e.helpers) == 0 {
		return func() {}
	}
	e.helperStop.Store(false)
	var wg sync.WaitGroup
	for _, h := range e.helpers {
		wg.Add(1)
		go func(h *Searcher) {
			defer wg.Done()
			h.SearchDepth(depth, -Infinity, Infinity)
		}(h)
	}
	return func() {
		e.helperStop.Store(true)
		wg.Wait()
	}
}

func (e *Engine) totalNodes() uint64 {
	n := e.primary.Nodes()
	for _, h := range e.helpers {
		n += h.Nodes()
	}
	return n
}

// ScoreToString renders a score for humans: pawns, or mate distance.
func ScoreToString(score int) string {
	if IsMateScore(score) {
		if score > 0 {
			return fmt.Sprintf("mate in %d", MateDistance(score))
		}
		return fmt.Sprintf("mated in %d", MateDistance(score))
	}
	return fmt.Sprintf("%+.2f", float64(score)/100)
}
