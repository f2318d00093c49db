package pipeline

import (
	"errors"
	"sync"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

var (
	ErrMoveInFlight = errors.New("another move is still being saved")
	ErrCardNotFound = errors.New("deal is not on the board")
)

// Board is the ordered deal IDs of each stage column.
type Board map[models.DealStage][]uint64

// Clone returns a deep copy.
func (b Board) Clone() Board {
	out := make(Board, len(b))
	for stage, ids := range b {
		out[stage] = append([]uint64(nil), ids...)
	}
	return out
}

// Locate finds the column and index of a deal.
func (b Board) Locate(dealID uint64) (models.DealStage, int, bool) {
	for stage, ids := range b {
		if i := indexOf(ids, dealID); i >= 0 {
			return stage, i, true
		}
	}
	return "", -1, false
}

// BoardFromDeals groups deals into columns, keeping their slice order.
// Callers pass deals already sorted by position.
func BoardFromDeals(deals []models.Deal) Board {
	b := make(Board, len(AllStages))
	for _, stage := range AllStages {
		b[stage] = []uint64{}
	}
	for _, d := range deals {
		b[d.Stage] = append(b[d.Stage], d.ID)
	}
	return b
}

// Action is an input to Reduce.
type Action interface {
	isAction()
}

// MoveCard places a deal at Index of column To. Out-of-range indexes clamp to
// the ends of the column.
type MoveCard struct {
	DealID uint64
	To     models.DealStage
	Index  int
}

// ReplaceBoard swaps in server-confirmed state.
type ReplaceBoard struct {
	Board Board
}

func (MoveCard) isAction()     {}
func (ReplaceBoard) isAction() {}

// Reduce applies an action and returns the next board. The input is never modified.
func Reduce(b Board, action Action) Board {
	switch a := action.(type) {
	case MoveCard:
		return applyMove(b, a)
	case ReplaceBoard:
		return a.Board.Clone()
	default:
		return b.Clone()
	}
}

func applyMove(b Board, m MoveCard) Board {
	next := b.Clone()
	from, idx, ok := next.Locate(m.DealID)
	if !ok {
		return next
	}

	source := next[from]
	next[from] = append(source[:idx:idx], source[idx+1:]...)

	dest := next[m.To]
	at := m.Index
	if at < 0 {
		at = 0
	}
	if at > len(dest) {
		at = len(dest)
	}
	column := make([]uint64, 0, len(dest)+1)
	column = append(column, dest[:at]...)
	column = append(column, m.DealID)
	column = append(column, dest[at:]...)
	next[m.To] = column
	return next
}

// DestinationOrder is the full ordered column a move produces, i.e. the list
// the server reindexes.
func DestinationOrder(b Board, m MoveCard) ([]uint64, error) {
	if !IsValid(m.To) {
		return nil, ErrInvalidStage
	}
	if _, _, ok := b.Locate(m.DealID); !ok {
		return nil, ErrCardNotFound
	}
	return Reduce(b, m)[m.To], nil
}

// OptimisticBoard is the client side of a drag-and-drop board: it shows a
// move immediately, hands back the column order to send to POST /api/deals/:id/move,
// and then either adopts the server's board or rolls back. It tracks a
// speculative board alongside the last state the server confirmed. Only one
// move may be outstanding at a time. The server itself only needs Reduce and
// DestinationOrder.
type OptimisticBoard struct {
	mu        sync.Mutex
	confirmed Board
	current   Board
	pending   *MoveCard
}

// NewOptimisticBoard starts from a board the server returned.
func NewOptimisticBoard(confirmed Board) *OptimisticBoard {
	return &OptimisticBoard{
		confirmed: confirmed.Clone(),
		current:   confirmed.Clone(),
	}
}

// Begin applies a move speculatively and returns the destination order to
// send to the server.
func (o *OptimisticBoard) Begin(m MoveCard) ([]uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending != nil {
		return nil, ErrMoveInFlight
	}
	if !IsValid(m.To) {
		return nil, ErrInvalidStage
	}
	from, _, ok := o.current.Locate(m.DealID)
	if !ok {
		return nil, ErrCardNotFound
	}
	if from != m.To && IsTerminal(m.To) {
		return nil, ErrConfirmationRequired
	}

	o.current = Reduce(o.current, m)
	o.pending = &m
	return append([]uint64(nil), o.current[m.To]...), nil
}

// Confirm adopts the server's board as truth and clears the pending move.
func (o *OptimisticBoard) Confirm(server Board) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.confirmed = Reduce(o.confirmed, ReplaceBoard{Board: server})
	o.current = o.confirmed.Clone()
	o.pending = nil
}

// Reject discards the speculative state and returns the last confirmed board.
func (o *OptimisticBoard) Reject() Board {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.current = o.confirmed.Clone()
	o.pending = nil
	return o.current.Clone()
}

// Current is the board as the user sees it, pending move included.
func (o *OptimisticBoard) Current() Board {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current.Clone()
}

// Pending reports whether a move awaits the server.
func (o *OptimisticBoard) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending != nil
}
