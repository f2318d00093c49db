package pipeline

import (
	"errors"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

var (
	ErrEmptyOrder       = errors.New("ordered deal IDs cannot be empty")
	ErrDealNotInOrder   = errors.New("ordered deal IDs must include the moved deal")
	ErrDuplicateInOrder = errors.New("ordered deal IDs contain duplicates")
	ErrInvalidDealID    = errors.New("ordered deal IDs contain an invalid ID")
)

// Placement is the position a deal receives in its column.
type Placement struct {
	DealID   uint64
	Position int
}

// ValidateOrder checks a client-computed destination column.
func ValidateOrder(dealID uint64, orderedIDs []uint64) error {
	if len(orderedIDs) == 0 {
		return ErrEmptyOrder
	}

	seen := make(map[uint64]struct{}, len(orderedIDs))
	found := false
	for _, id := range orderedIDs {
		if id == 0 {
			return ErrInvalidDealID
		}
		if _, dup := seen[id]; dup {
			return ErrDuplicateInOrder
		}
		seen[id] = struct{}{}
		if id == dealID {
			found = true
		}
	}
	if !found {
		return ErrDealNotInOrder
	}
	return nil
}

// Reindex assigns consecutive positions starting at zero. The whole column is
// rewritten on every move, so gaps never build up.
func Reindex(orderedIDs []uint64) []Placement {
	placements := make([]Placement, len(orderedIDs))
	for i, id := range orderedIDs {
		placements[i] = Placement{DealID: id, Position: i}
	}
	return placements
}

// IsNoopMove reports whether a move leaves the deal in the same column at the
// same index, in which case nothing should be written.
func IsNoopMove(source, destination models.DealStage, currentColumn []uint64, dealID uint64, orderedIDs []uint64) bool {
	if source != destination {
		return false
	}
	current := indexOf(currentColumn, dealID)
	return current >= 0 && current == indexOf(orderedIDs, dealID)
}

func indexOf(ids []uint64, id uint64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
