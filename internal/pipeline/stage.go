// Package pipeline holds the deal-stage state machine, the per-column position
// rules, and the optimistic board reducer used for drag-and-drop moves.
package pipeline

import (
	"errors"
	"strings"
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/models"
)

var (
	ErrInvalidStage         = errors.New("invalid deal stage")
	ErrCloseDateRequired    = errors.New("a close date is required to mark a deal as won")
	ErrLostReasonRequired   = errors.New("a reason is required to mark a deal as lost")
	ErrConfirmationRequired = errors.New("moving a deal to won or lost requires confirmation")
)

// ActiveStages are the open pipeline columns, in board order.
var ActiveStages = []models.DealStage{
	models.StageQualified,
	models.StageProposal,
	models.StageNegotiation,
}

// AllStages is every column, in board order.
var AllStages = []models.DealStage{
	models.StageQualified,
	models.StageProposal,
	models.StageNegotiation,
	models.StageWon,
	models.StageLost,
}

var stageLabels = map[models.DealStage]string{
	models.StageQualified:   "Qualified",
	models.StageProposal:    "Proposal",
	models.StageNegotiation: "Negotiation",
	models.StageWon:         "Won",
	models.StageLost:        "Lost",
}

// IsValid reports whether stage is one of the five pipeline stages.
func IsValid(stage models.DealStage) bool {
	_, ok := stageLabels[stage]
	return ok
}

// IsTerminal reports whether stage closes the deal (won or lost).
func IsTerminal(stage models.DealStage) bool {
	return stage == models.StageWon || stage == models.StageLost
}

// IsActive reports whether stage is an open column of the board.
func IsActive(stage models.DealStage) bool {
	return IsValid(stage) && !IsTerminal(stage)
}

// Label is the display name of a stage.
func Label(stage models.DealStage) string {
	return stageLabels[stage]
}

// ParseStage normalizes and validates a stage name.
func ParseStage(raw string) (models.DealStage, error) {
	stage := models.DealStage(strings.ToLower(strings.TrimSpace(raw)))
	if !IsValid(stage) {
		return "", ErrInvalidStage
	}
	return stage, nil
}

// TransitionPayload carries the confirmation data terminal stages require.
type TransitionPayload struct {
	CloseDate  *time.Time
	LostReason string
}

// ValidateTransition checks a stage change before anything is written.
// noop is true when the deal is already in the target stage; no payload is
// required in that case.
func ValidateTransition(from, to models.DealStage, payload TransitionPayload) (noop bool, err error) {
	if !IsValid(to) {
		return false, ErrInvalidStage
	}
	if from == to {
		return true, nil
	}

	switch to {
	case models.StageWon:
		if payload.CloseDate == nil || payload.CloseDate.IsZero() {
			return false, ErrCloseDateRequired
		}
	case models.StageLost:
		if strings.TrimSpace(payload.LostReason) == "" {
			return false, ErrLostReasonRequired
		}
	}
	return false, nil
}
