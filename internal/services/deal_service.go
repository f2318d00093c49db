package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	"github.com/yukikurage/crm-pipeline-api/internal/logger"
	"github.com/yukikurage/crm-pipeline-api/internal/metrics"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/pipeline"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var (
	ErrDealNotFound      = errors.New("deal not found")
	ErrInvalidDealTitle  = errors.New("deal title is required and must be at most 255 characters")
	ErrInvalidDealValue  = errors.New("deal value cannot be negative")
	ErrInvalidCurrency   = errors.New("currency must be a three-letter code")
	ErrLostReasonTooLong = errors.New("lost reason must be at most 500 characters")
	ErrMoveTargetMissing = errors.New("either ordered_ids or index is required")
	ErrStaleColumn       = errors.New("the board changed while you were moving this deal; refresh and try again")
)

// DealService owns the pipeline: deal CRUD, stage transitions and board moves.
type DealService struct {
	dealRepo    repository.DealRepository
	orgRepo     repository.OrganizationRepository
	contactRepo repository.ContactRepository
	companyRepo repository.CompanyRepository
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewDealService creates a new DealService. m may be nil.
func NewDealService(
	dealRepo repository.DealRepository,
	orgRepo repository.OrganizationRepository,
	contactRepo repository.ContactRepository,
	companyRepo repository.CompanyRepository,
	m *metrics.Metrics,
) *DealService {
	return &DealService{
		dealRepo:    dealRepo,
		orgRepo:     orgRepo,
		contactRepo: contactRepo,
		companyRepo: companyRepo,
		metrics:     m,
		now:         time.Now,
	}
}

// CreateDealInput represents input for creating a deal
type CreateDealInput struct {
	Title         string
	Value         *float64
	Currency      string
	Stage         string
	OwnerID       *uint64
	ContactID     *uint64
	CompanyID     *uint64
	Notes         string
	ExpectedClose *time.Time
	CloseDate     *time.Time
	LostReason    string
}

// UpdateDealInput represents input for updating a deal. A zero ID clears the reference.
type UpdateDealInput struct {
	Title              *string
	Value              *float64
	ClearValue         bool
	Currency           *string
	OwnerID            *uint64
	ContactID          *uint64
	CompanyID          *uint64
	Notes              *string
	ExpectedClose      *time.Time
	ClearExpectedClose bool
}

// MoveDealInput describes a board move. OrderedIDs is the full destination
// column after the move; when it is empty the server derives it from Index.
type MoveDealInput struct {
	DealID     uint64
	Stage      string
	OrderedIDs []uint64
	Index      *int
}

// BoardColumn is one stage of the pipeline board.
type BoardColumn struct {
	Stage models.DealStage `json:"stage"`
	Label string           `json:"label"`
	Total float64          `json:"total_value"`
	Deals []models.Deal    `json:"deals"`
}

// Board returns every stage column with its deals in position order.
func (s *DealService) Board(auth *authz.AuthContext) ([]BoardColumn, error) {
	if err := authorize(auth, authz.PermDealView); err != nil {
		return nil, err
	}

	deals, err := s.dealRepo.List(auth.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	byStage := make(map[models.DealStage][]models.Deal, len(pipeline.AllStages))
	for _, d := range deals {
		byStage[d.Stage] = append(byStage[d.Stage], d)
	}

	columns := make([]BoardColumn, 0, len(pipeline.AllStages))
	for _, stage := range pipeline.AllStages {
		column := BoardColumn{Stage: stage, Label: pipeline.Label(stage), Deals: byStage[stage]}
		if column.Deals == nil {
			column.Deals = []models.Deal{}
		}
		for _, d := range column.Deals {
			if d.Value != nil {
				column.Total += *d.Value
			}
		}
		columns = append(columns, column)
	}
	return columns, nil
}

// GetDeal returns a deal with its owner, contact and company.
func (s *DealService) GetDeal(auth *authz.AuthContext, dealID uint64) (*models.Deal, error) {
	if err := authorize(auth, authz.PermDealView); err != nil {
		return nil, err
	}

	deal, err := s.dealRepo.FindByID(auth.OrganizationID, dealID, "Owner", "Contact", "Company")
	if err != nil {
		return nil, lookupError(err, ErrDealNotFound, "deal")
	}
	return deal, nil
}

// CreateDeal creates a deal at the end of its stage column. Creating straight
// into won or lost needs the same payload as transitioning there.
func (s *DealService) CreateDeal(auth *authz.AuthContext, input CreateDealInput) (*models.Deal, error) {
	if err := authorize(auth, authz.PermDealCreate); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > constants.MaxNameLength {
		return nil, ErrInvalidDealTitle
	}
	if input.Value != nil && *input.Value < 0 {
		return nil, ErrInvalidDealValue
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	stage := models.StageQualified
	if strings.TrimSpace(input.Stage) != "" {
		if stage, err = pipeline.ParseStage(input.Stage); err != nil {
			return nil, err
		}
	}
	payload := pipeline.TransitionPayload{CloseDate: input.CloseDate, LostReason: input.LostReason}
	if _, err := pipeline.ValidateTransition("", stage, payload); err != nil {
		return nil, err
	}
	if len(payload.LostReason) > constants.MaxLostReasonLen {
		return nil, ErrLostReasonTooLong
	}

	ownerID := input.OwnerID
	if ownerID == nil {
		ownerID = &auth.UserID
	}

	deal := &models.Deal{
		OrganizationID: auth.OrganizationID,
		Title:          title,
		Stage:          stage,
		Value:          input.Value,
		Currency:       currency,
		OwnerID:        ownerID,
		ContactID:      nonZero(input.ContactID),
		CompanyID:      nonZero(input.CompanyID),
		Notes:          input.Notes,
		ExpectedClose:  input.ExpectedClose,
		CreatedBy:      auth.UserID,
	}
	applyStageFields(deal, payload, s.now())

	if err := s.validateReferences(auth.OrganizationID, deal); err != nil {
		return nil, err
	}

	if err := s.dealRepo.Create(deal); err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}
	return deal, nil
}

// UpdateDeal changes a deal's editable fields. Stage and position are not
// editable here.
func (s *DealService) UpdateDeal(auth *authz.AuthContext, dealID uint64, input UpdateDealInput) (*models.Deal, error) {
	if err := authorize(auth, authz.PermDealEdit); err != nil {
		return nil, err
	}

	deal, err := s.dealRepo.FindByID(auth.OrganizationID, dealID)
	if err != nil {
		return nil, lookupError(err, ErrDealNotFound, "deal")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > constants.MaxNameLength {
			return nil, ErrInvalidDealTitle
		}
		deal.Title = title
	}
	if input.ClearValue {
		deal.Value = nil
	} else if input.Value != nil {
		if *input.Value < 0 {
			return nil, ErrInvalidDealValue
		}
		deal.Value = input.Value
	}
	if input.Currency != nil {
		if deal.Currency, err = normalizeCurrency(*input.Currency); err != nil {
			return nil, err
		}
	}
	if input.OwnerID != nil {
		deal.OwnerID = nonZero(input.OwnerID)
	}
	if input.ContactID != nil {
		deal.ContactID = nonZero(input.ContactID)
	}
	if input.CompanyID != nil {
		deal.CompanyID = nonZero(input.CompanyID)
	}
	if input.Notes != nil {
		deal.Notes = *input.Notes
	}
	if input.ClearExpectedClose {
		deal.ExpectedClose = nil
	} else if input.ExpectedClose != nil {
		deal.ExpectedClose = input.ExpectedClose
	}

	if err := s.validateReferences(auth.OrganizationID, deal); err != nil {
		return nil, err
	}

	if err := s.dealRepo.Update(deal); err != nil {
		return nil, lookupError(err, ErrDealNotFound, "deal")
	}
	return deal, nil
}

// UpdateDealStage moves a deal to another stage through the confirmation flow.
// Moving to the current stage succeeds without writing anything. Otherwise the
// stage change and its stage_change activity are committed together.
func (s *DealService) UpdateDealStage(auth *authz.AuthContext, dealID uint64, rawStage string, payload pipeline.TransitionPayload) (*models.Deal, bool, error) {
	if err := authorize(auth, authz.PermDealEdit); err != nil {
		return nil, false, err
	}

	stage, err := pipeline.ParseStage(rawStage)
	if err != nil {
		return nil, false, err
	}

	deal, err := s.dealRepo.FindByID(auth.OrganizationID, dealID)
	if err != nil {
		return nil, false, lookupError(err, ErrDealNotFound, "deal")
	}

	noop, err := pipeline.ValidateTransition(deal.Stage, stage, payload)
	if err != nil {
		return nil, false, err
	}
	if noop {
		return deal, false, nil
	}
	if len(payload.LostReason) > constants.MaxLostReasonLen {
		return nil, false, ErrLostReasonTooLong
	}

	from := deal.Stage
	deal.Stage = stage
	applyStageFields(deal, payload, s.now())

	activity, err := stageChangeActivity(deal, from, auth.UserID)
	if err != nil {
		return nil, false, err
	}
	if err := s.dealRepo.TransitionStage(deal, activity); err != nil {
		return nil, false, lookupError(err, ErrDealNotFound, "deal")
	}

	s.metrics.StageTransition(string(from), string(stage))
	logger.L().Info("deal stage changed",
		zap.Uint64("organization_id", auth.OrganizationID),
		zap.Uint64("deal_id", deal.ID),
		zap.String("from", string(from)),
		zap.String("to", string(stage)),
	)
	return deal, true, nil
}

// MoveDeal places a deal in a board column. The destination column is rewritten
// to positions 0..n-1 in one transaction. Won and lost can only be reached
// through UpdateDealStage. Concurrent moves into the same column are
// last-write-wins.
func (s *DealService) MoveDeal(auth *authz.AuthContext, input MoveDealInput) (*models.Deal, bool, error) {
	deal, moved, err := s.moveDeal(auth, input)
	switch {
	case err != nil:
		s.metrics.DealMove(metrics.MoveRejected)
	case !moved:
		s.metrics.DealMove(metrics.MoveNoop)
	default:
		s.metrics.DealMove(metrics.MoveApplied)
	}
	return deal, moved, err
}

func (s *DealService) moveDeal(auth *authz.AuthContext, input MoveDealInput) (*models.Deal, bool, error) {
	if err := authorize(auth, authz.PermDealEdit); err != nil {
		return nil, false, err
	}

	stage, err := pipeline.ParseStage(input.Stage)
	if err != nil {
		return nil, false, err
	}

	deal, err := s.dealRepo.FindByID(auth.OrganizationID, input.DealID)
	if err != nil {
		return nil, false, lookupError(err, ErrDealNotFound, "deal")
	}
	if deal.Stage != stage && pipeline.IsTerminal(stage) {
		return nil, false, pipeline.ErrConfirmationRequired
	}

	source, err := s.columnIDs(auth.OrganizationID, deal.Stage)
	if err != nil {
		return nil, false, err
	}

	ordered := uniqueUint64(input.OrderedIDs)
	if len(ordered) != len(input.OrderedIDs) {
		return nil, false, pipeline.ErrDuplicateInOrder
	}
	if len(ordered) == 0 {
		if input.Index == nil {
			return nil, false, ErrMoveTargetMissing
		}
		board := pipeline.Board{deal.Stage: source}
		if stage != deal.Stage {
			if board[stage], err = s.columnIDs(auth.OrganizationID, stage); err != nil {
				return nil, false, err
			}
		}
		if ordered, err = pipeline.DestinationOrder(board, pipeline.MoveCard{DealID: deal.ID, To: stage, Index: *input.Index}); err != nil {
			return nil, false, err
		}
	}

	if err := pipeline.ValidateOrder(deal.ID, ordered); err != nil {
		return nil, false, err
	}

	listed, err := s.dealRepo.FindByIDs(auth.OrganizationID, ordered)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load column: %w", err)
	}
	if len(listed) != len(ordered) {
		return nil, false, ErrDealNotFound
	}
	for _, d := range listed {
		if d.ID != deal.ID && d.Stage != stage {
			return nil, false, ErrStaleColumn
		}
	}

	// The list must name the whole destination column, or the deals left out
	// would keep positions that collide with the rewritten ones.
	destination := source
	if stage != deal.Stage {
		if destination, err = s.columnIDs(auth.OrganizationID, stage); err != nil {
			return nil, false, err
		}
		destination = append(destination, deal.ID)
	}
	if len(destination) != len(ordered) {
		return nil, false, ErrStaleColumn
	}

	if pipeline.IsNoopMove(deal.Stage, stage, source, deal.ID, ordered) {
		return deal, false, nil
	}

	var activity *models.DealActivity
	from := deal.Stage
	if from != stage {
		deal.Stage = stage
		// Only active stages are reachable here, so this reopens closed deals.
		applyStageFields(deal, pipeline.TransitionPayload{}, s.now())
		if activity, err = stageChangeActivity(deal, from, auth.UserID); err != nil {
			return nil, false, err
		}
	}

	placements := pipeline.Reindex(ordered)
	if err := s.dealRepo.ReorderColumn(auth.OrganizationID, stage, placements, deal, activity); err != nil {
		if errors.Is(err, repository.ErrStaleColumn) {
			return nil, false, ErrStaleColumn
		}
		return nil, false, fmt.Errorf("failed to move deal: %w", err)
	}
	for _, p := range placements {
		if p.DealID == deal.ID {
			deal.Position = p.Position
		}
	}

	if activity != nil {
		s.metrics.StageTransition(string(from), string(stage))
	}
	return deal, true, nil
}

// DeleteDeal removes a deal together with its activities and tasks.
func (s *DealService) DeleteDeal(auth *authz.AuthContext, dealID uint64) error {
	if err := authorize(auth, authz.PermDealDelete); err != nil {
		return err
	}

	if err := s.dealRepo.Delete(auth.OrganizationID, dealID); err != nil {
		return lookupError(err, ErrDealNotFound, "deal")
	}

	logger.L().Info("deal deleted",
		zap.Uint64("organization_id", auth.OrganizationID),
		zap.Uint64("deal_id", dealID),
		zap.Uint64("user_id", auth.UserID),
	)
	return nil
}

func (s *DealService) columnIDs(orgID uint64, stage models.DealStage) ([]uint64, error) {
	deals, err := s.dealRepo.ListColumn(orgID, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to load column: %w", err)
	}
	ids := make([]uint64, len(deals))
	for i, d := range deals {
		ids[i] = d.ID
	}
	return ids, nil
}

// validateReferences makes sure owner, contact and company all belong to the
// deal's organization. Foreign references look exactly like missing ones.
func (s *DealService) validateReferences(orgID uint64, deal *models.Deal) error {
	if deal.OwnerID != nil {
		if _, err := s.orgRepo.FindMember(orgID, *deal.OwnerID); err != nil {
			return lookupError(err, ErrNotOrganizationMember, "deal owner")
		}
	}
	if deal.ContactID != nil {
		if _, err := s.contactRepo.FindByID(orgID, *deal.ContactID); err != nil {
			return lookupError(err, ErrContactNotFound, "contact")
		}
	}
	if deal.CompanyID != nil {
		if _, err := s.companyRepo.FindByID(orgID, *deal.CompanyID); err != nil {
			return lookupError(err, ErrCompanyNotFound, "company")
		}
	}
	return nil
}

// applyStageFields keeps close date and lost reason consistent with the stage.
func applyStageFields(deal *models.Deal, payload pipeline.TransitionPayload, now time.Time) {
	switch deal.Stage {
	case models.StageWon:
		deal.CloseDate = payload.CloseDate
		deal.LostReason = ""
	case models.StageLost:
		deal.LostReason = strings.TrimSpace(payload.LostReason)
		deal.CloseDate = payload.CloseDate
		if deal.CloseDate == nil {
			today := now.UTC().Truncate(24 * time.Hour)
			deal.CloseDate = &today
		}
	default:
		deal.CloseDate = nil
		deal.LostReason = ""
	}
}

func stageChangeActivity(deal *models.Deal, from models.DealStage, actorID uint64) (*models.DealActivity, error) {
	metadata, err := json.Marshal(models.StageChangeMetadata{FromStage: from, ToStage: deal.Stage})
	if err != nil {
		return nil, fmt.Errorf("failed to encode stage change: %w", err)
	}
	return &models.DealActivity{
		DealID:         deal.ID,
		OrganizationID: deal.OrganizationID,
		ActivityType:   models.ActivityStageChange,
		Content:        fmt.Sprintf("Moved from %s to %s", pipeline.Label(from), pipeline.Label(deal.Stage)),
		Metadata:       datatypes.JSON(metadata),
		CreatedBy:      actorID,
	}, nil
}

func normalizeCurrency(raw string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return "USD", nil
	}
	if len(currency) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return currency, nil
}

func nonZero(id *uint64) *uint64 {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}
