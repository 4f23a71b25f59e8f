// Package sales edits draft sales and moves them through the quote and
// confirm transitions, applying the minimum rules on the way.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/saleminimum-backend/internal/catalog"
	"github.com/angelmondragon/saleminimum-backend/internal/minimums"
	"github.com/angelmondragon/saleminimum-backend/pkg/db"
	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
	"github.com/angelmondragon/saleminimum-backend/pkg/metrics"
	"github.com/angelmondragon/saleminimum-backend/pkg/outbox"
	"github.com/angelmondragon/saleminimum-backend/pkg/pagination"
)

const defaultCurrencyDigits int32 = 2

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes sale editing and state transitions.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
	ListSales(ctx context.Context, params ListParams) (*ListResult, error)
	AddLine(ctx context.Context, saleID uuid.UUID, input LineInput) (*LineResult, error)
	ChangeLine(ctx context.Context, saleID, lineID uuid.UUID, input LineInput) (*LineResult, error)
	Quote(ctx context.Context, saleIDs []uuid.UUID, actor *outbox.ActorRef) QuoteReport
	Confirm(ctx context.Context, saleID uuid.UUID, actor *outbox.ActorRef) (*models.Sale, error)
	Copy(ctx context.Context, saleID uuid.UUID, actor *outbox.ActorRef) (*models.Sale, error)
}

// LineResult is a saved line plus what the minimum rules did to it.
type LineResult struct {
	Line            *models.SaleLine
	QuantityChanged bool
	Warnings        []minimums.Warning
}

// ServiceParams groups the service collaborators.
type ServiceParams struct {
	Repo        *Repository
	Tx          txRunner
	Catalog     catalog.Reader
	Enforcer    *minimums.Enforcer
	Pipeline    *minimums.Pipeline
	Outbox      outbox.Emitter
	Metrics     *metrics.MinimumMetrics
	Logger      *logger.Logger
	PriceDigits int32
	Now         func() time.Time
}

type service struct {
	repo        *Repository
	tx          txRunner
	catalog     catalog.Reader
	enforcer    *minimums.Enforcer
	pipeline    *minimums.Pipeline
	outbox      outbox.Emitter
	metrics     *metrics.MinimumMetrics
	logg        *logger.Logger
	priceDigits int32
	now         func() time.Time
}

// NewService builds the sales service backed by the provided stack.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if p.Enforcer == nil {
		return nil, fmt.Errorf("minimum enforcer required")
	}
	if p.Pipeline == nil {
		return nil, fmt.Errorf("quote validation pipeline required")
	}
	if p.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &service{
		repo:        p.Repo,
		tx:          p.Tx,
		catalog:     p.Catalog,
		enforcer:    p.Enforcer,
		pipeline:    p.Pipeline,
		outbox:      p.Outbox,
		metrics:     p.Metrics,
		logg:        p.Logger,
		priceDigits: p.PriceDigits,
		now:         p.Now,
	}, nil
}

func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	digits := defaultCurrencyDigits
	if input.CurrencyDigits != nil {
		digits = *input.CurrencyDigits
	}
	if digits < 0 || digits > 6 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency digits must be between 0 and 6")
	}
	sale := &models.Sale{
		Number:         input.Number,
		Reference:      input.Reference,
		PartyID:        input.PartyID,
		State:          enums.SaleStateDraft,
		CurrencyDigits: digits,
	}
	if err := s.repo.Create(ctx, sale); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sale number already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
	}
	s.logg.Info(s.logg.WithSaleID(ctx, sale.ID.String()), "sale created")
	return sale, nil
}

func (s *service) GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return sale, nil
}

func (s *service) ListSales(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.State != nil && !params.State.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sale state")
	}
	query := listSalesParams{
		State: params.State,
		Limit: params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

// AddLine appends a line to a draft sale. Product lines run through the
// minimum rules as if the product had just been selected.
func (s *service) AddLine(ctx context.Context, saleID uuid.UUID, input LineInput) (*LineResult, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	lineType := enums.SaleLineTypeLine
	if input.Type != nil {
		lineType = *input.Type
	}
	if lineType.IsProductLine() && input.ProductID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is required on product lines")
	}
	refs, err := s.loadRefs(ctx, input)
	if err != nil {
		return nil, err
	}

	var result *LineResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := loadDraft(ctx, repo, saleID)
		if err != nil {
			return err
		}
		sequence, err := repo.NextSequence(ctx, saleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate line sequence")
		}
		line := &models.SaleLine{SaleID: saleID, Sequence: sequence, Type: lineType}
		if _, err := input.apply(line, refs, s.priceDigits); err != nil {
			return err
		}
		entered := line.Quantity
		result = s.enforce(ctx, sale, line, enums.LineTriggerProduct, minimums.ResolveOptions{})
		if err := repo.CreateLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale line")
		}
		return s.emitClamp(ctx, tx, line, enums.LineTriggerProduct, entered, result, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ChangeLine edits a line of a draft sale and recomputes its minimum.
func (s *service) ChangeLine(ctx context.Context, saleID, lineID uuid.UUID, input LineInput) (*LineResult, error) {
	if saleID == uuid.Nil || lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id and line id are required")
	}
	if input.Type != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line type cannot be changed")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	refs, err := s.loadRefs(ctx, input)
	if err != nil {
		return nil, err
	}

	var result *LineResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := loadDraft(ctx, repo, saleID)
		if err != nil {
			return err
		}
		line := findLine(sale, lineID)
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "sale line not found")
		}
		trigger, err := input.apply(line, refs, s.priceDigits)
		if err != nil {
			return err
		}
		previous := line.Quantity
		result = s.enforce(ctx, sale, line, trigger, minimums.ResolveOptions{})
		if err := repo.SaveLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save sale line")
		}
		return s.emitClamp(ctx, tx, line, trigger, previous, result, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Quote moves each draft sale to quotation once it passes the minimum checks.
// Every sale runs in its own transaction; a rejected sale stays untouched and
// does not stop the others.
func (s *service) Quote(ctx context.Context, saleIDs []uuid.UUID, actor *outbox.ActorRef) QuoteReport {
	started := s.now()
	report := QuoteReport{Results: make([]QuoteResult, 0, len(saleIDs))}
	seen := make(map[uuid.UUID]struct{}, len(saleIDs))

	for _, id := range saleIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		result := QuoteResult{SaleID: id, Status: QuoteStatusQuoted}
		if err := s.quoteOne(ctx, id, actor); err != nil {
			result.Err = err
			result.Status = QuoteStatusFailed
			if typed := pkgerrors.As(err); typed != nil && pkgerrors.IsUserCorrectable(typed.Code()) {
				result.Status = QuoteStatusRejected
			}
		}
		s.metrics.IncQuote(string(result.Status))
		s.logQuote(ctx, result)
		report.Results = append(report.Results, result)
	}

	s.metrics.ObserveQuote(s.now().Sub(started))
	return report
}

func (s *service) quoteOne(ctx context.Context, saleID uuid.UUID, actor *outbox.ActorRef) error {
	if saleID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := loadDraft(ctx, repo, saleID)
		if err != nil {
			return err
		}
		if err := s.pipeline.Validate(ctx, minimums.SnapshotOf(sale)); err != nil {
			return err
		}
		if err := transition(ctx, repo, sale, enums.SaleStateQuotation, s.now().UTC()); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventSaleQuoted, sale.ID, actor, outbox.SaleQuotedEvent{
			SaleID:      sale.ID,
			Number:      sale.DisplayName(),
			TotalAmount: sale.TotalAmount(),
			LineCount:   len(sale.Lines),
		})
	})
}

// Confirm moves a quotation to confirmed.
func (s *service) Confirm(ctx context.Context, saleID uuid.UUID, actor *outbox.ActorRef) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sale, err := repo.FindByID(ctx, saleID)
		if err != nil {
			return mapLoadError(err)
		}
		if sale.State != enums.SaleStateQuotation {
			return stateConflict(sale, enums.SaleStateConfirmed)
		}
		if err := transition(ctx, repo, sale, enums.SaleStateConfirmed, s.now().UTC()); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventSaleConfirmed, sale.ID, actor, outbox.SaleConfirmedEvent{
			SaleID:      sale.ID,
			TotalAmount: sale.TotalAmount(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetSale(ctx, saleID)
}

// Copy duplicates a sale into a new draft. Copied lines keep their
// quantities and start without a stored minimum.
func (s *service) Copy(ctx context.Context, saleID uuid.UUID, actor *outbox.ActorRef) (*models.Sale, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	var copyID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		source, err := repo.FindByID(ctx, saleID)
		if err != nil {
			return mapLoadError(err)
		}
		sourceID := source.ID
		dup := &models.Sale{
			Reference:      source.Reference,
			PartyID:        source.PartyID,
			State:          enums.SaleStateDraft,
			CurrencyDigits: source.CurrencyDigits,
			CopiedFromID:   &sourceID,
			Lines:          make([]models.SaleLine, 0, len(source.Lines)),
		}
		for _, original := range source.Lines {
			line := models.SaleLine{
				Sequence:    original.Sequence,
				Type:        original.Type,
				ProductID:   original.ProductID,
				Product:     original.Product,
				Quantity:    original.Quantity,
				UnitID:      original.UnitID,
				Unit:        original.Unit,
				UnitPrice:   original.UnitPrice,
				Description: original.Description,
			}
			s.enforce(ctx, dup, &line, enums.LineTriggerProduct, minimums.ResolveOptions{Skip: true})
			// Associations are referenced by id so the insert leaves the catalog alone.
			line.Product = nil
			line.Unit = nil
			dup.Lines = append(dup.Lines, line)
		}
		if err := repo.Create(ctx, dup); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale copy")
		}
		copyID = dup.ID
		return s.emit(ctx, tx, enums.EventSaleCopied, dup.ID, actor, outbox.SaleCopiedEvent{
			SaleID:   dup.ID,
			SourceID: sourceID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"sale_id": copyID.String(), "source_id": saleID.String()}), "sale copied")
	return s.GetSale(ctx, copyID)
}

func (s *service) enforce(ctx context.Context, sale *models.Sale, line *models.SaleLine, trigger enums.LineTrigger, opts minimums.ResolveOptions) *LineResult {
	update := s.enforcer.OnLineChanged(ctx, minimums.LineChange{
		Trigger:  trigger,
		Line:     line,
		Product:  line.Product,
		Unit:     line.Unit,
		HasParty: sale.HasParty(),
		Options:  opts,
	})
	line.Quantity = update.Quantity
	line.MinimumQuantity = update.MinimumQuantity
	return &LineResult{Line: line, QuantityChanged: update.QuantityChanged, Warnings: update.Warnings}
}

func (s *service) emitClamp(ctx context.Context, tx *gorm.DB, line *models.SaleLine, trigger enums.LineTrigger, previous decimal.NullDecimal, result *LineResult, actor *outbox.ActorRef) error {
	if !result.QuantityChanged || !line.MinimumQuantity.Valid {
		return nil
	}
	var prev *string
	if previous.Valid {
		v := previous.Decimal.String()
		prev = &v
	}
	return s.emit(ctx, tx, enums.EventSaleLineMinimumClamped, line.SaleID, actor, outbox.LineMinimumClampedEvent{
		SaleID:          line.SaleID,
		LineID:          line.ID,
		Trigger:         string(trigger),
		PreviousQty:     prev,
		MinimumQuantity: line.MinimumQuantity.Decimal,
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, saleID uuid.UUID, actor *outbox.ActorRef, data any) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateSale,
		AggregateID:   saleID,
		Actor:         actor,
		Data:          data,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit sale event")
	}
	return nil
}

func (s *service) loadRefs(ctx context.Context, input LineInput) (catalogRefs, error) {
	var refs catalogRefs
	if input.ProductID != nil {
		product, err := s.catalog.FindProduct(ctx, *input.ProductID)
		if err != nil {
			return refs, err
		}
		if !product.Salable || !product.Active {
			return refs, pkgerrors.New(pkgerrors.CodeValidation, "product is not available for sale")
		}
		refs.product = product
	}
	if input.UnitID != nil {
		unit, err := s.catalog.FindUnit(ctx, *input.UnitID)
		if err != nil {
			return refs, err
		}
		if !unit.Active {
			return refs, pkgerrors.New(pkgerrors.CodeValidation, "unit is not active")
		}
		refs.unit = unit
	}
	return refs, nil
}

func (s *service) logQuote(ctx context.Context, result QuoteResult) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"sale_id": result.SaleID.String(),
		"result":  string(result.Status),
	})
	switch result.Status {
	case QuoteStatusQuoted:
		s.logg.Info(logCtx, "sale quoted")
	case QuoteStatusRejected:
		s.logg.Info(s.logg.WithField(logCtx, "reason", result.Err.Error()), "sale quote rejected")
	default:
		s.logg.Error(logCtx, "sale quote failed", result.Err)
	}
}

func loadDraft(ctx context.Context, repo *Repository, saleID uuid.UUID) (*models.Sale, error) {
	sale, err := repo.FindByID(ctx, saleID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if sale.State != enums.SaleStateDraft {
		return nil, stateConflict(sale, enums.SaleStateDraft)
	}
	return sale, nil
}

func transition(ctx context.Context, repo *Repository, sale *models.Sale, to enums.SaleState, at time.Time) error {
	if !sale.State.CanTransitionTo(to) {
		return stateConflict(sale, to)
	}
	err := repo.TransitionState(ctx, sale.ID, sale.State, to, at)
	if errors.Is(err, ErrStateChanged) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "sale changed state while processing")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale state")
	}
	sale.State = to
	return nil
}

func stateConflict(sale *models.Sale, wanted enums.SaleState) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("sale %s is %s", sale.DisplayName(), sale.State)).
		WithDetails(map[string]any{"sale_id": sale.ID, "state": sale.State, "wanted": wanted})
}

func findLine(sale *models.Sale, lineID uuid.UUID) *models.SaleLine {
	for i := range sale.Lines {
		if sale.Lines[i].ID == lineID {
			return &sale.Lines[i]
		}
	}
	return nil
}

func mapLoadError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
}
