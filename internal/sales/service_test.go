package sales

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/saleminimum-backend/internal/catalog"
	"github.com/angelmondragon/saleminimum-backend/internal/minimums"
	"github.com/angelmondragon/saleminimum-backend/internal/saleconfig"
	"github.com/angelmondragon/saleminimum-backend/pkg/db"
	"github.com/angelmondragon/saleminimum-backend/pkg/db/dbtest"
	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
	"github.com/angelmondragon/saleminimum-backend/pkg/metrics"
	"github.com/angelmondragon/saleminimum-backend/pkg/outbox"
	"github.com/angelmondragon/saleminimum-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc      Service
	conn     *gorm.DB
	cat      *dbtest.Catalog
	bolts    *models.Product
	widget   *models.Product
	registry *prometheus.Registry
}

func newFixture(t *testing.T, policy enums.QuantityPolicy, minimumAmount string) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	cat := dbtest.SeedCatalog(t, conn)
	reg := prometheus.NewRegistry()
	m := metrics.NewMinimumMetrics(reg)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)

	cfg, err := saleconfig.NewService(saleconfig.NewRepository(conn), db.NewFromGorm(conn), emitter, decimal.RequireFromString(minimumAmount), nil)
	require.NoError(t, err)
	_, err = cfg.MinimumAmount(context.Background())
	require.NoError(t, err)

	resolver := minimums.NewResolver(nil, m)
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(conn),
		Tx:          db.NewFromGorm(conn),
		Catalog:     catalog.NewRepository(conn),
		Enforcer:    minimums.NewEnforcer(resolver, policy, minimums.NopNotifier{}, nil, m),
		Pipeline:    minimums.DefaultPipeline(resolver, cfg, nil, m),
		Outbox:      emitter,
		Metrics:     m,
		PriceDigits: 4,
		Now:         func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	return &fixture{
		svc:      svc,
		conn:     conn,
		cat:      cat,
		bolts:    dbtest.CreateProduct(t, conn, "Bolts", cat.Unit, "20", "5"),
		widget:   dbtest.CreateProduct(t, conn, "Widget", cat.Unit, "10", ""),
		registry: reg,
	}
}

func (f *fixture) sale(t *testing.T, number string, withParty bool) *models.Sale {
	t.Helper()
	input := CreateSaleInput{Number: &number}
	if withParty {
		party := uuid.New()
		input.PartyID = &party
	}
	sale, err := f.svc.CreateSale(context.Background(), input)
	require.NoError(t, err)
	return sale
}

// rawLine inserts a line without running the minimum rules.
func (f *fixture) rawLine(t *testing.T, sale *models.Sale, product *models.Product, unit *models.Unit, qty, price string) models.SaleLine {
	t.Helper()
	line := models.SaleLine{
		SaleID:    sale.ID,
		Sequence:  len(f.reload(t, sale.ID).Lines) + 1,
		Type:      enums.SaleLineTypeLine,
		ProductID: &product.ID,
		UnitID:    &unit.ID,
		Quantity:  decimal.NewNullDecimal(decimal.RequireFromString(qty)),
		UnitPrice: decimal.RequireFromString(price),
	}
	require.NoError(t, f.conn.Create(&line).Error)
	return line
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Sale {
	t.Helper()
	sale, err := f.svc.GetSale(context.Background(), id)
	require.NoError(t, err)
	return sale
}

func (f *fixture) events(t *testing.T, eventType enums.OutboxEventType) []models.OutboxEvent {
	t.Helper()
	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", eventType).Find(&events).Error)
	return events
}

func qty(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestAddLineClampsToProductMinimum(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	sale := f.sale(t, "SO-1", true)

	res, err := f.svc.AddLine(context.Background(), sale.ID, LineInput{ProductID: &f.bolts.ID})
	require.NoError(t, err)
	assert.True(t, res.QuantityChanged)
	assert.Equal(t, "5", res.Line.Quantity.Decimal.String())
	assert.Equal(t, "5", res.Line.MinimumQuantity.Decimal.String())
	assert.Equal(t, "20", res.Line.UnitPrice.String())
	require.NotNil(t, res.Line.UnitID)
	assert.Equal(t, f.cat.Unit.ID, *res.Line.UnitID)

	stored := f.reload(t, sale.ID)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, 1, stored.Lines[0].Sequence)
	assert.Equal(t, "5", stored.Lines[0].Quantity.Decimal.String())
	assert.Equal(t, "5", stored.Lines[0].MinimumQuantity.Decimal.String())

	clamps := f.events(t, enums.EventSaleLineMinimumClamped)
	require.Len(t, clamps, 1)
	assert.Equal(t, sale.ID, clamps[0].AggregateID)
}

func TestChangeLineFollowsClampScenario(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	sale := f.sale(t, "SO-2", true)
	added, err := f.svc.AddLine(context.Background(), sale.ID, LineInput{ProductID: &f.bolts.ID})
	require.NoError(t, err)
	lineID := added.Line.ID

	res, err := f.svc.ChangeLine(context.Background(), sale.ID, lineID, LineInput{Quantity: qty("6")})
	require.NoError(t, err)
	assert.False(t, res.QuantityChanged)
	assert.Equal(t, "6", res.Line.Quantity.Decimal.String())
	assert.False(t, res.Line.MinimumQuantity.Valid)

	res, err = f.svc.ChangeLine(context.Background(), sale.ID, lineID, LineInput{Quantity: qty("3")})
	require.NoError(t, err)
	assert.True(t, res.QuantityChanged)
	assert.Equal(t, "5", res.Line.Quantity.Decimal.String())
	assert.Equal(t, "5", res.Line.MinimumQuantity.Decimal.String())

	stored := f.reload(t, sale.ID).Lines[0]
	assert.Equal(t, "5", stored.Quantity.Decimal.String())
	assert.Equal(t, "5", stored.MinimumQuantity.Decimal.String())
	assert.Len(t, f.events(t, enums.EventSaleLineMinimumClamped), 2)
}

func TestChangeLineUnitRecomputesInNewUnit(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	sale := f.sale(t, "SO-3", true)
	added, err := f.svc.AddLine(context.Background(), sale.ID, LineInput{ProductID: &f.bolts.ID})
	require.NoError(t, err)

	res, err := f.svc.ChangeLine(context.Background(), sale.ID, added.Line.ID, LineInput{UnitID: &f.cat.Dozen.ID, ClearQuantity: true})
	require.NoError(t, err)
	assert.True(t, res.QuantityChanged)
	assert.Equal(t, "0.42", res.Line.Quantity.Decimal.String())
	assert.Equal(t, "0.42", res.Line.MinimumQuantity.Decimal.String())
}

func TestChangeLineRejectsUnitOfAnotherCategory(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	sale := f.sale(t, "SO-4", true)
	added, err := f.svc.AddLine(context.Background(), sale.ID, LineInput{ProductID: &f.bolts.ID})
	require.NoError(t, err)

	_, err = f.svc.ChangeLine(context.Background(), sale.ID, added.Line.ID, LineInput{UnitID: &f.cat.Kg.ID})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, f.cat.Unit.ID, *f.reload(t, sale.ID).Lines[0].UnitID)
}

func TestLinesWithoutPartyAreNotClamped(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	sale := f.sale(t, "SO-5", false)

	res, err := f.svc.AddLine(context.Background(), sale.ID, LineInput{ProductID: &f.bolts.ID, Quantity: qty("2")})
	require.NoError(t, err)
	assert.False(t, res.QuantityChanged)
	assert.Equal(t, "2", res.Line.Quantity.Decimal.String())
	assert.False(t, res.Line.MinimumQuantity.Valid)
}

func TestAdvisoryPolicyReturnsWarnings(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyAdvisory, "0")
	sale := f.sale(t, "SO-6", true)

	res, err := f.svc.AddLine(context.Background(), sale.ID, LineInput{ProductID: &f.bolts.ID, Quantity: qty("3")})
	require.NoError(t, err)
	assert.False(t, res.QuantityChanged)
	assert.Equal(t, "3", res.Line.Quantity.Decimal.String())
	assert.Equal(t, "5", res.Line.MinimumQuantity.Decimal.String())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "Bolts", res.Warnings[0].ProductName)
	assert.Empty(t, f.events(t, enums.EventSaleLineMinimumClamped))
}

func TestLayoutLinesRejectProducts(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	sale := f.sale(t, "SO-7", true)
	comment := enums.SaleLineTypeComment
	text := "Deliver before noon"

	res, err := f.svc.AddLine(context.Background(), sale.ID, LineInput{Type: &comment, Description: &text})
	require.NoError(t, err)
	assert.False(t, res.Line.MinimumQuantity.Valid)

	_, err = f.svc.AddLine(context.Background(), sale.ID, LineInput{Type: &comment, ProductID: &f.bolts.ID})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestQuoteProcessesEachSaleIndependently(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "100")

	good := f.sale(t, "SO-10", true)
	f.rawLine(t, good, f.bolts, f.cat.Unit, "6", "20")

	short := f.sale(t, "SO-11", true)
	shortLine := f.rawLine(t, short, f.bolts, f.cat.Unit, "3", "50")

	cheap := f.sale(t, "SO-12", true)
	f.rawLine(t, cheap, f.widget, f.cat.Unit, "8", "10")

	report := f.svc.Quote(context.Background(), []uuid.UUID{short.ID, good.ID, cheap.ID, good.ID}, &outbox.ActorRef{UserID: uuid.New(), Role: "sales_rep"})
	require.Len(t, report.Results, 3)
	assert.Equal(t, []uuid.UUID{good.ID}, report.Quoted())

	assert.Equal(t, QuoteStatusRejected, report.Results[0].Status)
	qv, ok := minimums.AsMinimumQuantityViolation(report.Results[0].Err)
	require.True(t, ok)
	assert.Equal(t, shortLine.ID, qv.LineID)
	assert.Equal(t, "Bolts", qv.LineName)
	assert.Equal(t, "3", qv.Quantity.String())
	assert.Equal(t, "5", qv.Minimum.String())

	assert.Equal(t, QuoteStatusQuoted, report.Results[1].Status)

	assert.Equal(t, QuoteStatusRejected, report.Results[2].Status)
	av, ok := minimums.AsMinimumAmountViolation(report.Results[2].Err)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(80).Equal(av.Total))
	assert.Equal(t, "SO-12", av.OrderName)
	assert.True(t, decimal.NewFromInt(100).Equal(av.Minimum))

	err := report.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), short.ID.String())
	assert.Contains(t, err.Error(), cheap.ID.String())

	quoted := f.reload(t, good.ID)
	assert.Equal(t, enums.SaleStateQuotation, quoted.State)
	require.NotNil(t, quoted.QuotedAt)
	assert.True(t, fixedNow.Equal(quoted.QuotedAt.UTC()))

	for _, id := range []uuid.UUID{short.ID, cheap.ID} {
		stored := f.reload(t, id)
		assert.Equal(t, enums.SaleStateDraft, stored.State)
		assert.Nil(t, stored.QuotedAt)
	}
	assert.Equal(t, "3", f.reload(t, short.ID).Lines[0].Quantity.Decimal.String())

	quotedEvents := f.events(t, enums.EventSaleQuoted)
	require.Len(t, quotedEvents, 1)
	assert.Equal(t, good.ID, quotedEvents[0].AggregateID)
}

func TestQuoteRejectsNonDraftAndReportsMissingSales(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	sale := f.sale(t, "SO-20", true)
	f.rawLine(t, sale, f.widget, f.cat.Unit, "1", "10")

	first := f.svc.Quote(context.Background(), []uuid.UUID{sale.ID}, nil)
	require.NoError(t, first.Err())

	missing := uuid.New()
	again := f.svc.Quote(context.Background(), []uuid.UUID{sale.ID, missing}, nil)
	require.Len(t, again.Results, 2)
	assert.Equal(t, QuoteStatusRejected, again.Results[0].Status)
	assert.True(t, pkgerrors.HasCode(again.Results[0].Err, pkgerrors.CodeStateConflict))
	assert.Equal(t, QuoteStatusFailed, again.Results[1].Status)
	assert.True(t, pkgerrors.HasCode(again.Results[1].Err, pkgerrors.CodeNotFound))
}

func TestChangeLineRequiresDraft(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	sale := f.sale(t, "SO-21", true)
	line := f.rawLine(t, sale, f.bolts, f.cat.Unit, "5", "20")
	require.NoError(t, f.svc.Quote(context.Background(), []uuid.UUID{sale.ID}, nil).Err())

	_, err := f.svc.ChangeLine(context.Background(), sale.ID, line.ID, LineInput{Quantity: qty("1")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	_, err = f.svc.ChangeLine(context.Background(), sale.ID, uuid.New(), LineInput{Quantity: qty("1")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestConfirmRequiresQuotation(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	sale := f.sale(t, "SO-30", true)
	f.rawLine(t, sale, f.widget, f.cat.Unit, "2", "10")

	_, err := f.svc.Confirm(context.Background(), sale.ID, nil)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	require.NoError(t, f.svc.Quote(context.Background(), []uuid.UUID{sale.ID}, nil).Err())
	confirmed, err := f.svc.Confirm(context.Background(), sale.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.SaleStateConfirmed, confirmed.State)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.Len(t, f.events(t, enums.EventSaleConfirmed), 1)
}

func TestCopyStartsWithoutMinimum(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	source := f.sale(t, "SO-40", true)
	_, err := f.svc.AddLine(context.Background(), source.ID, LineInput{ProductID: &f.bolts.ID, Quantity: qty("2")})
	require.NoError(t, err)
	require.Equal(t, "5", f.reload(t, source.ID).Lines[0].MinimumQuantity.Decimal.String())

	dup, err := f.svc.Copy(context.Background(), source.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, dup.ID)
	assert.Equal(t, enums.SaleStateDraft, dup.State)
	assert.Nil(t, dup.Number)
	require.NotNil(t, dup.CopiedFromID)
	assert.Equal(t, source.ID, *dup.CopiedFromID)
	assert.Equal(t, source.PartyID, dup.PartyID)
	require.Len(t, dup.Lines, 1)
	assert.Equal(t, "5", dup.Lines[0].Quantity.Decimal.String())
	assert.False(t, dup.Lines[0].MinimumQuantity.Valid)
	require.NotNil(t, dup.Lines[0].Product)
	assert.Equal(t, f.bolts.ID, dup.Lines[0].Product.ID)

	copies := f.events(t, enums.EventSaleCopied)
	require.Len(t, copies, 1)
	assert.Equal(t, dup.ID, copies[0].AggregateID)
}

func TestCreateSaleRejectsDuplicateNumber(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	f.sale(t, "SO-50", false)

	number := "SO-50"
	_, err := f.svc.CreateSale(context.Background(), CreateSaleInput{Number: &number})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	digits := int32(9)
	_, err = f.svc.CreateSale(context.Background(), CreateSaleInput{CurrencyDigits: &digits})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestGetSaleNotFound(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	_, err := f.svc.GetSale(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestQuoteRecordsMetrics(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "100")
	sale := f.sale(t, "SO-60", true)
	f.rawLine(t, sale, f.widget, f.cat.Unit, "1", "10")

	f.svc.Quote(context.Background(), []uuid.UUID{sale.ID}, nil)

	families, err := f.registry.Gather()
	require.NoError(t, err)
	found := map[string]bool{}
	for _, family := range families {
		found[family.GetName()] = true
	}
	assert.True(t, found["sale_quote_attempts_total"])
	assert.True(t, found["sale_minimum_violations_total"])
	assert.True(t, found["sale_quote_duration_seconds"])
}

func TestListSalesPagesNewestFirst(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	ctx := context.Background()
	var ids []uuid.UUID
	for i, number := range []string{"SO-1", "SO-2", "SO-3"} {
		sale := f.sale(t, number, true)
		require.NoError(t, f.conn.Model(&models.Sale{}).Where("id = ?", sale.ID).
			UpdateColumn("created_at", fixedNow.Add(time.Duration(i)*time.Minute)).Error)
		ids = append(ids, sale.ID)
	}
	f.rawLine(t, &models.Sale{ID: ids[2]}, f.widget, f.cat.Unit, "2", "10")

	first, err := f.svc.ListSales(ctx, ListParams{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, ids[2], first.Items[0].ID)
	assert.Equal(t, ids[1], first.Items[1].ID)
	assert.Equal(t, "20", first.Items[0].TotalAmount().String())
	require.NotEmpty(t, first.Cursor)

	second, err := f.svc.ListSales(ctx, ListParams{Params: pagination.Params{Limit: 2, Cursor: first.Cursor}})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, ids[0], second.Items[0].ID)
	assert.Empty(t, second.Cursor)
}

func TestListSalesFiltersByState(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")
	draft := f.sale(t, "SO-1", true)
	quoted := f.sale(t, "SO-2", true)
	require.NoError(t, f.conn.Model(&models.Sale{}).Where("id = ?", quoted.ID).
		UpdateColumn("state", enums.SaleStateQuotation).Error)

	state := enums.SaleStateDraft
	res, err := f.svc.ListSales(context.Background(), ListParams{State: &state})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, draft.ID, res.Items[0].ID)
}

func TestListSalesRejectsBadInput(t *testing.T) {
	f := newFixture(t, enums.QuantityPolicyClamp, "0")

	_, err := f.svc.ListSales(context.Background(), ListParams{Params: pagination.Params{Cursor: "not-a-cursor"}})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	state := enums.SaleState("archived")
	_, err = f.svc.ListSales(context.Background(), ListParams{State: &state})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
