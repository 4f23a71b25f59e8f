package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/saleminimum-backend/internal/saleconfig"
	salessvc "github.com/angelmondragon/saleminimum-backend/internal/sales"
	pkgAuth "github.com/angelmondragon/saleminimum-backend/pkg/auth"
	"github.com/angelmondragon/saleminimum-backend/pkg/config"
	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
	"github.com/angelmondragon/saleminimum-backend/pkg/metrics"
	"github.com/angelmondragon/saleminimum-backend/pkg/outbox"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSalesService struct{}

func (stubSalesService) CreateSale(ctx context.Context, input salessvc.CreateSaleInput) (*models.Sale, error) {
	return &models.Sale{ID: uuid.New(), State: enums.SaleStateDraft, CurrencyDigits: 2}, nil
}

func (stubSalesService) GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	return &models.Sale{ID: saleID, State: enums.SaleStateDraft, CurrencyDigits: 2}, nil
}

func (stubSalesService) ListSales(ctx context.Context, params salessvc.ListParams) (*salessvc.ListResult, error) {
	return &salessvc.ListResult{}, nil
}

func (stubSalesService) AddLine(ctx context.Context, saleID uuid.UUID, input salessvc.LineInput) (*salessvc.LineResult, error) {
	return &salessvc.LineResult{Line: &models.SaleLine{ID: uuid.New(), SaleID: saleID, Type: enums.SaleLineTypeLine}}, nil
}

func (stubSalesService) ChangeLine(ctx context.Context, saleID, lineID uuid.UUID, input salessvc.LineInput) (*salessvc.LineResult, error) {
	return &salessvc.LineResult{Line: &models.SaleLine{ID: lineID, SaleID: saleID, Type: enums.SaleLineTypeLine}}, nil
}

func (stubSalesService) Quote(ctx context.Context, saleIDs []uuid.UUID, actor *outbox.ActorRef) salessvc.QuoteReport {
	report := salessvc.QuoteReport{}
	for _, id := range saleIDs {
		report.Results = append(report.Results, salessvc.QuoteResult{SaleID: id, Status: salessvc.QuoteStatusQuoted})
	}
	return report
}

func (stubSalesService) Confirm(ctx context.Context, saleID uuid.UUID, actor *outbox.ActorRef) (*models.Sale, error) {
	return &models.Sale{ID: saleID, State: enums.SaleStateConfirmed, CurrencyDigits: 2}, nil
}

func (stubSalesService) Copy(ctx context.Context, saleID uuid.UUID, actor *outbox.ActorRef) (*models.Sale, error) {
	return &models.Sale{ID: uuid.New(), State: enums.SaleStateDraft, CopiedFromID: &saleID, CurrencyDigits: 2}, nil
}

type stubSaleConfigService struct{}

func (stubSaleConfigService) Get(ctx context.Context) (*models.SaleConfiguration, error) {
	return &models.SaleConfiguration{ID: models.SaleConfigurationID, MinimumAmount: decimal.NewFromInt(100)}, nil
}

func (stubSaleConfigService) MinimumAmount(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(100), nil
}

func (stubSaleConfigService) Update(ctx context.Context, input saleconfig.UpdateInput) (*models.SaleConfiguration, error) {
	return &models.SaleConfiguration{ID: models.SaleConfigurationID, MinimumAmount: input.MinimumAmount}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	metrics.NewMinimumMetrics(reg)
	return NewRouter(RouterParams{
		Config:     cfg,
		Logger:     logg,
		DB:         stubPinger{},
		Gatherer:   reg,
		Sales:      stubSalesService{},
		SaleConfig: stubSaleConfigService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthRoutesArePublic(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMetricsEndpointDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	router := newTestRouter(cfg)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestSalesRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestViewerCanReadButNotQuote(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.UserRoleViewer)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/sales/"+uuid.NewString(), nil)
	get.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, get)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for viewer read got %d", resp.Code)
	}

	quote := httptest.NewRequest(http.MethodPost, "/api/v1/sales/quote", strings.NewReader(`{"sale_ids":["`+uuid.NewString()+`"]}`))
	quote.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, quote)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer quote got %d", resp.Code)
	}
}

func TestSalesRepCanQuote(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/quote", strings.NewReader(`{"sale_ids":["`+uuid.NewString()+`"]}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleSalesRep))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSalesCreateRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(`{"number":"SO-1"}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleSalesRep))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestSaleConfigurationUpdateRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	rep := httptest.NewRequest(http.MethodPut, "/api/v1/sale-configuration", strings.NewReader(`{"minimum_amount":"10"}`))
	rep.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleSalesRep))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, rep)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for sales rep got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPut, "/api/v1/sale-configuration", strings.NewReader(`{"minimum_amount":"10"}`))
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestContentLanguageNegotiated(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if got := resp.Header().Get("Content-Language"); !strings.HasPrefix(got, "es") {
		t.Fatalf("expected spanish content language got %q", got)
	}
}
