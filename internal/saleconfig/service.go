package saleconfig

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/saleminimum-backend/pkg/db/models"
	"github.com/angelmondragon/saleminimum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/saleminimum-backend/pkg/errors"
	"github.com/angelmondragon/saleminimum-backend/pkg/logger"
	"github.com/angelmondragon/saleminimum-backend/pkg/outbox"
)

// aggregateID is the stable outbox aggregate id of the singleton row.
var aggregateID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("sale_configuration"))

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the sale configuration.
type Service interface {
	Get(ctx context.Context) (*models.SaleConfiguration, error)
	MinimumAmount(ctx context.Context) (decimal.Decimal, error)
	Update(ctx context.Context, input UpdateInput) (*models.SaleConfiguration, error)
}

// UpdateInput carries a new minimum amount and who set it.
type UpdateInput struct {
	MinimumAmount decimal.Decimal
	ActorUserID   uuid.UUID
	ActorRole     enums.UserRole
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outbox.Emitter
	seed   decimal.Decimal
	logg   *logger.Logger
}

// NewService builds the configuration service. seed is the minimum amount
// used until an admin stores one.
func NewService(repo *Repository, tx txRunner, emitter outbox.Emitter, seed decimal.Decimal, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sale configuration repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if seed.IsNegative() {
		return nil, fmt.Errorf("seed minimum amount must be non-negative")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, outbox: emitter, seed: seed, logg: logg}, nil
}

func (s *service) Get(ctx context.Context) (*models.SaleConfiguration, error) {
	cfg, err := s.repo.Get(ctx, s.seed)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale configuration")
	}
	return cfg, nil
}

// MinimumAmount returns the configured minimum order amount. Zero disables
// the check.
func (s *service) MinimumAmount(ctx context.Context) (decimal.Decimal, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return cfg.MinimumAmount, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.SaleConfiguration, error) {
	if input.MinimumAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum amount must be non-negative")
	}
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can change the sale configuration")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor user id required")
	}

	var updated *models.SaleConfiguration
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cfg, err := repo.Get(ctx, s.seed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale configuration")
		}
		previous := cfg.MinimumAmount
		cfg.MinimumAmount = input.MinimumAmount
		actor := input.ActorUserID
		cfg.UpdatedBy = &actor
		if err := repo.Save(ctx, cfg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save sale configuration")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventSaleConfigurationUpdated,
			AggregateType: enums.AggregateSaleConfiguration,
			AggregateID:   aggregateID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)},
			Data: outbox.SaleConfigurationUpdatedEvent{
				PreviousMinimumAmount: previous,
				MinimumAmount:         cfg.MinimumAmount,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit configuration event")
		}
		updated = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"minimum_amount": updated.MinimumAmount.String(),
	})
	s.logg.Info(logCtx, "sale configuration updated")
	return updated, nil
}
