package seeder

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/checkout/internal/database"
	"github.com/Additional-Code/checkout/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// PaymentMethods seeds the offered payment methods if they are missing.
func (s *Seeder) PaymentMethods(ctx context.Context) error {
	samples := []entity.PaymentMethod{
		{Code: entity.MethodCard, Title: "Bank card", Description: "Synchronous card payment via the gateway", IsActive: true, DisplayOrder: 1},
		{Code: entity.MethodTerminal, Title: "Payment terminal", Description: "Synchronous terminal payment via the gateway", IsActive: true, DisplayOrder: 2},
		{Code: entity.MethodBank, Title: "Bank transfer", Description: "Invoice settled out-of-band by bank transfer", IsActive: true, DisplayOrder: 3},
	}

	for _, sample := range samples {
		method := sample
		_, err := s.db.NewInsert().Model(&method).
			On("CONFLICT (code) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded payment methods", zap.Int("count", len(samples)))
	}
	return nil
}
