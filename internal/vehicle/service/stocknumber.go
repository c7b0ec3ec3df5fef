package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rubicondrive/dealerdesk/internal/clock"
	"github.com/rubicondrive/dealerdesk/internal/vehicle/domain"
	"gorm.io/gorm"
)

// StockNumberPattern matches allocated stock numbers, e.g. RD-2026-000431.
var StockNumberPattern = regexp.MustCompile(`^[A-Z]+-\d{4}-\d{6}$`)

// StockAllocator hands out year-scoped sequential stock numbers backed by
// an atomic counter row. Sequences start at 000001 each calendar year.
type StockAllocator struct {
	prefix string
	db     *gorm.DB
	repo   domain.Repository
	clock  clock.Clock
}

func NewStockAllocator(prefix string, db *gorm.DB, repo domain.Repository, clk clock.Clock) *StockAllocator {
	if prefix == "" {
		prefix = "RD"
	}
	return &StockAllocator{prefix: prefix, db: db, repo: repo, clock: clk}
}

// Allocate returns the next stock number for the current calendar year.
func (a *StockAllocator) Allocate(ctx context.Context) (string, error) {
	year := a.clock.Now().Year()
	seq, err := a.repo.NextStockSequence(ctx, a.db, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d-%06d", a.prefix, year, seq), nil
}
