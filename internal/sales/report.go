package sales

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// QuoteStatus is the outcome of quoting one sale.
type QuoteStatus string

const (
	QuoteStatusQuoted   QuoteStatus = "quoted"
	QuoteStatusRejected QuoteStatus = "rejected"
	QuoteStatusFailed   QuoteStatus = "error"
)

// QuoteResult is the outcome for one sale of a batch quote.
type QuoteResult struct {
	SaleID uuid.UUID
	Status QuoteStatus
	Err    error
}

// QuoteReport lists one result per requested sale, in request order.
type QuoteReport struct {
	Results []QuoteResult
}

// Err combines the failures of the batch, nil when every sale was quoted.
func (r QuoteReport) Err() error {
	var err error
	for _, res := range r.Results {
		if res.Err != nil {
			err = multierr.Append(err, fmt.Errorf("sale %s: %w", res.SaleID, res.Err))
		}
	}
	return err
}

// Quoted returns the ids of the sales that moved to quotation.
func (r QuoteReport) Quoted() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Status == QuoteStatusQuoted {
			ids = append(ids, res.SaleID)
		}
	}
	return ids
}
