package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionRecord is money collected at a market during a session.
type CollectionRecord struct {
	ID             string
	SessionID      string
	MarketID       string
	OwnerID        string
	CollectionDate time.Time
	Amount         decimal.Decimal
	Note           string
	CreatedAt      time.Time
}
