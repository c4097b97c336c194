package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is one side of a trade: supplier or consumer. Profit is a stored
// balance mutated only at settlement commit, guarded by Version: every write
// must carry the version it was read with, and the store rejects the write if
// the stored version has advanced since.
type Client struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Address       string          `json:"address"`
	Profit        decimal.Decimal `json:"profit"`
	Active        bool            `json:"active"`
	DeactivatedAt *time.Time      `json:"deactivated_at,omitempty"`
	Version       int64           `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SetActive flips the activity flag and maintains DeactivatedAt:
// set on true->false, cleared on false->true.
func (c *Client) SetActive(active bool, now time.Time) {
	if c.Active == active {
		return
	}
	c.Active = active
	if active {
		c.DeactivatedAt = nil
	} else {
		t := now.UTC()
		c.DeactivatedAt = &t
	}
}
