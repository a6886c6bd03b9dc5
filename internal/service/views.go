package service

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/mmynk/billsnap/internal/session"
)

// itemView is the wire shape of one receipt item, with its assignment
// state folded in so the client renders from a single object.
type itemView struct {
	Index      int            `json:"index"`
	Name       string         `json:"name"`
	Quantity   int            `json:"quantity"`
	UnitPrice  string         `json:"unit_price"`
	TotalPrice string         `json:"total_price"`
	Assigned   []string       `json:"assigned"`
	Shared     bool           `json:"shared"`
	UnitCounts map[string]int `json:"unit_counts,omitempty"`
	Portions   [][]string     `json:"portions,omitempty"`
}

type participantView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Initial string `json:"initial"`
	Color   string `json:"color"`
	IsPayer bool   `json:"is_payer"`
}

type sessionView struct {
	ID              string            `json:"id"`
	Items           []itemView        `json:"items"`
	People          []participantView `json:"people"`
	PaidBy          string            `json:"paid_by,omitempty"`
	ReceiptImageURL string            `json:"receipt_image_url,omitempty"`
	CreatedAt       int64             `json:"created_at"`
}

func viewSession(s session.Session) sessionView {
	v := sessionView{
		ID:              s.ID,
		Items:           make([]itemView, 0, len(s.Items)),
		People:          make([]participantView, 0, len(s.People)),
		PaidBy:          s.PaidBy,
		ReceiptImageURL: s.ReceiptImageURL,
		CreatedAt:       s.CreatedAt,
	}
	for _, it := range s.Items {
		v.Items = append(v.Items, itemView{
			Index:      it.Index,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice.StringFixed(2),
			TotalPrice: it.TotalPrice().StringFixed(2),
			Assigned:   s.Assignments.Assigned(it.Index),
			Shared:     s.Assignments.IsShared(it.Index),
			UnitCounts: s.Assignments.Counts(it.Index),
			Portions:   s.Assignments.Portions(it.Index),
		})
	}
	for _, p := range s.People {
		v.People = append(v.People, participantView{
			ID:      p.ID,
			Name:    p.Name,
			Initial: p.Initial,
			Color:   p.Color,
			IsPayer: p.IsPayer,
		})
	}
	return v
}

// formatAmount rounds to the currency's smallest unit and formats for
// display. This is the only place amounts are rounded; the engine keeps
// full precision.
func formatAmount(d decimal.Decimal, currency string) string {
	cents := d.Round(2).Shift(2).IntPart()
	return money.New(cents, currency).Display()
}
