package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// Book is the canonical record for a physical book, reconciled from all
// provider outputs. A row is created on the first successful enrichment of a
// barcode; re-scans bump Count and refresh previously-empty fields, never
// duplicate the row.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Barcode   string    `bun:",nullzero" json:"barcode"`
	ISBN      string    `json:"isbn"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Publisher string    `json:"publisher"`
	Summary   string    `json:"summary"`
	// Keywords are stored serialized as a JSON array in the keywords
	// column; KeywordsParsed is the in-memory mirror.
	Keywords       string   `bun:"keywords" json:"-"`
	KeywordsParsed []string `bun:"-" json:"keywords"`
	Count          int      `json:"count"`

	Loans []*Loan `bun:"rel:has-many,join:id=book_id" json:"loans,omitempty"`
}

// MarshalKeywords serializes KeywordsParsed into the Keywords column value.
func (b *Book) MarshalKeywords() error {
	if b.KeywordsParsed == nil {
		b.Keywords = "[]"
		return nil
	}
	data, err := json.Marshal(b.KeywordsParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	b.Keywords = string(data)
	return nil
}

// UnmarshalKeywords parses the Keywords column value into KeywordsParsed.
func (b *Book) UnmarshalKeywords() error {
	if b.Keywords == "" {
		b.KeywordsParsed = []string{}
		return nil
	}
	b.KeywordsParsed = []string{}
	err := json.Unmarshal([]byte(b.Keywords), &b.KeywordsParsed)
	return errors.WithStack(err)
}
