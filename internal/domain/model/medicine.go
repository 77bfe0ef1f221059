package model

import (
	"fmt"
	"strings"
	"time"

	"telegram-medkit/internal/domain"
)

// DateLayout is the fixed-width ISO-8601 date used in commands and in the CSV file.
const DateLayout = "2006-01-02"

// legacyDateLayout accepts unpadded dates written by older tools.
const legacyDateLayout = "2006-1-2"

// Medicine is one inventory row, unique per (GroupID, Name).
type Medicine struct {
	GroupID  string
	Name     string
	Expiry   time.Time
	Quantity int
	Symptoms SymptomSet
}

func NewMedicine(groupID, name string, expiry time.Time, qty int, symptoms SymptomSet) (*Medicine, error) {
	name = Fold(name)
	if strings.TrimSpace(groupID) == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidArgument)
	}
	return &Medicine{
		GroupID:  groupID,
		Name:     name,
		Expiry:   DateOf(expiry),
		Quantity: qty,
		Symptoms: symptoms,
	}, nil
}

// ParseDate parses a strict YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, domain.ErrInvalidArgument)
	}
	return t, nil
}

// ParseStoredDate is ParseDate with a fallback for unpadded legacy rows.
func ParseStoredDate(s string) (time.Time, error) {
	if t, err := ParseDate(s); err == nil {
		return t, nil
	}
	t, err := time.Parse(legacyDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored date %q: %w", s, domain.ErrInvalidArgument)
	}
	return t, nil
}

// DateOf drops the clock part of t, keeping its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

func (m *Medicine) DisplayName() string { return Capitalize(m.Name) }
func (m *Medicine) ExpiryString() string { return FormatDate(m.Expiry) }
func (m *Medicine) InStock() bool        { return m.Quantity > 0 }

// IsExpired reports whether the medicine is past its date and still in stock.
// today must already be a calendar date (see DateOf).
func (m *Medicine) IsExpired(today time.Time) bool {
	return m.InStock() && m.Expiry.Before(today)
}

// Merge folds a repeated add into the entry: quantities add up, the later
// expiry wins and symptoms are unioned.
func (m *Medicine) Merge(qty int, expiry time.Time, symptoms SymptomSet) {
	m.Quantity += qty
	if e := DateOf(expiry); e.After(m.Expiry) {
		m.Expiry = e
	}
	m.Symptoms = m.Symptoms.Union(symptoms)
}

// Consume takes qty units out; the entry is unchanged when there are not enough.
func (m *Medicine) Consume(qty int) error {
	if qty < 0 {
		return fmt.Errorf("quantity must not be negative: %w", domain.ErrInvalidArgument)
	}
	if qty > m.Quantity {
		return domain.ErrInsufficientQuantity
	}
	m.Quantity -= qty
	return nil
}

func (m *Medicine) Is(groupID, name string) bool {
	return m.GroupID == groupID && m.Name == name
}
