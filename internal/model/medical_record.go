package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RecordKind distinguishes the two record collections.
type RecordKind string

const (
	KindPrescription RecordKind = "prescription"
	KindReport       RecordKind = "report"
)

// RecordKinds lists every shareable kind.
var RecordKinds = []RecordKind{KindPrescription, KindReport}

func ParseRecordKind(s string) (RecordKind, bool) {
	for _, k := range RecordKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Title is the capitalized kind, e.g. "Prescription".
func (k RecordKind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Collection is the plural form used for tables, routes and object prefixes.
func (k RecordKind) Collection() string {
	return string(k) + "s"
}

// Record is a prescription or a report. Both share one shape.
type Record struct {
	Base
	Kind        RecordKind     `json:"-" db:"-"`
	UserID      uuid.UUID      `json:"user_id" db:"user_id"`
	MemberID    *uuid.UUID     `json:"member_id" db:"member_id"`
	Title       string         `json:"title" db:"title"`
	Category    string         `json:"category" db:"category"`
	Tags        pq.StringArray `json:"tags" db:"tags"`
	Doctor      string         `json:"doctor" db:"doctor"`
	Description string         `json:"description" db:"description"`
	Date        time.Time      `json:"date" db:"date"`
	FileURL     string         `json:"file_url" db:"file_url"`
}

// RecordRequest carries create and update input. Every field is text so the
// same struct binds from JSON and from multipart forms.
type RecordRequest struct {
	Title       string `json:"title" form:"title"`
	Category    string `json:"category" form:"category"`
	Tags        string `json:"tags" form:"tags"`
	Doctor      string `json:"doctor" form:"doctor"`
	Description string `json:"description" form:"description"`
	Date        string `json:"date" form:"date"`
	MemberID    string `json:"member_id" form:"member_id"`
}

// ListRecordsQuery is the raw list filter taken from the query string.
type ListRecordsQuery struct {
	Category  string `form:"category"`
	MemberID  string `form:"member_id"`
	Tags      string `form:"tags"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	ID        string `form:"id"`
	// Type is accepted for compatibility and ignored.
	Type string `form:"type"`
}

// RecordFilter is the typed list filter. Nil or empty fields do not filter.
type RecordFilter struct {
	ID        *uuid.UUID
	Category  string
	MemberID  *uuid.UUID
	Tags      []string
	StartDate *time.Time
	EndDate   *time.Time
	// EndBefore is an exclusive upper bound, set for day-only end dates.
	EndBefore *time.Time
}

// SplitTags turns "a, b,,c" into [a b c].
func SplitTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

const dateOnly = "2006-01-02"

// ParseDate accepts a calendar date or an RFC3339 timestamp.
// dayOnly reports whether the input carried no time of day.
func ParseDate(raw string) (t time.Time, dayOnly bool, err error) {
	raw = strings.TrimSpace(raw)
	if t, err = time.Parse(dateOnly, raw); err == nil {
		return t, true, nil
	}
	if t, err = time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q", raw)
}

// RecordEvent is the payload published for record changes.
type RecordEvent struct {
	Kind     RecordKind `json:"kind"`
	RecordID uuid.UUID  `json:"record_id"`
	UserID   uuid.UUID  `json:"user_id"`
}
