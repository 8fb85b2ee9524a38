package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// RequestType enumerates the kinds of design work.
type RequestType string

const (
	RequestTypeNew        RequestType = "Nueva solicitud"
	RequestTypeCorrection RequestType = "Corrección/Añadido"
	RequestTypeAdjustment RequestType = "Ajuste"
)

// RequestPriority enumerates request urgency.
type RequestPriority string

const (
	PriorityHigh   RequestPriority = "Alta"
	PriorityMedium RequestPriority = "Media"
	PriorityLow    RequestPriority = "Baja"
	PriorityUrgent RequestPriority = "Urgente"
)

// FolioPrefix is prepended to the sequential folio in every display.
const FolioPrefix = "#REQ-"

// Attachment is a reference to an uploaded object.
type Attachment struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// FinalDesign is the delivered artifact of a request.
type FinalDesign Attachment

// Attachments is persisted as a JSONB array.
type Attachments []Attachment

// Value implements driver.Valuer.
func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *Attachments) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		*a = Attachments{}
		return nil
	}
	return json.Unmarshal(raw, a)
}

// Value implements driver.Valuer. A nil final design is stored as NULL.
func (f *FinalDesign) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *FinalDesign) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, f)
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json column type %T", src)
	}
}

// Request is one unit of design work. Its current status is never stored here;
// it is projected from the status event log.
type Request struct {
	ID              string          `db:"id" json:"id"`
	Folio           int64           `db:"folio" json:"folio"`
	Client          string          `db:"client" json:"client"`
	Product         string          `db:"product" json:"product"`
	Type            RequestType     `db:"type" json:"type"`
	Priority        RequestPriority `db:"priority" json:"priority"`
	Description     string          `db:"description" json:"description"`
	Brief           string          `db:"brief" json:"brief"`
	Links           pq.StringArray  `db:"links" json:"links"`
	Attachments     Attachments     `db:"attachments" json:"attachments"`
	FinalDesign     *FinalDesign    `db:"final_design" json:"final_design,omitempty"`
	BoardNumber     *int            `db:"board_number" json:"board_number,omitempty"`
	AdvisorID       *string         `db:"advisor_id" json:"advisor_id,omitempty"`
	CreatedByUserID *string         `db:"created_by_user_id" json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	CompletedAt     *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	IsDeleted       bool            `db:"is_deleted" json:"is_deleted"`
	DeletedAt       *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
	DeletedBy       *string         `db:"deleted_by" json:"deleted_by,omitempty"`
}

// DisplayFolio renders the human-facing folio.
func (r Request) DisplayFolio() string {
	return FormatFolio(r.Folio)
}

// FormatFolio renders a folio number, or PENDING before one is assigned.
func FormatFolio(folio int64) string {
	if folio <= 0 {
		return "PENDING"
	}
	return FolioPrefix + strconv.FormatInt(folio, 10)
}

// ParseFolio accepts "#REQ-12", "REQ-12" or "12".
func ParseFolio(ref string) (int64, bool) {
	trimmed := strings.TrimSpace(ref)
	trimmed = strings.TrimPrefix(trimmed, "#")
	trimmed = strings.TrimPrefix(strings.ToUpper(trimmed), "REQ-")
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Deleted     bool
	AdvisorID   string
	Limit       uint64
}

// RequestFieldUpdate carries field edits; nil pointers are left untouched.
type RequestFieldUpdate struct {
	Client      *string
	Product     *string
	Type        *RequestType
	Priority    *RequestPriority
	Description *string
	Brief       *string
	Links       []string
	AdvisorID   *string
	BoardNumber *int
	FinalDesign *FinalDesign
}

// TrashItem is a soft-deleted request with the deleter's display name.
type TrashItem struct {
	Request
	DeletedByName *string `db:"deleted_by_name" json:"deleted_by_name,omitempty"`
}
