package model

import (
	"strings"
	"time"
)

// RecordKind identifies which compliance workflow a record belongs to.
type RecordKind string

const (
	// KindApplication is a fire-NOC application submitted for a new building.
	KindApplication RecordKind = "application"
	// KindSafetyReview is a periodic fire-safety review of an existing building.
	KindSafetyReview RecordKind = "safety_review"
)

// Status is the review state of a record. Values are canonically cased;
// use ParseStatus to normalize boundary input.
type Status string

const (
	StatusSubmitted   Status = "Submitted"
	StatusUnderReview Status = "UnderReview"
	StatusApproved    Status = "Approved"
	StatusRejected    Status = "Rejected"
)

// Statuses lists every valid status in workflow order.
func Statuses() []Status {
	return []Status{StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected}
}

// ParseStatus maps a case-insensitive status string to its canonical form.
// The second return is false when the value is not a member of the set.
func ParseStatus(s string) (Status, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	// "under review" and "under_review" show up in older clients.
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "_", "")
	for _, status := range Statuses() {
		if strings.ToLower(string(status)) == normalized {
			return status, true
		}
	}
	return "", false
}

// DisplayClass returns the UI presentation token for the status. It is a
// pure function of Status and is never stored.
func (s Status) DisplayClass() string {
	switch s {
	case StatusSubmitted:
		return "info"
	case StatusUnderReview:
		return "warning"
	case StatusApproved:
		return "success"
	case StatusRejected:
		return "danger"
	default:
		return "secondary"
	}
}

// Subject holds the building details supplied at submission time.
type Subject struct {
	BuildingType     string `json:"buildingType"     bson:"building_type"`
	BuildingName     string `json:"buildingName"     bson:"building_name"`
	Address          string `json:"address"          bson:"address"`
	OwnerName        string `json:"ownerName"        bson:"owner_name"`
	Contact          string `json:"contact"          bson:"contact"`
	Floors           int    `json:"floors"           bson:"floors"`
	MaxOccupancy     int    `json:"maxOccupancy"     bson:"max_occupancy"`
	ConstructionYear int    `json:"constructionYear" bson:"construction_year"`
}

// Checklist groups compliance booleans by category, e.g.
// {"fireSafety": {"extinguishers": true, "alarms": false}}.
type Checklist map[string]map[string]bool

// AttachmentSet maps attachment slot names to stored filenames. Single-file
// slots hold at most one name; a kind's multi-file slot may hold several.
// The slot set is fixed per record kind and never grows after creation.
type AttachmentSet map[string][]string

// Filenames returns every stored filename across all slots.
func (a AttachmentSet) Filenames() []string {
	var names []string
	for _, files := range a {
		names = append(names, files...)
	}
	return names
}

// Record is a submitted compliance record moving through the review workflow.
//
// ID is the storage-assigned primary key: a 24-hex-char ObjectId for the
// mongo backend, a canonical UUID for the SQL backends. BusinessID is the
// human-readable identifier minted once at creation and never reused, even
// after deletion. Both are immutable and unique.
type Record struct {
	ID          string        `json:"id"          bson:"-"`
	Kind        RecordKind    `json:"kind"        bson:"kind"`
	BusinessID  string        `json:"businessId"  bson:"business_id"`
	Subject     Subject       `json:"subject"     bson:"subject"`
	Checklist   Checklist     `json:"checklist"   bson:"checklist"`
	Attachments AttachmentSet `json:"attachments" bson:"attachments"`
	Status      Status        `json:"status"      bson:"status"`
	Remarks     string        `json:"remarks"     bson:"remarks"`
	ReviewedBy  string        `json:"reviewedBy"  bson:"reviewed_by"`
	CreatedAt   time.Time     `json:"createdAt"   bson:"created_at"`
	LastUpdated time.Time     `json:"lastUpdated" bson:"last_updated"`
}
