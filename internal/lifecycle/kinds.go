// Package lifecycle implements the record lifecycle core: identifier
// generation, dual-key lookup, status transitions, attachment binding and
// release, and list filtering. The differences between record kinds (field
// requirements, attachment slots, identifier schemes) are configuration
// here, not separate code paths.
package lifecycle

import (
	"github.com/firedesk/records-service/internal/model"
)

// IDScheme selects how a kind's business identifiers are formatted.
type IDScheme int

const (
	// SchemeCounter formats ids as prefix + zero-padded atomic counter.
	SchemeCounter IDScheme = iota
	// SchemeTimestamp formats ids as prefix + epoch millis + atomic counter.
	// The counter, not the timestamp, is what guarantees uniqueness under
	// concurrent creation.
	SchemeTimestamp
)

// SlotSpec describes one named attachment slot of a record kind.
type SlotSpec struct {
	Name string
	// Multi allows the slot to hold several files.
	Multi bool
	// Required rejects creations that leave the slot empty.
	Required bool
}

// KindSpec is the per-kind configuration of the shared lifecycle.
type KindSpec struct {
	Kind model.RecordKind
	// Path is the URL path segment the kind's routes mount under.
	Path string
	// IDPrefix starts every business identifier. Prefixes must contain a
	// non-hex character so a business id can never match the storage
	// primary-key syntax (see ClassifyIdentifier).
	IDPrefix string
	Scheme   IDScheme
	// CounterWidth zero-pads the counter for SchemeCounter.
	CounterWidth int
	Slots        []SlotSpec
}

// Slot returns the slot spec with the given name, if the kind defines it.
func (k *KindSpec) Slot(name string) (*SlotSpec, bool) {
	for i := range k.Slots {
		if k.Slots[i].Name == name {
			return &k.Slots[i], true
		}
	}
	return nil, false
}

// EmptyAttachments returns the kind's fixed slot map with every slot empty.
func (k *KindSpec) EmptyAttachments() model.AttachmentSet {
	set := make(model.AttachmentSet, len(k.Slots))
	for _, slot := range k.Slots {
		set[slot.Name] = nil
	}
	return set
}

var kinds = []KindSpec{
	{
		Kind:         model.KindApplication,
		Path:         "applications",
		IDPrefix:     "NOC",
		Scheme:       SchemeCounter,
		CounterWidth: 6,
		Slots: []SlotSpec{
			{Name: "buildingPlan"},
			{Name: "propertyDoc"},
			{Name: "idProof"},
			{Name: "supportingDocs", Multi: true},
		},
	},
	{
		Kind:     model.KindSafetyReview,
		Path:     "safety-reviews",
		IDPrefix: "SR",
		Scheme:   SchemeTimestamp,
		Slots: []SlotSpec{
			{Name: "equipmentLayout"},
			{Name: "electricalLayout"},
			{Name: "previousAudit"},
			{Name: "supportingDocs", Multi: true},
		},
	},
}

// Kinds returns the configured record kinds.
func Kinds() []KindSpec {
	return kinds
}

// KindByPath resolves a URL path segment (e.g. "applications") to its kind.
func KindByPath(path string) (*KindSpec, bool) {
	for i := range kinds {
		if kinds[i].Path == path {
			return &kinds[i], true
		}
	}
	return nil, false
}

// KindOf resolves a model.RecordKind to its configuration.
func KindOf(kind model.RecordKind) (*KindSpec, bool) {
	for i := range kinds {
		if kinds[i].Kind == kind {
			return &kinds[i], true
		}
	}
	return nil, false
}
