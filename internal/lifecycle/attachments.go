package lifecycle

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/firedesk/records-service/internal/model"
)

// Upload is one received file: the attachment slot it targets, the client's
// original filename, and the byte stream.
type Upload struct {
	Slot         string
	OriginalName string
	Data         io.Reader
}

// AttachmentError reports a single rejected upload. A rejected optional
// upload does not fail an otherwise-valid creation; the error is surfaced
// per-file alongside the created record.
type AttachmentError struct {
	Slot     string `json:"slot"`
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment %s (%s): %s", e.Slot, e.Filename, e.Reason)
}

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// bindAttachments stores recognized uploads and builds the record's slot
// map. Unrecognized slot names are ignored, not errors: callers may send
// extra form fields. Per-file failures on optional slots are collected and
// reported; a failure on a required slot aborts the creation and the caller
// releases whatever was already stored.
func (s *Service) bindAttachments(ctx context.Context, spec *KindSpec, uploads []Upload) (model.AttachmentSet, []*AttachmentError, error) {
	set := spec.EmptyAttachments()
	var rejected []*AttachmentError

	for _, up := range uploads {
		slot, ok := spec.Slot(up.Slot)
		if !ok {
			log.Debug("Ignoring upload for unknown slot", "slot", up.Slot, "filename", up.OriginalName)
			continue
		}
		if !slot.Multi && len(set[slot.Name]) > 0 {
			rejected = append(rejected, &AttachmentError{Slot: slot.Name, Filename: up.OriginalName, Reason: "slot already holds a file"})
			continue
		}
		if ext := strings.ToLower(filepath.Ext(up.OriginalName)); !allowedExtensions[ext] {
			rejected = append(rejected, &AttachmentError{Slot: slot.Name, Filename: up.OriginalName, Reason: fmt.Sprintf("file type %q not allowed", ext)})
			continue
		}

		stored, err := s.files.Store(ctx, up.OriginalName, up.Data, s.maxUpload)
		if err != nil {
			attErr := &AttachmentError{Slot: slot.Name, Filename: up.OriginalName, Reason: err.Error()}
			if slot.Required {
				return set, rejected, attErr
			}
			rejected = append(rejected, attErr)
			continue
		}
		set[slot.Name] = append(set[slot.Name], stored.Filename)
	}

	for _, slot := range spec.Slots {
		if slot.Required && len(set[slot.Name]) == 0 {
			return set, rejected, &AttachmentError{Slot: slot.Name, Reason: "a file is required for this slot"}
		}
	}
	return set, rejected, nil
}

// releaseAttachments deletes every file referenced by the record's slots.
// File removal is best-effort: a missing or undeletable file is logged and
// skipped, never surfaced, since record removal is authoritative.
func (s *Service) releaseAttachments(ctx context.Context, rec *model.Record) {
	for _, name := range rec.Attachments.Filenames() {
		if err := s.files.Delete(ctx, name); err != nil {
			log.Warn("Failed to remove attachment file",
				"businessId", rec.BusinessID,
				"filename", name,
				"err", err,
			)
		}
	}
}

// releaseStored deletes files stored during a creation that did not commit.
func (s *Service) releaseStored(ctx context.Context, set model.AttachmentSet) {
	for _, name := range set.Filenames() {
		if err := s.files.Delete(ctx, name); err != nil {
			log.Warn("Failed to remove orphaned upload", "filename", name, "err", err)
		}
	}
}
