package session

import (
	"fmt"

	"github.com/pdfchat/backend/internal/models"
)

// Status line texts.
const (
	StatusNoSelection  = "No PDF selected. Upload or select a PDF to start asking questions."
	StatusUploadFailed = "Upload failed. Please try again."
	statusSelectedFmt  = "You have selected %s. Ask any question about this PDF."
)

// Selection tracks the single active document and derives the status line.
// Selection is display-only: it is never sent to the answering service.
type Selection struct {
	selected *models.DocumentName
	// notice temporarily overrides the derived status line until the next
	// select or deselect.
	notice string
}

// NewSelection returns a selection with nothing selected.
func NewSelection() *Selection {
	return &Selection{}
}

// Select makes name the active document. Selecting the current document again
// is a no-op.
func (s *Selection) Select(name models.DocumentName) {
	s.selected = &name
	s.notice = ""
}

// Deselect clears the active document. Deselecting with nothing selected is a no-op.
func (s *Selection) Deselect() {
	s.selected = nil
	s.notice = ""
}

// Selected returns a copy of the active document, or nil.
func (s *Selection) Selected() *models.DocumentName {
	if s.selected == nil {
		return nil
	}
	name := *s.selected
	return &name
}

// SetNotice overrides the status line until the selection next changes.
func (s *Selection) SetNotice(notice string) {
	s.notice = notice
}

// StatusMessage returns the notice if one is set, otherwise the text derived
// from the current selection.
func (s *Selection) StatusMessage() string {
	if s.notice != "" {
		return s.notice
	}
	return StatusFor(s.selected)
}

// StatusFor is the status line for a given selection.
func StatusFor(selected *models.DocumentName) string {
	if selected == nil {
		return StatusNoSelection
	}
	return fmt.Sprintf(statusSelectedFmt, *selected)
}
