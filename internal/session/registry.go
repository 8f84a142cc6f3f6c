package session

import (
	"context"

	"github.com/pdfchat/backend/internal/backend"
	"github.com/pdfchat/backend/internal/models"
	"github.com/pdfchat/backend/internal/notify"
)

// MsgListFailed is shown when the server-side document listing cannot be loaded.
const MsgListFailed = "Failed to load documents."

// DocumentLister is the part of backend.Client the registry needs.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]models.DocumentName, error)
}

// Registry merges the documents the server already knows about with the ones
// uploaded during this session. It is not safe for concurrent use; the
// controller serializes access.
type Registry struct {
	server   []models.DocumentName
	uploaded []models.DocumentName
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Initialize loads the server-side documents. A failure leaves the server list
// empty, notifies the user and is returned for logging; the session stays usable.
func (r *Registry) Initialize(ctx context.Context, lister DocumentLister, n notify.Notifier) error {
	docs, err := lister.ListDocuments(ctx)
	if err := r.Load(docs, err); err != nil {
		n.Error(backend.UserMessage(err, MsgListFailed))
		return err
	}
	return nil
}

// Load records the result of a document listing fetched elsewhere. On error
// the server list is cleared and err is returned unchanged.
func (r *Registry) Load(docs []models.DocumentName, err error) error {
	if err != nil {
		r.server = nil
		return err
	}
	r.server = append([]models.DocumentName(nil), docs...)
	return nil
}

// RecordUpload appends name to the uploaded documents. Duplicates are kept.
func (r *Registry) RecordUpload(name models.DocumentName) {
	r.uploaded = append(r.uploaded, name)
}

// All returns server documents followed by uploaded documents, in order.
// The returned slice is a copy.
func (r *Registry) All() []models.DocumentName {
	all := make([]models.DocumentName, 0, len(r.server)+len(r.uploaded))
	all = append(all, r.server...)
	return append(all, r.uploaded...)
}

// Contains reports whether name is listed.
func (r *Registry) Contains(name models.DocumentName) bool {
	for _, d := range r.server {
		if d == name {
			return true
		}
	}
	for _, d := range r.uploaded {
		if d == name {
			return true
		}
	}
	return false
}
