package backend

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pdfchat/backend/internal/models"
)

const documentsKey = "documents"

// CachedClient shares the document listing between sessions for a short TTL.
// Uploads and questions always go to the wrapped client.
type CachedClient struct {
	Client
	cache *cache.Cache
}

// NewCachedClient wraps next. A ttl of zero or less returns next unchanged.
func NewCachedClient(next Client, ttl time.Duration) Client {
	if ttl <= 0 {
		return next
	}
	return &CachedClient{
		Client: next,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// ListDocuments serves the cached listing when fresh. Failures are not cached.
func (c *CachedClient) ListDocuments(ctx context.Context) ([]models.DocumentName, error) {
	if x, found := c.cache.Get(documentsKey); found {
		return append([]models.DocumentName(nil), x.([]models.DocumentName)...), nil
	}

	docs, err := c.Client.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(documentsKey, append([]models.DocumentName(nil), docs...), cache.DefaultExpiration)
	return docs, nil
}

// UploadDocument forwards the upload and drops the cached listing so the next
// session sees the new document.
func (c *CachedClient) UploadDocument(ctx context.Context, file *models.UploadFile) (*UploadResult, error) {
	res, err := c.Client.UploadDocument(ctx, file)
	if err == nil {
		c.cache.Delete(documentsKey)
	}
	return res, err
}
