package models

import "time"

// Snapshot is the read-only view of a chat session that the browser renders.
type Snapshot struct {
	ID            string         `json:"id" msgpack:"id"`
	Messages      []ChatTurn     `json:"messages" msgpack:"messages"`
	Documents     []DocumentName `json:"documents" msgpack:"documents"`
	Selected      *DocumentName  `json:"selected" msgpack:"selected"`
	StatusMessage string         `json:"statusMessage" msgpack:"statusMessage"`
	ShowWelcome   bool           `json:"showWelcome" msgpack:"showWelcome"`
	UploadedFile  string         `json:"uploadedFile,omitempty" msgpack:"uploadedFile,omitempty"`
	Uploading     bool           `json:"uploading" msgpack:"uploading"`
	Asking        bool           `json:"asking" msgpack:"asking"`
	CreatedAt     time.Time      `json:"createdAt" msgpack:"createdAt"`
}
