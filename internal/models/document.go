package models

import "io"

// DocumentName identifies a PDF by its filename. Uniqueness is not enforced.
type DocumentName = string

// UploadFile is a PDF handed over by the browser's file picker.
type UploadFile struct {
	Name string
	Size int64
	// Content is closed by the controller once the upload attempt finishes.
	Content io.ReadCloser
}
