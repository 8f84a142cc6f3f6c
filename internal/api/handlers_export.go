// handlers_export.go - Snapshot and transcript export handlers
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// ExportHandlerImpl implements the ExportHandler interface
type ExportHandlerImpl struct {
	sessions SessionManager
}

// NewExportHandler creates a new export handler
func NewExportHandler(sessions SessionManager) ExportHandler {
	return &ExportHandlerImpl{sessions: sessions}
}

// HandleSessionStateMsgpack returns the snapshot in MessagePack format.
func (h *ExportHandlerImpl) HandleSessionStateMsgpack(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(s.Snapshot())
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleTranscript exports the conversation as json (default), yaml or msgpack.
func (h *ExportHandlerImpl) HandleTranscript(c echo.Context) error {
	s, err := lookupSession(h.sessions, c)
	if err != nil {
		return err
	}

	transcript := s.Transcript()
	format := c.QueryParam("format")
	if format == "" {
		format = "json"
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case "json":
		return c.JSON(http.StatusOK, transcript)
	case "yaml":
		data, err = yaml.Marshal(transcript)
		contentType = "application/yaml"
	case "msgpack":
		data, err = msgpack.Marshal(transcript)
		contentType = "application/msgpack"
	default:
		return NewValidationError("format")
	}
	if err != nil {
		return NewInternalError("failed to encode transcript", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="chat-%s.%s"`, shortID(transcript.SessionID), format))
	return c.Blob(http.StatusOK, contentType, data)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
