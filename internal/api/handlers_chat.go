// handlers_chat.go - Chat session handlers
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pdfchat/backend/internal/models"
	"github.com/pdfchat/backend/internal/session"
)

// UploadFieldName is the multipart field carrying the PDF, shared with the
// answering service.
const UploadFieldName = "pdf_file"

// ChatHandlerImpl implements the ChatHandler interface
type ChatHandlerImpl struct {
	sessions SessionManager
}

// NewChatHandler creates a new chat handler
func NewChatHandler(sessions SessionManager) ChatHandler {
	return &ChatHandlerImpl{sessions: sessions}
}

// lookup resolves the :id path parameter to a live session.
func (h *ChatHandlerImpl) lookup(c echo.Context) (*session.Session, error) {
	return lookupSession(h.sessions, c)
}

func lookupSession(sessions SessionManager, c echo.Context) (*session.Session, error) {
	id := c.Param("id")
	s, ok := sessions.Get(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	return s, nil
}

// HandleCreateSession opens a chat session and loads its document list.
func (h *ChatHandlerImpl) HandleCreateSession(c echo.Context) error {
	s, err := h.sessions.Create(c.Request().Context())
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusCreated, s.Snapshot())
}

// HandleGetSession returns the current snapshot.
func (h *ChatHandlerImpl) HandleGetSession(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

// HandleDeleteSession tears a session down when the browser navigates away.
func (h *ChatHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if !h.sessions.Delete(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleAsk submits a question and returns the snapshot once it is answered.
func (h *ChatHandlerImpl) HandleAsk(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if err := s.SubmitQuestion(c.Request().Context(), req.Question); err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

// HandleUpload forwards a multipart PDF to the answering service.
func (h *ChatHandlerImpl) HandleUpload(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}

	// Any unreadable form counts as no file; the controller tells the user.
	var file *models.UploadFile
	if fh, err := c.FormFile(UploadFieldName); err == nil {
		src, err := fh.Open()
		if err != nil {
			return NewInternalError("failed to open uploaded file", err)
		}
		file = &models.UploadFile{Name: fh.Filename, Size: fh.Size, Content: src}
	}

	if err := s.UploadDocument(c.Request().Context(), file); err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

// HandleSelectDocument makes a registered document the active one.
func (h *ChatHandlerImpl) HandleSelectDocument(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}

	if err := s.SelectDocument(req.Name); err != nil {
		if errors.Is(err, session.ErrUnknownDocument) {
			return NewNotFoundError("document", req.Name)
		}
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, s.Snapshot())
}

// HandleDeselectDocument clears the active document.
func (h *ChatHandlerImpl) HandleDeselectDocument(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	s.DeselectDocument()
	return c.JSON(http.StatusOK, s.Snapshot())
}

// HandleNewChat empties the conversation and clears the selection.
func (h *ChatHandlerImpl) HandleNewChat(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	s.StartNewChat()
	return c.JSON(http.StatusOK, s.Snapshot())
}

// HandleGetDocuments returns the combined document list.
func (h *ChatHandlerImpl) HandleGetDocuments(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"documents": s.Documents(),
	})
}

// HandleDrainToasts returns and clears the toasts waiting for this browser.
func (h *ChatHandlerImpl) HandleDrainToasts(c echo.Context) error {
	s, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"toasts": s.Toasts.Drain(),
	})
}
