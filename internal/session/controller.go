package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/pdfchat/backend/internal/backend"
	"github.com/pdfchat/backend/internal/models"
	"github.com/pdfchat/backend/internal/notify"
	"github.com/rs/zerolog/log"
)

// User-facing texts, kept identical to what the chat frontend has always shown.
const (
	MsgInvalidPDF      = "Please upload a valid PDF file."
	MsgUploadSucceeded = "File uploaded successfully!"
	MsgUploadFailed    = "File upload failed. Please try again."
	MsgAnswerFailed    = "Error fetching answer."
	MsgNoDocument      = "You haven't uploaded a pdf yet please upload a pdf first, Thank You"
)

// PDFSuffix is the literal, case-sensitive suffix an upload must carry.
const PDFSuffix = ".pdf"

var (
	ErrBlankQuestion   = errors.New("question is blank")
	ErrAskInFlight     = errors.New("a question is already being answered")
	ErrNoFile          = errors.New("no file provided")
	ErrNotPDF          = errors.New("file is not a PDF")
	ErrUploadInFlight  = errors.New("an upload is already in progress")
	ErrUnknownDocument = errors.New("document is not registered")
)

// Options tunes controller behavior.
type Options struct {
	// RequestTimeout bounds each backend call. Zero leaves it to the client.
	RequestTimeout time.Duration
	// RequireDocument answers questions asked with no document selected with a
	// canned reply instead of calling the service.
	RequireDocument bool
}

// state is everything a chat session owns. It is only touched with
// Controller.mu held.
type state struct {
	conversation   *Conversation
	registry       *Registry
	selection      *Selection
	uploadInFlight bool
	askInFlight    bool
	uploadedFile   string
	// epoch is bumped by StartNewChat; completions from an older epoch are stale.
	epoch        uint64
	createdAt    time.Time
	lastAccessed time.Time
}

// Controller is the single owner of a chat session's state. All mutations go
// through its named operations.
type Controller struct {
	id       string
	client   backend.Client
	notifier notify.Notifier
	opts     Options

	mu    sync.Mutex
	state state

	watchMu  sync.Mutex
	watchers map[int]chan models.Snapshot
	nextSub  int
}

// NewController creates a controller with an empty conversation, no uploads
// and no selection.
func NewController(id string, client backend.Client, notifier notify.Notifier, opts Options) *Controller {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	now := time.Now()
	return &Controller{
		id:       id,
		client:   client,
		notifier: notifier,
		opts:     opts,
		state: state{
			conversation: NewConversation(),
			registry:     NewRegistry(),
			selection:    NewSelection(),
			createdAt:    now,
			lastAccessed: now,
		},
		watchers: make(map[int]chan models.Snapshot),
	}
}

// ID returns the session ID.
func (c *Controller) ID() string { return c.id }

// Initialize loads the server-side document list. Failure is non-fatal.
func (c *Controller) Initialize(ctx context.Context) {
	callCtx, cancel := c.requestContext(ctx)
	defer cancel()

	docs, err := c.client.ListDocuments(callCtx)

	c.mu.Lock()
	err = c.state.registry.Load(docs, err)
	c.mu.Unlock()

	if err != nil {
		c.notifier.Error(backend.UserMessage(err, MsgListFailed))
		log.Warn().Err(err).Str("session", shortID(c.id)).Msg("document listing failed, continuing with none")
	}
	c.changed()
}

// SubmitQuestion appends the user's question, asks the service and appends
// the answer. Blank questions and questions submitted while another is in
// flight are rejected without touching state. Service failures are absorbed:
// the user is notified and a fallback bot turn is appended.
func (c *Controller) SubmitQuestion(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrBlankQuestion
	}

	c.mu.Lock()
	if c.state.askInFlight {
		c.mu.Unlock()
		return ErrAskInFlight
	}
	c.state.conversation.Append(models.NewUserTurn(text))
	if c.opts.RequireDocument && c.state.selection.Selected() == nil {
		c.state.conversation.Append(models.NewBotTurn(MsgNoDocument))
		c.mu.Unlock()
		c.changed()
		return nil
	}
	c.state.askInFlight = true
	epoch := c.state.epoch
	c.mu.Unlock()
	c.changed()

	callCtx, cancel := c.requestContext(ctx)
	answer, err := c.client.AskQuestion(callCtx, text)
	cancel()

	c.mu.Lock()
	c.state.askInFlight = false
	stale := epoch != c.state.epoch
	if !stale {
		if err != nil {
			c.state.conversation.Append(models.NewBotTurn(MsgAnswerFailed))
		} else {
			c.state.conversation.Append(models.NewBotTurn(answer))
		}
	}
	c.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("session", shortID(c.id)).Msg("ask failed")
		c.notifier.Error(backend.UserMessage(err, MsgAnswerFailed))
	}
	if stale {
		log.Info().Str("session", shortID(c.id)).Msg("discarded answer for a conversation that was reset")
	}
	c.changed()
	return nil
}

// UploadDocument validates and uploads a PDF, then registers and selects it.
// The file's content is closed whatever the outcome, so the picker can offer
// the same file again.
func (c *Controller) UploadDocument(ctx context.Context, file *models.UploadFile) error {
	if file != nil && file.Content != nil {
		defer file.Content.Close()
	}

	if file == nil || file.Content == nil {
		c.notifier.Error(MsgInvalidPDF)
		return ErrNoFile
	}
	if !strings.HasSuffix(file.Name, PDFSuffix) {
		c.notifier.Error(MsgInvalidPDF)
		return ErrNotPDF
	}

	c.mu.Lock()
	if c.state.uploadInFlight {
		c.mu.Unlock()
		return ErrUploadInFlight
	}
	c.state.uploadInFlight = true
	epoch := c.state.epoch
	c.mu.Unlock()
	c.changed()

	callCtx, cancel := c.requestContext(ctx)
	res, err := c.client.UploadDocument(callCtx, file)
	cancel()

	c.mu.Lock()
	c.state.uploadInFlight = false
	stale := epoch != c.state.epoch
	if err != nil {
		if !stale {
			c.state.selection.SetNotice(StatusUploadFailed)
		}
	} else {
		name := file.Name
		// The service accepted the document, so it stays selectable even if
		// the chat was reset meanwhile.
		c.state.registry.RecordUpload(name)
		if !stale {
			c.state.selection.Select(name)
			c.state.uploadedFile = name
		}
	}
	c.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("session", shortID(c.id)).Str("file", file.Name).Msg("upload failed")
		c.notifier.Error(backend.UserMessage(err, MsgUploadFailed))
	} else {
		log.Info().Str("session", shortID(c.id)).Str("file", file.Name).Bool("stale", stale).Msg("upload accepted")
		msg := MsgUploadSucceeded
		if res != nil && res.Message != "" {
			msg = res.Message
		}
		c.notifier.Success(msg)
	}
	c.changed()
	return nil
}

// SelectDocument makes name the active document.
func (c *Controller) SelectDocument(name models.DocumentName) error {
	c.mu.Lock()
	if !c.state.registry.Contains(name) {
		c.mu.Unlock()
		return ErrUnknownDocument
	}
	c.state.selection.Select(name)
	c.mu.Unlock()
	c.changed()
	return nil
}

// DeselectDocument clears the active document.
func (c *Controller) DeselectDocument() {
	c.mu.Lock()
	c.state.selection.Deselect()
	c.mu.Unlock()
	c.changed()
}

// StartNewChat empties the conversation and clears the selection. Registered
// documents are kept. Requests still in flight become stale.
func (c *Controller) StartNewChat() {
	c.mu.Lock()
	c.state.conversation.Reset()
	c.state.selection.Deselect()
	c.state.uploadedFile = ""
	c.state.epoch++
	c.mu.Unlock()

	log.Info().Str("session", shortID(c.id)).Msg("new chat started")
	c.changed()
}

// ShowWelcome reports whether the welcome panel is visible: exactly when the
// conversation is empty.
func (c *Controller) ShowWelcome() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.conversation.IsEmpty()
}

// Documents returns the combined document list.
func (c *Controller) Documents() []models.DocumentName {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.registry.All()
}

// Busy reports whether an ask or upload is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.askInFlight || c.state.uploadInFlight
}

// Touch records activity for idle-session cleanup.
func (c *Controller) Touch() {
	c.mu.Lock()
	c.state.lastAccessed = time.Now()
	c.mu.Unlock()
}

// LastAccessed returns the time of the last recorded activity.
func (c *Controller) LastAccessed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.lastAccessed
}

// Snapshot returns the read-only view of the session.
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Transcript returns the conversation in exportable form.
func (c *Controller) Transcript() models.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := models.Transcript{
		SessionID:  c.id,
		ExportedAt: time.Now(),
		Turns:      c.state.conversation.Turns(),
	}
	if sel := c.state.selection.Selected(); sel != nil {
		t.Selected = *sel
	}
	return t
}

func (c *Controller) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		ID:            c.id,
		Messages:      c.state.conversation.Turns(),
		Documents:     c.state.registry.All(),
		Selected:      c.state.selection.Selected(),
		StatusMessage: c.state.selection.StatusMessage(),
		ShowWelcome:   c.state.conversation.IsEmpty(),
		UploadedFile:  c.state.uploadedFile,
		Uploading:     c.state.uploadInFlight,
		Asking:        c.state.askInFlight,
		CreatedAt:     c.state.createdAt,
	}
}

// Watch streams a snapshot after every state change. Slow watchers skip
// intermediate snapshots rather than blocking the controller, but the latest
// one is always delivered. cancel closes the channel.
func (c *Controller) Watch(buffer int) (<-chan models.Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}

	c.watchMu.Lock()
	defer c.watchMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan models.Snapshot, buffer)
	c.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.watchMu.Lock()
			delete(c.watchers, id)
			c.watchMu.Unlock()
			close(ch)
		})
	}
}

// changed publishes the current state. watchMu is held across the snapshot so
// watchers see snapshots in state order. Lock order is watchMu then mu.
func (c *Controller) changed() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	if len(c.watchers) == 0 {
		return
	}

	snap := c.Snapshot()
	for _, ch := range c.watchers {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Full: replace the oldest pending snapshot with this one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// requestContext detaches the backend call from the caller's cancellation:
// once issued, a request runs to completion or timeout.
func (c *Controller) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
