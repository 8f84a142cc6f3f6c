// fake_client.go - Scripted backend client for testing
package testutil

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/pdfchat/backend/internal/backend"
	"github.com/pdfchat/backend/internal/models"
)

// ErrBackendDown is the default failure returned by a failing FakeClient.
var ErrBackendDown = errors.New("backend unavailable")

// Call records one request the fake received.
type Call struct {
	Op       string
	Argument string
}

// FakeClient implements backend.Client with scripted answers and records
// every call it receives.
type FakeClient struct {
	mu sync.Mutex

	Documents []models.DocumentName
	ListErr   error

	UploadMessage string
	UploadErr     error
	// Uploaded holds the bytes of each accepted upload, keyed by file name.
	Uploaded map[string][]byte

	Answer string
	// Answers maps a question to its answer, overriding Answer.
	Answers map[string]string
	AskErr  error

	// AskGate and UploadGate, when non-nil, block the respective call until
	// a value is received, letting tests hold a request in flight.
	AskGate    chan struct{}
	UploadGate chan struct{}
	// Started receives the op name once a call has begun.
	Started chan string

	calls []Call
}

var _ backend.Client = (*FakeClient)(nil)

// NewFakeClient creates a fake that answers every question with answer.
func NewFakeClient(answer string, documents ...models.DocumentName) *FakeClient {
	return &FakeClient{
		Documents: documents,
		Answer:    answer,
		Uploaded:  make(map[string][]byte),
	}
}

func (f *FakeClient) record(op, arg string) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Argument: arg})
	started := f.Started
	f.mu.Unlock()

	if started != nil {
		started <- op
	}
}

func (f *FakeClient) ListDocuments(ctx context.Context) ([]models.DocumentName, error) {
	f.record("list", "")

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]models.DocumentName(nil), f.Documents...), nil
}

func (f *FakeClient) UploadDocument(ctx context.Context, file *models.UploadFile) (*backend.UploadResult, error) {
	f.record("upload", file.Name)
	if f.UploadGate != nil {
		<-f.UploadGate
	}

	data, err := io.ReadAll(file.Content)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UploadErr != nil {
		return nil, f.UploadErr
	}
	if f.Uploaded == nil {
		f.Uploaded = make(map[string][]byte)
	}
	f.Uploaded[file.Name] = data
	return &backend.UploadResult{Name: file.Name, Message: f.UploadMessage}, nil
}

func (f *FakeClient) AskQuestion(ctx context.Context, question string) (string, error) {
	f.record("ask", question)
	if f.AskGate != nil {
		<-f.AskGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AskErr != nil {
		return "", f.AskErr
	}
	if a, ok := f.Answers[question]; ok {
		return a, nil
	}
	return f.Answer, nil
}

// Calls returns the recorded calls, oldest first.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many calls of op were made.
func (f *FakeClient) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// RecordingNotifier captures toasts for assertions.
type RecordingNotifier struct {
	mu        sync.Mutex
	Successes []string
	Errors    []string
}

func (n *RecordingNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Successes = append(n.Successes, message)
}

func (n *RecordingNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Errors = append(n.Errors, message)
}

// ErrorMessages returns a copy of the captured error toasts.
func (n *RecordingNotifier) ErrorMessages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Errors...)
}

// SuccessMessages returns a copy of the captured success toasts.
func (n *RecordingNotifier) SuccessMessages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Successes...)
}
