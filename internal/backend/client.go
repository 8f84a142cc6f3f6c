// Package backend talks to the remote PDF question-answering service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pdfchat/backend/internal/models"
	"golang.org/x/time/rate"
)

// Client defines the operations the chat session needs from the answering service.
type Client interface {
	ListDocuments(ctx context.Context) ([]models.DocumentName, error)
	UploadDocument(ctx context.Context, file *models.UploadFile) (*UploadResult, error)
	AskQuestion(ctx context.Context, question string) (string, error)
}

// UploadResult is the service's acknowledgement of an accepted PDF.
type UploadResult struct {
	Name    models.DocumentName `json:"name"`
	Message string              `json:"message"`
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64 // 0 disables outbound rate limiting
	Burst         int
}

// HTTPClient implements Client against the JSON/multipart HTTP API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient creates a client for the service at opts.BaseURL.
func NewHTTPClient(opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &HTTPClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c
}

type listResponse struct {
	Documents []models.DocumentName `json:"documents"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ListDocuments returns the PDFs the service already knows about.
func (c *HTTPClient) ListDocuments(ctx context.Context) ([]models.DocumentName, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pdfs", nil)
	if err != nil {
		return nil, fmt.Errorf("building list request: %w", err)
	}

	var resp listResponse
	if err := c.do(req, "list documents", &resp); err != nil {
		return nil, err
	}
	if resp.Documents == nil {
		return []models.DocumentName{}, nil
	}
	return resp.Documents, nil
}

// UploadDocument posts the PDF as the multipart field "pdf_file".
func (c *HTTPClient) UploadDocument(ctx context.Context, file *models.UploadFile) (*UploadResult, error) {
	if file == nil || file.Content == nil {
		return nil, fmt.Errorf("upload document: no file content")
	}

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("pdf_file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, fmt.Errorf("reading upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp messageResponse
	if err := c.do(req, "upload document", &resp); err != nil {
		return nil, err
	}
	return &UploadResult{Name: file.Name, Message: resp.Message}, nil
}

// AskQuestion sends the question and returns the service's answer. The request
// carries only the question text; document selection is not transmitted.
func (c *HTTPClient) AskQuestion(ctx context.Context, question string) (string, error) {
	payload, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("encoding question: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building ask request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp askResponse
	if err := c.do(req, "ask question", &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// Ping checks that the service root answers.
func (c *HTTPClient) Ping(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return "", fmt.Errorf("building ping request: %w", err)
	}

	var resp messageResponse
	if err := c.do(req, "ping", &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx responses become
// a *ServerError carrying the service's "error" field when present.
func (c *HTTPClient) do(req *http.Request, op string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("%s: waiting for rate limiter: %w", op, err)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newServerError(op, resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}
