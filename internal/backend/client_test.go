package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdfchat/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(Options{BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
}

func TestHTTPClient_ListDocuments(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    []models.DocumentName
		wantErr bool
		wantMsg string
	}{
		{
			name:   "documents returned in order",
			status: http.StatusOK,
			body:   `{"documents":["b.pdf","a.pdf","b.pdf"]}`,
			want:   []models.DocumentName{"b.pdf", "a.pdf", "b.pdf"},
		},
		{
			name:   "missing documents field yields empty list",
			status: http.StatusOK,
			body:   `{}`,
			want:   []models.DocumentName{},
		},
		{
			name:    "server error with message",
			status:  http.StatusInternalServerError,
			body:    `{"error":"index unavailable"}`,
			wantErr: true,
			wantMsg: "index unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/pdfs", r.URL.Path)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			docs, err := client.ListDocuments(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantMsg, UserMessage(err, "fallback"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, docs)
		})
	}
}

func TestHTTPClient_UploadDocument(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		file, header, err := r.FormFile("pdf_file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "notes.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4", string(data))
		io.WriteString(w, `{"message":"PDF uploaded and processed successfully"}`)
	})

	res, err := client.UploadDocument(context.Background(), &models.UploadFile{
		Name:    "notes.pdf",
		Content: io.NopCloser(strings.NewReader("%PDF-1.4")),
	})
	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", res.Name)
	assert.Equal(t, "PDF uploaded and processed successfully", res.Message)
}

func TestHTTPClient_UploadDocument_Rejected(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"File must be a PDF"}`)
	})

	_, err := client.UploadDocument(context.Background(), &models.UploadFile{
		Name:    "notes.pdf",
		Content: io.NopCloser(strings.NewReader("x")),
	})
	require.Error(t, err)

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "File must be a PDF", se.Message)
}

func TestHTTPClient_AskQuestion(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ask", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{"question": "What is the refund policy?"}, req)

		io.WriteString(w, `{"answer":"30 days."}`)
	})

	answer, err := client.AskQuestion(context.Background(), "What is the refund policy?")
	require.NoError(t, err)
	assert.Equal(t, "30 days.", answer)
}

func TestHTTPClient_TransportFailureUsesFallback(t *testing.T) {
	client := NewHTTPClient(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := client.AskQuestion(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, "Error fetching answer.", UserMessage(err, "Error fetching answer."))
}

func TestHTTPClient_Ping(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":"Welcome to the PDF Chatbot API"}`)
	})

	msg, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the PDF Chatbot API", msg)
}

func TestServerError_EmptyBody(t *testing.T) {
	err := newServerError("ask question", http.StatusBadGateway, nil)
	assert.Equal(t, "ask question: status 502", err.Error())
	assert.Equal(t, "fallback", UserMessage(err, "fallback"))
}
