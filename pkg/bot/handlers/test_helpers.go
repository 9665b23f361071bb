package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type sentRequest struct {
	path        string
	contentType string
	body        []byte
}

// recordingClient answers every Bot API call with ok and keeps the request.
type recordingClient struct {
	requests []sentRequest
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	_ = req.Body.Close()
	c.requests = append(c.requests, sentRequest{
		path:        req.URL.Path,
		contentType: req.Header.Get("Content-Type"),
		body:        body,
	})
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"result":{}}`)),
		Header:     make(http.Header),
	}, nil
}

// field reads a multipart form field of the last request.
func (c *recordingClient) field(t *testing.T, name string) string {
	t.Helper()
	if len(c.requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	req := c.requests[len(c.requests)-1]
	if !strings.HasSuffix(req.path, "/sendMessage") {
		t.Fatalf("expected sendMessage, got %s", req.path)
	}

	mediaType, params, err := mime.ParseMediaType(req.contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("unexpected content type %q: %v", req.contentType, err)
	}
	reader := multipart.NewReader(bytes.NewReader(req.body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == name {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read field %q: %v", name, err)
			}
			return string(data)
		}
	}
	t.Fatalf("field %q not found in request", name)
	return ""
}

func (c *recordingClient) lastText(t *testing.T) string {
	t.Helper()
	return c.field(t, "text")
}

func newTestTelegramBot(t *testing.T, client *recordingClient) *telegram.Bot {
	t.Helper()
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}

func newTestUpdate(text, username string, chatID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{ID: chatID, Username: username},
			Chat: models.Chat{ID: chatID, Type: models.ChatTypePrivate},
			Text: text,
		},
	}
}
