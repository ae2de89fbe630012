package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type capturedRequest struct {
	Auth string
	Body responseRequest
}

func newTestServer(t *testing.T, status int, response string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if captured != nil {
			captured.Auth = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&captured.Body); err != nil {
				t.Fatalf("decode request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
}

func successBody(id string, image []byte) string {
	return fmt.Sprintf(`{"id":%q,"output":[{"type":"reasoning"},{"type":"image_generation_call","result":%q}]}`,
		id, base64.StdEncoding.EncodeToString(image))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Options{APIKey: "test-key", BaseURL: baseURL, Model: "gpt-4.1"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestNewClientDefaultModel(t *testing.T) {
	c, err := NewClient(Options{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Model() != "gpt-4.1" {
		t.Fatalf("Model() = %q", c.Model())
	}
}

func TestCreatePanelSuccess(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, successBody("resp_abc", []byte("panel-bytes")), &captured)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	panel, err := client.CreatePanel(context.Background(), "refine it", []byte("sketch"), []byte("mask"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(panel.Data) != "panel-bytes" {
		t.Fatalf("panel data = %q", panel.Data)
	}
	if panel.ResponseID != "resp_abc" {
		t.Fatalf("response id = %q, want resp_abc", panel.ResponseID)
	}
	if captured.Auth != "Bearer test-key" {
		t.Fatalf("authorization header = %q", captured.Auth)
	}
	if len(captured.Body.Tools) != 1 || captured.Body.Tools[0].Type != "image_generation" {
		t.Fatalf("tools = %#v", captured.Body.Tools)
	}
	if captured.Body.PreviousResponseID != "" {
		t.Fatalf("fresh generation must not carry a previous response id")
	}
	content := captured.Body.Input[0].Content
	if len(content) != 3 || content[0].Type != "input_text" || content[0].Text != "refine it" {
		t.Fatalf("unexpected content: %#v", content)
	}
	wantSketch := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("sketch"))
	if content[1].Type != "input_image" || content[1].ImageURL != wantSketch {
		t.Fatalf("sketch part = %#v", content[1])
	}
	if content[2].Type != "input_image" || !strings.HasPrefix(content[2].ImageURL, "data:image/png;base64,") {
		t.Fatalf("mask part = %#v", content[2])
	}
}

func TestContinuePanelThreadsHandle(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, successBody("resp_next", []byte("v2")), &captured)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	panel, err := client.ContinuePanel(context.Background(), "make it moodier", "resp_prev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Body.PreviousResponseID != "resp_prev" {
		t.Fatalf("previous_response_id = %q, want resp_prev", captured.Body.PreviousResponseID)
	}
	if panel.ResponseID != "resp_next" {
		t.Fatalf("handle not replaced: %q", panel.ResponseID)
	}
	content := captured.Body.Input[0].Content
	if len(content) != 1 || content[0].Type != "input_text" {
		t.Fatalf("continuation should send only the prompt, got %#v", content)
	}
}

func TestCreatePanelNoImageProduced(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"id":"resp_x","output":[{"type":"message"}]}`, nil)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.CreatePanel(context.Background(), "p", nil, nil)
	if !errors.Is(err, ErrNoPanel) {
		t.Fatalf("err = %v, want ErrNoPanel", err)
	}
}

func TestCreatePanelAPIError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest, `{"error":{"message":"previous response not found","type":"invalid_request_error"}}`, nil)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.ContinuePanel(context.Background(), "p", "resp_gone")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "previous response not found") {
		t.Fatalf("error should carry upstream detail, got %v", err)
	}
	if errors.Is(err, ErrNoPanel) {
		t.Fatalf("API error must be distinguishable from missing image: %v", err)
	}
}

func TestCreatePanelMalformedResult(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"id":"resp_x","output":[{"type":"image_generation_call","result":"not base64!!"}]}`, nil)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	if _, err := client.CreatePanel(context.Background(), "p", nil, nil); err == nil {
		t.Fatal("expected error for malformed base64 result")
	}
}
