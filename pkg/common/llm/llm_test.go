package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{}\n```":            "{}",
		`  {"plain":true} `:       `{"plain":true}`,
	}
	for in, want := range cases {
		if got := StripCodeFences(in); got != want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestChatClientComplete(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	client := NewChatClient("secret", srv.URL+"/v1/", "gpt-test", srv.Client())
	out, err := client.Complete(context.Background(), "sys", "user", true)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("unexpected content %q", out)
	}
	if gotBody["model"] != "gpt-test" {
		t.Fatalf("unexpected model %v", gotBody["model"])
	}
	if _, ok := gotBody["response_format"]; !ok {
		t.Fatal("expected json response format")
	}
}

func TestChatClientSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewChatClient("k", srv.URL, "m", srv.Client())
	if _, err := client.Complete(context.Background(), "s", "u", false); err == nil {
		t.Fatal("expected error")
	}
}
