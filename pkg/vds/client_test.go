package vds_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/identinet/demoshop/pkg/vds"
)

func TestCreateAuthRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/authrequests" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("nonce") != "nonce-1" {
			t.Errorf("missing nonce parameter, got %q", r.URL.Query().Get("nonce"))
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"req-1","url":"openid4vp://authorize?request_uri=https://vds.example.com/v1/authorize/req-1"}`))
	}))
	defer server.Close()

	client, err := vds.NewClient(vds.Config{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	authRequest, err := client.CreateAuthRequest(context.Background(), "nonce-1")
	if err != nil {
		t.Fatalf("creating authrequest: %v", err)
	}
	if authRequest.ID != "req-1" {
		t.Fatalf("unexpected id %s", authRequest.ID)
	}
	if authRequest.URL == "" {
		t.Fatalf("expected a wallet url")
	}
}

func TestCreateAuthRequestWithoutAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"id":"req-1","url":"openid4vp://"}`))
	}))
	defer server.Close()

	client, err := vds.NewClient(vds.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	if _, err := client.CreateAuthRequest(context.Background(), "nonce-1"); err != nil {
		t.Fatalf("creating authrequest: %v", err)
	}
}

func TestCreateAuthRequestUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := vds.NewClient(vds.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	_, err = client.CreateAuthRequest(context.Background(), "nonce-1")
	var vdsErr *vds.Error
	if !errors.As(err, &vdsErr) {
		t.Fatalf("expected *vds.Error, got %v", err)
	}
	if vdsErr.HttpCode != http.StatusInternalServerError {
		t.Fatalf("unexpected code %d", vdsErr.HttpCode)
	}
}

func TestCreateAuthRequestUnreachable(t *testing.T) {
	client, err := vds.NewClient(vds.Config{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	_, err = client.CreateAuthRequest(context.Background(), "nonce-1")
	var vdsErr *vds.Error
	if !errors.As(err, &vdsErr) {
		t.Fatalf("expected *vds.Error, got %v", err)
	}
	if vdsErr.HttpCode != 0 {
		t.Fatalf("expected no http code for a transport error, got %d", vdsErr.HttpCode)
	}
}

func TestFetchAuthRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/authrequests/req-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"vp_token":"a.b.c"}`))
	}))
	defer server.Close()

	client, err := vds.NewClient(vds.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	body, err := client.FetchAuthRequest(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("fetching authrequest: %v", err)
	}
	if string(body) != `{"vp_token":"a.b.c"}` {
		t.Fatalf("unexpected body %s", body)
	}
}
