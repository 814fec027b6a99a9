package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type restRequest struct {
	path string
	body map[string]interface{}
}

// newRESTServer returns a fake RouterOS REST endpoint that records requests
// and serves canned JSON per path.
func newRESTServer(t *testing.T, responses map[string]string) (*httptest.Server, *[]restRequest) {
	t.Helper()
	var requests []restRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var body map[string]interface{}
		if r.Method == "POST" {
			json.NewDecoder(r.Body).Decode(&body)
		}
		requests = append(requests, restRequest{path: r.URL.Path, body: body})

		resp, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":400,"message":"Bad Request","detail":"unknown command"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))

	return srv, &requests
}

func TestRESTClient_Read(t *testing.T) {
	srv, requests := newRESTServer(t, map[string]string{
		"/rest/ip/hotspot/user/print": `[{".id":"*1","name":"254712345678","profile":"10 Mbps-Profile"}]`,
	})
	defer srv.Close()

	c := NewRESTClient(srv.URL, "admin", "secret")
	rows, err := c.Read(context.Background(), "/ip/hotspot/user", map[string]string{"name": "254712345678"})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "254712345678" {
		t.Fatalf("Unexpected rows: %v", rows)
	}

	sent := (*requests)[0]
	terms, ok := sent.body[".query"].([]interface{})
	if !ok || len(terms) != 1 || terms[0] != "name=254712345678" {
		t.Errorf("Expected .query filter, got %v", sent.body)
	}
}

func TestRESTClient_Write(t *testing.T) {
	srv, requests := newRESTServer(t, map[string]string{
		"/rest/ip/hotspot/user/add": `{"ret":"*5"}`,
	})
	defer srv.Close()

	c := NewRESTClient(srv.URL, "admin", "secret")
	row, err := c.Write(context.Background(), "/ip/hotspot/user/add", map[string]string{
		"name":     "254712345678",
		"password": "ISP-ABCD-EFGH",
	})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if row["ret"] != "*5" {
		t.Errorf("Expected ret from reply, got %v", row)
	}

	sent := (*requests)[0]
	if sent.body["name"] != "254712345678" || sent.body["password"] != "ISP-ABCD-EFGH" {
		t.Errorf("Unexpected request body: %v", sent.body)
	}
}

func TestRESTClient_CommandFailure(t *testing.T) {
	srv, _ := newRESTServer(t, nil)
	defer srv.Close()

	c := NewRESTClient(srv.URL, "admin", "secret")
	_, err := c.Write(context.Background(), "/nonsense", nil)
	if err == nil {
		t.Fatal("Expected error for rejected command")
	}
}

func TestRESTClient_BadCredentials(t *testing.T) {
	srv, _ := newRESTServer(t, nil)
	defer srv.Close()

	c := NewRESTClient(srv.URL, "admin", "wrong")
	err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("Expected authentication error")
	}
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("Expected ConnectionError, got %T", err)
	}
}

func TestRESTClient_Connect(t *testing.T) {
	srv, _ := newRESTServer(t, map[string]string{
		"/rest/system/resource": `{"uptime":"1w2d","version":"7.14"}`,
	})
	defer srv.Close()

	c := NewRESTClient(srv.URL, "admin", "secret")
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
}

func TestRESTClient_Remove(t *testing.T) {
	srv, requests := newRESTServer(t, map[string]string{
		"/rest/ip/hotspot/user/remove": `[]`,
	})
	defer srv.Close()

	c := NewRESTClient(srv.URL, "admin", "secret")
	if err := c.Remove(context.Background(), "/ip/hotspot/user", "*5"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if (*requests)[0].body[".id"] != "*5" {
		t.Errorf("Expected .id in remove body, got %v", (*requests)[0].body)
	}
}

func TestRESTClient_UnreachableRouter(t *testing.T) {
	c := NewRESTClient("http://127.0.0.1:1", "admin", "secret")
	_, err := c.Read(context.Background(), "/ip/hotspot/user", nil)
	if err == nil {
		t.Fatal("Expected error for unreachable router")
	}
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("Expected ConnectionError, got %T: %v", err, err)
	}
}
