package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(url string) *Client {
	return NewClient(url, WithRateLimit(0, 0))
}

func TestListRequestsPage(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"ID":1,"Name":"a"},{"ID":2,"Name":"b"}]`))
	}))
	defer server.Close()

	recs, err := newTestClient(server.URL+"/").List(context.Background(), "items", 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if gotPath != "/items/api/byPage/3" {
		t.Errorf("path = %q", gotPath)
	}
	if len(recs) != 2 || recs[1]["Name"] != "b" {
		t.Errorf("unexpected records: %v", recs)
	}
}

func TestListRejectsNonArray(t *testing.T) {
	bodies := []string{`{"data":[]}`, `null`, `"items"`, ``}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).List(context.Background(), "items", 1)
			if !errors.Is(err, ErrShape) {
				t.Errorf("expected ErrShape, got %v", err)
			}
		})
	}
}

func TestListEmptyArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	recs, err := newTestClient(server.URL).List(context.Background(), "items", 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", recs)
	}
}

func TestListAllAcceptsBothShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"ID":1}]`, 1},
		{"data wrapper", `{"data":[{"ID":1},{"ID":2}]}`, 2},
		{"empty wrapper", `{"data":[]}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/businesses/api" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			recs, err := newTestClient(server.URL).ListAll(context.Background(), "businesses")
			if err != nil {
				t.Fatalf("ListAll failed: %v", err)
			}
			if len(recs) != tt.want {
				t.Errorf("got %d records, want %d", len(recs), tt.want)
			}
		})
	}
}

func TestListAllRejectsOtherShapes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListAll(context.Background(), "businesses")
	if !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}

func TestUpdateSendsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/items/api" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("content-type = %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if got := r.FormValue("id"); got != "7" {
			t.Errorf("id = %q, want 7", got)
		}
		if got := r.FormValue("Status"); got != "Active" {
			t.Errorf("Status = %q", got)
		}
		w.Write([]byte(`{"ID":7,"Status":"Active"}`))
	}))
	defer server.Close()

	rec, err := newTestClient(server.URL).Update(context.Background(), "items", float64(7), map[string]any{"Status": "Active"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if rec["Status"] != "Active" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestUpdateErrorBodyMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Status is locked"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Update(context.Background(), "items", 1, map[string]any{"Status": "x"})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", te.Status)
	}
	if UserMessage(err) != "Status is locked" {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
}

func TestNotify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/notification/api" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		for field, want := range map[string]string{
			"title":       "Acme",
			"description": "Berlin",
			"appName":     "shop",
			"url":         "https://example.com/items/1",
		} {
			if got := r.FormValue(field); got != want {
				t.Errorf("%s = %q, want %q", field, got, want)
			}
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Notify(context.Background(), Notification{
		Title:       "Acme",
		Description: "Berlin",
		AppName:     "shop",
		URL:         "https://example.com/items/1",
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
}

func TestNotifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field", http.StatusBadGateway, `{"error":"push gateway down"}`, "push gateway down"},
		{"plain text", http.StatusInternalServerError, "boom", "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := newTestClient(server.URL).Notify(context.Background(), Notification{AppName: "a"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := UserMessage(err); got != tt.wantMsg {
				t.Errorf("UserMessage = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestNotifyRequiresJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`sent!`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Notify(context.Background(), Notification{AppName: "a"})
	if !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}

func TestTargets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notification/api/targets" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"name":"Shop","appName":"shop"},{"name":"Chat","appName":"chat"}]}`))
	}))
	defer server.Close()

	targets, err := newTestClient(server.URL).Targets(context.Background())
	if err != nil {
		t.Fatalf("Targets failed: %v", err)
	}
	if len(targets) != 2 || targets[1].AppName != "chat" {
		t.Errorf("unexpected targets %v", targets)
	}
}

func TestTransportErrorOnNetworkFailure(t *testing.T) {
	_, err := newTestClient("http://localhost:99999").List(context.Background(), "items", 1)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != 0 {
		t.Errorf("network failure should have status 0, got %d", te.Status)
	}
}

func TestListRespectsCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestClient(server.URL).List(ctx, "items", 1); err == nil {
		t.Error("expected error for cancelled context")
	}
}
