package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPReporterPostsAndDecodes(t *testing.T) {
	var got Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type=%q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(Ack{Success: true, Winner: "aoi"})
	}))
	defer srv.Close()

	rep := NewHTTPReporter(srv.URL)
	ack, err := rep.Report(context.Background(), Report{
		Nickname:    "aoi",
		Token:       "tok",
		Score:       3,
		TotalRounds: 5,
	})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !ack.Success || ack.Winner != "aoi" {
		t.Errorf("ack=%+v", ack)
	}
	if got.Nickname != "aoi" || got.Score != 3 || got.TotalRounds != 5 {
		t.Errorf("posted report=%+v", got)
	}
}

func TestHTTPReporterRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rep := NewHTTPReporter(srv.URL)
	if _, err := rep.Report(context.Background(), Report{Nickname: "aoi"}); err == nil {
		t.Fatal("want error on 502")
	}
}

func TestNopReporter(t *testing.T) {
	ack, err := NopReporter{}.Report(context.Background(), Report{})
	if err != nil {
		t.Fatal(err)
	}
	if !ack.Success {
		t.Error("nop reporter should ack success")
	}
}
