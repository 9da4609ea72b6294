// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeServer struct {
	lastBody map[string]string
	status   int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/chat":
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		if f.status != 0 && f.status != http.StatusOK {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":"No message provided"}`))
			return
		}
		_, _ = w.Write([]byte(`{"response":"I hear you. [negative] ok 💙","sentiment":"negative","aggregate_sentiment":"negative","session_id":"default"}`))
	case "/api/history":
		if r.URL.Query().Get("session_id") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"session not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"session_id":"default","messages":[{"role":"system","content":"sys"},{"role":"user","content":"hi"}],"trajectory":["neutral","negative"],"aggregate_sentiment":"negative"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func startFake(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	t.Setenv("CHAT_API_URL", srv.URL)
	return f
}

func TestRunSend(t *testing.T) {
	f := startFake(t)
	var stdout, stderr bytes.Buffer
	code := runSend("s1", "I feel awful", &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if f.lastBody["message"] != "I feel awful" || f.lastBody["session_id"] != "s1" {
		t.Fatalf("unexpected request body: %v", f.lastBody)
	}
	if !strings.Contains(stdout.String(), "sentiment: negative") {
		t.Fatalf("unexpected output: %s", stdout.String())
	}
}

func TestRunSend_ServerError(t *testing.T) {
	f := startFake(t)
	f.status = http.StatusBadRequest
	var stdout, stderr bytes.Buffer
	if code := runSend("", "x", &stdout, &stderr); code == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if !strings.Contains(stderr.String(), "No message provided") {
		t.Fatalf("stderr should carry server error, got: %s", stderr.String())
	}
	if _, ok := f.lastBody["session_id"]; ok {
		t.Fatal("empty session id should not be sent")
	}
}

func TestRunChat(t *testing.T) {
	f := startFake(t)
	in := strings.NewReader("hello\n\nquit\nnever sent\n")
	var stdout, stderr bytes.Buffer
	if code := runChat("", in, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if f.lastBody["message"] != "hello" {
		t.Fatalf("last message = %q, want hello", f.lastBody["message"])
	}
	if strings.Count(stdout.String(), "sentiment:") != 1 {
		t.Fatalf("expected exactly one reply, got: %s", stdout.String())
	}
}

func TestRunChat_EOFWithoutNewline(t *testing.T) {
	f := startFake(t)
	var stdout, stderr bytes.Buffer
	if code := runChat("", strings.NewReader("last line"), &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if f.lastBody["message"] != "last line" {
		t.Fatalf("trailing line not sent: %v", f.lastBody)
	}
}

func TestRunHistory(t *testing.T) {
	startFake(t)
	var stdout, stderr bytes.Buffer
	if code := runHistory("", &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	out := stdout.String()
	if !strings.Contains(out, "[user] hi") || !strings.Contains(out, "trajectory: neutral,negative") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestRunHistory_NotFound(t *testing.T) {
	startFake(t)
	var stdout, stderr bytes.Buffer
	if code := runHistory("missing", &stdout, &stderr); code == 0 {
		t.Fatal("expected non-zero exit code")
	}
	if !strings.Contains(stderr.String(), "session not found") {
		t.Fatalf("unexpected stderr: %s", stderr.String())
	}
}
