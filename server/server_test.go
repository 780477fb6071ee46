package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/lamnv/todoagent/agent/contract"
	todox "github.com/lamnv/todoagent/agent/todo"
)

type memSnapshot struct {
	tasks []todox.Task
}

func (m *memSnapshot) Read(ctx context.Context) []todox.Task {
	return append([]todox.Task{}, m.tasks...)
}

func (m *memSnapshot) Write(ctx context.Context, tasks []todox.Task) error {
	m.tasks = append([]todox.Task(nil), tasks...)
	return nil
}

type fakeAsker struct {
	result contractx.AskResult
	err    error
	prompt string
}

func (f *fakeAsker) Ask(ctx context.Context, prompt string) (contractx.AskResult, error) {
	f.prompt = prompt
	if f.err != nil {
		return contractx.AskResult{}, f.err
	}
	return f.result, nil
}

func newTestHandler(t *testing.T, snap *memSnapshot, asker *fakeAsker) http.Handler {
	t.Helper()

	store, err := todox.NewStore(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	srv, err := New(store, asker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return srv.Handler()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func TestListTodosEmpty(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &memSnapshot{}, &fakeAsker{})
	rec := doRequest(t, h, http.MethodGet, "/todos", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rawBody := rec.Body.String()
	tasks := decodeBody[[]todox.Task](t, rec)
	if len(tasks) != 0 {
		t.Fatalf("expected empty list, got %d", len(tasks))
	}
	// An empty collection still serializes as [], not null.
	if !strings.HasPrefix(strings.TrimSpace(rawBody), "[") {
		t.Fatalf("expected a json array, got %q", rawBody)
	}
}

func TestCreateAndGetTodo(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &memSnapshot{}, &fakeAsker{})

	rec := doRequest(t, h, http.MethodPost, "/todos", `{"title":"buy milk","date":"2024-01-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %q)", rec.Code, rec.Body.String())
	}
	created := decodeBody[todox.Task](t, rec)
	if created.ID != 1 || created.Title != "buy milk" || created.Done {
		t.Fatalf("unexpected task: %+v", created)
	}

	rec = doRequest(t, h, http.MethodGet, "/todos/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeBody[todox.Task](t, rec)
	if got != created {
		t.Fatalf("expected %+v, got %+v", created, got)
	}
}

func TestGetTodoNotFound(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &memSnapshot{}, &fakeAsker{})

	for _, path := range []string{"/todos/42", "/todos/abc"} {
		rec := doRequest(t, h, http.MethodGet, path, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
		body := decodeBody[map[string]string](t, rec)
		if body["error"] != "Todo not found" {
			t.Fatalf("%s: unexpected error: %q", path, body["error"])
		}
	}
}

func TestCreateTodoValidation(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &memSnapshot{}, &fakeAsker{})

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing title", `{"date":"2024-01-01"}`, "Title cannot be empty"},
		{"bad date", `{"title":"x","date":"soon"}`, "Invalid date format"},
		{"malformed body", `{`, "invalid request body"},
	}
	for _, tc := range cases {
		rec := doRequest(t, h, http.MethodPost, "/todos", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
		body := decodeBody[map[string]string](t, rec)
		if body["error"] != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, body["error"])
		}
	}
}

func TestCreateTodoDuplicate(t *testing.T) {
	t.Parallel()

	snap := &memSnapshot{
		tasks: []todox.Task{{ID: 1, Title: "buy milk", Date: "2024-01-01"}},
	}
	h := newTestHandler(t, snap, &fakeAsker{})

	rec := doRequest(t, h, http.MethodPost, "/todos", `{"title":"buy milk","date":"2024-01-01"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["error"] != "Todo with same title and date already exists" {
		t.Fatalf("unexpected error: %q", body["error"])
	}
}

func TestUpdateTodoPartial(t *testing.T) {
	t.Parallel()

	snap := &memSnapshot{
		tasks: []todox.Task{{ID: 1, Title: "a", Date: "2024-01-01", Done: true}},
	}
	h := newTestHandler(t, snap, &fakeAsker{})

	rec := doRequest(t, h, http.MethodPut, "/todos/1", `{"done":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", rec.Code, rec.Body.String())
	}
	task := decodeBody[todox.Task](t, rec)
	if task.Done {
		t.Fatal("explicit done=false must be applied")
	}
	if task.Title != "a" || task.Date != "2024-01-01" {
		t.Fatalf("absent fields must be retained: %+v", task)
	}
}

func TestUpdateTodoErrors(t *testing.T) {
	t.Parallel()

	snap := &memSnapshot{
		tasks: []todox.Task{
			{ID: 1, Title: "a", Date: "2024-01-01"},
			{ID: 2, Title: "b", Date: "2024-01-01"},
		},
	}
	h := newTestHandler(t, snap, &fakeAsker{})

	rec := doRequest(t, h, http.MethodPut, "/todos/42", `{"done":true}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPut, "/todos/2", `{"title":"a"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate, got %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["error"] != "Todo with same title and date already exists" {
		t.Fatalf("unexpected error: %q", body["error"])
	}

	rec = doRequest(t, h, http.MethodPut, "/todos/1", `{"title":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty title, got %d", rec.Code)
	}
}

func TestDeleteTodo(t *testing.T) {
	t.Parallel()

	snap := &memSnapshot{
		tasks: []todox.Task{{ID: 1, Title: "a", Date: "2024-01-01"}},
	}
	h := newTestHandler(t, snap, &fakeAsker{})

	rec := doRequest(t, h, http.MethodDelete, "/todos/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	task := decodeBody[todox.Task](t, rec)
	if task.ID != 1 {
		t.Fatalf("expected the removed task back, got %+v", task)
	}

	rec = doRequest(t, h, http.MethodDelete, "/todos/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestAsk(t *testing.T) {
	t.Parallel()

	asker := &fakeAsker{
		result: contractx.AskResult{Answer: "done", Iterations: 2},
	}
	h := newTestHandler(t, &memSnapshot{}, asker)

	rec := doRequest(t, h, http.MethodPost, "/ask", `{"prompt":"add buy milk"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if asker.prompt != "add buy milk" {
		t.Fatalf("prompt not forwarded: %q", asker.prompt)
	}
	result := decodeBody[contractx.AskResult](t, rec)
	if result.Answer != "done" || result.Iterations != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAskMissingPrompt(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &memSnapshot{}, &fakeAsker{})

	rec := doRequest(t, h, http.MethodPost, "/ask", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["error"] != "prompt is required" {
		t.Fatalf("unexpected error: %q", body["error"])
	}
}

func TestAskValidationError(t *testing.T) {
	t.Parallel()

	asker := &fakeAsker{
		err: fmt.Errorf("%w: prompt is required", contractx.ErrValidation),
	}
	h := newTestHandler(t, &memSnapshot{}, asker)

	rec := doRequest(t, h, http.MethodPost, "/ask", `{"prompt":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAskModelFailure(t *testing.T) {
	t.Parallel()

	asker := &fakeAsker{
		err: fmt.Errorf("%w: upstream 500", contractx.ErrModelInvoke),
	}
	h := newTestHandler(t, &memSnapshot{}, asker)

	rec := doRequest(t, h, http.MethodPost, "/ask", `{"prompt":"hello"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["error"] != "agent request failed" {
		t.Fatalf("unexpected error: %q", body["error"])
	}
	if !strings.Contains(body["details"], "upstream 500") {
		t.Fatalf("expected details, got %q", body["details"])
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &memSnapshot{}, &fakeAsker{})

	rec := doRequest(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody[map[string]string](t, rec)
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	store, err := todox.NewStore(&memSnapshot{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := New(nil, &fakeAsker{}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := New(store, nil); err == nil {
		t.Fatal("expected error for nil agent")
	}
}
