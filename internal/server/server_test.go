package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/auth"
	"github.com/nhle/taskflow/internal/logging"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/projection"
	"github.com/nhle/taskflow/internal/store/storetest"
	tasksync "github.com/nhle/taskflow/internal/sync"
)

type tokens map[string]string

func (t tokens) Restore(_ context.Context, token string) (auth.Identity, error) {
	if user, ok := t[token]; ok {
		return auth.Identity{UserID: user}, nil
	}
	return auth.Identity{}, errors.New("unknown token")
}

type fixture struct {
	srv     *httptest.Server
	session *tasksync.Session
	fake    *storetest.Fake
}

func newFixture(t *testing.T, seed ...model.Task) fixture {
	t.Helper()
	fake := storetest.New()
	fake.Seed(seed...)
	session := tasksync.New(fake, tasksync.WithLogger(logging.Discard()))
	require.NoError(t, session.Start(context.Background(), "u1"))
	t.Cleanup(session.Stop)
	require.Eventually(t, func() bool { return len(session.Tasks().Tasks) == len(seed) },
		2*time.Second, 5*time.Millisecond)

	ctrl := app.NewController(session, app.WithLogger(logging.Discard()))
	s := New(ctrl, tokens{"good": "u1", "other": "u2"}, logging.Discard())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return fixture{srv: srv, session: session, fake: fake}
}

func (f fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func seedTask(id string, status model.Status, order float64) model.Task {
	return model.Task{
		ID: id, OwnerID: "u1", Text: id, Status: status,
		Priority: model.PriorityNormal, Tags: []string{}, Order: order,
	}
}

func TestRequiresMatchingToken(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/board", "", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/board", "bogus", nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/board", "other", nil).StatusCode)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/board", "good", nil).StatusCode)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", nil).StatusCode)
}

func TestQuickAddAndList(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/tasks", "good", quickAddRequest{Input: "Ship release !high #work"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created idResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)

	require.Eventually(t, func() bool { return len(f.session.Tasks().Tasks) == 1 },
		2*time.Second, 5*time.Millisecond)

	resp = f.do(t, http.MethodGet, "/list?priority=high", "good", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []model.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "Ship release", list[0].Text)
	assert.Equal(t, []string{"work"}, list[0].Tags)

	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodGet, "/list?status=someday", "good", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodPost, "/tasks", "good", quickAddRequest{Input: "  "}).StatusCode)
}

func TestMoveUpdatesBoard(t *testing.T) {
	f := newFixture(t, seedTask("a", model.StatusBacklog, 1), seedTask("b", model.StatusToday, 1))

	resp := f.do(t, http.MethodPost, "/tasks/a/move", "good", moveRequest{Status: model.StatusToday, Index: 0})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Eventually(t, func() bool {
		got, _ := f.session.Task("a")
		return got.Status == model.StatusToday && got.Order < 1
	}, 2*time.Second, 5*time.Millisecond)

	resp = f.do(t, http.MethodGet, "/board", "good", nil)
	var board projection.Board
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&board))
	col := board.Column(model.StatusToday)
	require.Len(t, col.Cards, 2)
	assert.Equal(t, "a", col.Cards[0].Task.ID)

	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodPost, "/tasks/zzz/move", "good", moveRequest{Status: model.StatusDone}).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodPost, "/tasks/a/move", "good", moveRequest{Status: "later"}).StatusCode)
}

func TestPatchValidatesAndDeleteUndo(t *testing.T) {
	f := newFixture(t, seedTask("a", model.StatusBacklog, 1))

	for _, body := range []map[string]any{
		{"text": "  "},
		{"status": "later"},
		{"priority": "urgent"},
		{"dueDate": "next week"},
	} {
		resp := f.do(t, http.MethodPatch, "/tasks/a", "good", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %v", body)
	}
	assert.Equal(t, 0, f.fake.Writes())

	resp := f.do(t, http.MethodPatch, "/tasks/a", "good", map[string]any{
		"text": "Renamed", "status": "done", "priority": "low", "dueDate": "2024-04-01",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool {
		got, _ := f.session.Task("a")
		return got.Text == "Renamed" && got.Status == model.StatusDone
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodPatch, "/tasks/zzz", "good", map[string]any{"text": "x"}).StatusCode)

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/tasks/a", "good", nil).StatusCode)
	require.Eventually(t, func() bool { return f.fake.Len() == 0 }, 2*time.Second, 5*time.Millisecond)

	resp = f.do(t, http.MethodPost, "/undo", "good", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out undoResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "reverted", out.Outcome)

	restored, ok := f.fake.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Renamed", restored.Text)
}

func TestPatchLeavesOmittedFieldsUntouched(t *testing.T) {
	due := model.NewDueDate(time.Date(2026, 11, 1, 0, 0, 0, 0, time.Local))
	task := seedTask("a", model.StatusInProgress, 1)
	task.Priority = model.PriorityHigh
	task.Tags = []string{"work"}
	task.Description = "keep me"
	task.DueDate = &due
	f := newFixture(t, task)

	resp := f.do(t, http.MethodPatch, "/tasks/a", "good", map[string]any{"text": "Renamed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool {
		got, _ := f.session.Task("a")
		return got.Text == "Renamed"
	}, 2*time.Second, 5*time.Millisecond)

	got, ok := f.fake.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Text)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, []string{"work"}, got.Tags)
	assert.Equal(t, "keep me", got.Description)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-11-01", got.DueDate.String())

	resp = f.do(t, http.MethodPatch, "/tasks/a", "good", map[string]any{"dueDate": "", "tags": []string{" home ", ""}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool {
		got, _ := f.session.Task("a")
		return got.DueDate == nil
	}, 2*time.Second, 5*time.Millisecond)
	got, _ = f.fake.Get("a")
	assert.Equal(t, []string{"home"}, got.Tags)
	assert.Equal(t, model.PriorityHigh, got.Priority)
}

func TestOfflineWritesAreRejected(t *testing.T) {
	f := newFixture(t)
	f.session.SetOnline(false)

	resp := f.do(t, http.MethodPost, "/tasks", "good", quickAddRequest{Input: "Anything"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, f.fake.Writes())
}

func TestCalendarMonthParam(t *testing.T) {
	due := model.NewDueDate(time.Date(2024, 2, 14, 0, 0, 0, 0, time.Local))
	task := seedTask("v", model.StatusBacklog, 1)
	task.DueDate = &due
	f := newFixture(t, task)

	resp := f.do(t, http.MethodGet, "/calendar?month=2024-02", "good", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cal projection.Calendar
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cal))
	assert.Equal(t, "February 2024", cal.Title())

	found := false
	for _, c := range cal.Cells {
		for _, tk := range c.Tasks {
			found = found || tk.ID == "v"
		}
	}
	assert.True(t, found)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/calendar?month=feb", "good", nil).StatusCode)
}
