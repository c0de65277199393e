package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/nhle/taskflow/internal/app"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/projection"
	tasksync "github.com/nhle/taskflow/internal/sync"
)

type quickAddRequest struct {
	Input string `json:"input"`
}

type moveRequest struct {
	Status model.Status `json:"status"`
	Index  int          `json:"index"`
}

// updateRequest is a partial update. Absent fields are left untouched; an
// empty dueDate clears the due date.
type updateRequest struct {
	Text        *string         `json:"text"`
	Description *string         `json:"description"`
	Status      *model.Status   `json:"status"`
	Priority    *model.Priority `json:"priority"`
	Tags        *[]string       `json:"tags"`
	DueDate     *string         `json:"dueDate"`
}

// patch validates the fields present in req and builds the matching patch.
func (req updateRequest) patch(loc *time.Location) (model.Patch, error) {
	var p model.Patch
	if req.Text != nil {
		text := strings.TrimSpace(*req.Text)
		if text == "" {
			return p, fmt.Errorf("%w: task title is required", app.ErrInvalidInput)
		}
		p.Text = &text
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		p.Description = &desc
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return p, fmt.Errorf("%w: unknown status %q", app.ErrInvalidInput, *req.Status)
		}
		p.Status = req.Status
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return p, fmt.Errorf("%w: unknown priority %q", app.ErrInvalidInput, *req.Priority)
		}
		p.Priority = req.Priority
	}
	if req.Tags != nil {
		tags := []string{}
		for _, tag := range *req.Tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		p.Tags = &tags
	}
	if req.DueDate != nil {
		if s := strings.TrimSpace(*req.DueDate); s == "" {
			p.ClearDueDate = true
		} else {
			d, err := model.ParseDueDate(s, loc)
			if err != nil {
				return p, fmt.Errorf("%w: %w", app.ErrInvalidInput, err)
			}
			p.DueDate = &d
		}
	}
	return p, nil
}

type idResponse struct {
	ID string `json:"id"`
}

type taskResponse struct {
	Task     model.Task   `json:"task"`
	Subtasks []model.Task `json:"subtasks"`
}

type undoResponse struct {
	Outcome string `json:"outcome"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps intent errors to status codes.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrUnknownTask):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tasksync.ErrOffline):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, tasksync.ErrNoSession):
		writeError(w, http.StatusConflict, err.Error())
	case tasksync.IsRemoteError(err):
		s.log.WithError(err).Warn("store request failed")
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"online": s.ctrl.Session().Online()})
}

func (s *Server) getBoard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.View().Board)
}

func (s *Server) getList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := projection.ListFilter{
		Status:   model.Status(q.Get("status")),
		Priority: model.Priority(q.Get("priority")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		writeError(w, http.StatusBadRequest, "unknown priority")
		return
	}
	writeJSON(w, http.StatusOK, projection.BuildList(s.ctrl.Session().Tasks().Tasks, filter))
}

func (s *Server) getCalendar(w http.ResponseWriter, r *http.Request) {
	vm := s.ctrl.View()
	month := vm.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		t, err := time.ParseInLocation("2006-01", raw, vm.Now.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		month = t
	}
	writeJSON(w, http.StatusOK, projection.BuildCalendar(s.ctrl.Session().Tasks().Tasks, month, vm.Now))
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	t, ok := s.ctrl.Session().Task(id)
	if !ok {
		s.writeFailure(w, app.ErrUnknownTask)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{
		Task:     t,
		Subtasks: projection.Subtasks(s.ctrl.Session().Tasks().Tasks, id),
	})
}

func (s *Server) quickAdd(w http.ResponseWriter, r *http.Request) {
	var req quickAddRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := s.ctrl.QuickAdd(r.Context(), req.Input)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "input is empty")
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) moveTask(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.ctrl.Move(r.Context(), mux.Vars(r)["id"], req.Status, req.Index); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.ctrl.Session().Task(id); !ok {
		s.writeFailure(w, app.ErrUnknownTask)
		return
	}
	var req updateRequest
	if !decode(w, r, &req) {
		return
	}
	patch, err := req.patch(time.Local)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if !patch.Empty() {
		if err := s.ctrl.Session().Update(r.Context(), id, patch); err != nil {
			s.writeFailure(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.ctrl.Session().Task(id); !ok {
		s.writeFailure(w, app.ErrUnknownTask)
		return
	}
	if err := s.ctrl.Delete(r.Context(), id); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := s.ctrl.AddSubtask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.ctrl.Undo(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, undoResponse{Outcome: outcome.String()})
}
