package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"opscal/internal/calendar"
	"opscal/internal/ics"
	appLog "opscal/internal/log"
	"opscal/internal/model"
)

// filterRequest is the wire form of a FilterState. A nil Categories keeps
// every category; an empty list selects none.
type filterRequest struct {
	Categories *[]string `json:"categories,omitempty"`
	Type       string    `json:"type,omitempty"`
	Priority   string    `json:"priority,omitempty"`
}

func (fr filterRequest) toState() (calendar.FilterState, error) {
	f := calendar.DefaultFilter()
	if fr.Categories != nil {
		for _, c := range model.AllCategories() {
			f.SetCategory(c, false)
		}
		for _, name := range *fr.Categories {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			c, ok := model.ParseCategory(name)
			if !ok {
				return f, fmt.Errorf("unknown category %q", name)
			}
			f.SetCategory(c, true)
		}
	}
	if fr.Type != "" {
		t, ok := model.ParseType(fr.Type)
		if !ok {
			return f, fmt.Errorf("unknown type %q", fr.Type)
		}
		f.SetType(&t)
	}
	if fr.Priority != "" {
		p, ok := model.ParsePriority(fr.Priority)
		if !ok {
			return f, fmt.Errorf("unknown priority %q", fr.Priority)
		}
		f.SetPriority(&p)
	}
	return f, nil
}

func filterFromQuery(q url.Values) (calendar.FilterState, error) {
	fr := filterRequest{Type: q.Get("type"), Priority: q.Get("priority")}
	if _, ok := q["categories"]; ok {
		cats := strings.Split(q.Get("categories"), ",")
		fr.Categories = &cats
	}
	return fr.toState()
}

// month resolves a "YYYY-MM" value, defaulting to the current month.
func (s *Server) month(v string) (calendar.Month, error) {
	if v == "" {
		today, _ := model.ParseDate(s.deps.View.Options().Today(), time.UTC)
		return calendar.MonthOf(today), nil
	}
	return calendar.ParseMonth(v)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, err := s.month(q.Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}
	f, err := filterFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.View.Month(r.Context(), m, f))
}

type clickRequest struct {
	Date   string        `json:"date"`
	Month  string        `json:"month,omitempty"`
	Filter filterRequest `json:"filter"`
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	day, err := model.ParseDate(req.Date, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	m := calendar.MonthOf(day)
	if req.Month != "" {
		if m, err = calendar.ParseMonth(req.Month); err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
	}
	f, err := req.Filter.toState()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view := s.deps.View.Month(r.Context(), m, f)
	writeJSON(w, http.StatusOK, s.deps.Controller.ClickDay(view.Cells, req.Date))
}

type createChoiceRequest struct {
	Date string `json:"date"`
	Kind string `json:"kind"`
}

func (s *Server) handleCreateChoice(w http.ResponseWriter, r *http.Request) {
	var req createChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if _, err := model.ParseDate(req.Date, time.UTC); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	intent, err := s.deps.Controller.ChooseCreation(req.Date, calendar.CreationKind(req.Kind))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

type selectRequest struct {
	EventID string `json:"event_id"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	e, ok := s.deps.View.Find(r.Context(), req.EventID)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Controller.SelectEvent(e))
}

type createResponse struct {
	ID     string          `json:"id"`
	Intent calendar.Intent `json:"intent"`
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Priority    string `json:"priority,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	task := model.Task{
		ID:          s.newID(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		OrderID:     req.OrderID,
		Status:      "open",
	}
	if req.DueDate != "" {
		due, err := model.ParseDate(req.DueDate, s.deps.View.Options().Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
			return
		}
		task.DueDate = &due
	}

	if err := s.deps.Store.SaveTask(r.Context(), task); err != nil {
		s.writeSaveError(w, "task", err)
		return
	}
	appLog.Info("task created", "id", task.ID)
	writeJSON(w, http.StatusCreated, createResponse{ID: task.ID, Intent: s.deps.Controller.Mutated()})
}

type createMeetingRequest struct {
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	Time        string   `json:"time,omitempty"`
	Description string   `json:"description,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	Location    string   `json:"location,omitempty"`
	Priority    string   `json:"priority,omitempty"`
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	day, err := model.ParseDate(req.Date, s.deps.View.Options().Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	entry := model.CalendarEntry{
		ID:          s.newID(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Date:        day,
		Time:        req.Time,
		Type:        model.TypeMeeting,
		Priority:    model.Priority(req.Priority),
		Attendees:   req.Attendees,
		Location:    req.Location,
		Source:      model.SourceLocal,
	}

	if err := s.deps.Store.SaveCalendarEntry(r.Context(), entry); err != nil {
		s.writeSaveError(w, "meeting", err)
		return
	}
	appLog.Info("meeting created", "id", entry.ID, "date", req.Date)
	writeJSON(w, http.StatusCreated, createResponse{ID: entry.ID, Intent: s.deps.Controller.Mutated()})
}

func (s *Server) writeSaveError(w http.ResponseWriter, kind string, err error) {
	if errors.Is(err, model.ErrInvalid) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	appLog.Error("save failed", err, "kind", kind)
	writeError(w, http.StatusInternalServerError, "failed to save "+kind)
}

// handleICS exports the filtered events as a subscribable feed.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events := calendar.Filter(s.deps.View.Events(r.Context()), f)

	body, err := ics.Encode(events, time.Now())
	if err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="opscal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
