package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	"github.com/cymbal-labs/searchdemo/internal/assets/web"
	apperrors "github.com/cymbal-labs/searchdemo/internal/errors"
	"github.com/cymbal-labs/searchdemo/internal/search"
	"github.com/cymbal-labs/searchdemo/internal/ui"
)

const maxBodyBytes = 64 << 10

// UI serves the page and the JSON endpoints the page script calls. Each
// browser tab owns one session, identified by the tab query parameter.
type UI struct {
	Sessions *ui.Sessions
	Title    string
}

type queryRequest struct {
	Tab   string `json:"tab"`
	Query string `json:"query"`
	Key   string `json:"key,omitempty"`
}

type queryResponse struct {
	Query          string `json:"query"`
	PreventDefault bool   `json:"preventDefault"`
}

type paramsRequest struct {
	Tab   string `json:"tab"`
	Field string `json:"field"`
	Value string `json:"value"`
}

type paramsResponse struct {
	Field string `json:"field"`
	Value int    `json:"value"`
	Valid bool   `json:"valid"`
}

type searchRequest struct {
	Tab string `json:"tab"`
}

// StateResponse is the JSON view of one session.
type StateResponse struct {
	Tab     string            `json:"tab"`
	Query   string            `json:"query"`
	Busy    bool              `json:"busy"`
	Fields  map[string]string `json:"fields"`
	Results ui.ResultView     `json:"results"`
}

// Page renders the full page. Without a tab parameter a session is created
// and the browser is redirected to its URL, so reloads keep the tab's state.
func (h *UI) Page(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	session, ok := h.Sessions.Get(tab)
	if !ok {
		session = h.Sessions.GetOrCreate(tab)
		if session.ID != tab {
			http.Redirect(w, r, "/?tab="+url.QueryEscape(session.ID), http.StatusFound)
			return
		}
	}

	var buf bytes.Buffer
	if err := web.RenderPage(&buf, web.NewPage(h.Title, session)); err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to render page"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// Query forwards an input edit, or a key press when key is set.
func (h *UI) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, ok := h.session(w, r, req.Tab)
	if !ok {
		return
	}

	resp := queryResponse{}
	if req.Key != "" {
		resp.PreventDefault = session.Query.Key(req.Key)
		if !resp.PreventDefault {
			session.Query.Change(req.Query)
		}
	} else {
		session.Query.Change(req.Query)
	}
	resp.Query = session.Query.Value()

	writeJSON(w, http.StatusOK, resp)
}

// Params updates one parameter field.
func (h *UI) Params(w http.ResponseWriter, r *http.Request) {
	var req paramsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, ok := h.session(w, r, req.Tab)
	if !ok {
		return
	}

	field, known := ui.ParseField(req.Field)
	if !known {
		env := apperrors.NewInvalidInputError("unknown parameter field")
		env = env.WithDetails(map[string]interface{}{"field": req.Field})
		apperrors.RespondWithError(w, r, env)
		return
	}
	if err := session.Form.SetField(field, req.Value); err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, err.Error()))
		return
	}

	value, valid := session.Form.Value(field)
	writeJSON(w, http.StatusOK, paramsResponse{Field: string(field), Value: value, Valid: valid})
}

// Search starts a search for the tab. The backend call outlives the request;
// its outcome reaches the page over the live channel.
func (h *UI) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, ok := h.session(w, r, req.Tab)
	if !ok {
		return
	}

	if err := session.Form.Start(context.WithoutCancel(r.Context()), nil); err != nil {
		apperrors.RespondWithError(w, r, validationEnvelope(r.Context(), err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Results renders the result fragment for the tab.
func (h *UI) Results(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r, r.URL.Query().Get("tab"))
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := web.RenderResults(&buf, session.View()); err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to render results"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// State returns the tab's state as JSON.
func (h *UI) State(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r, r.URL.Query().Get("tab"))
	if !ok {
		return
	}

	fields := make(map[string]string, len(ui.Fields))
	for _, f := range ui.Fields {
		fields[string(f)] = session.Form.Raw(f)
	}

	writeJSON(w, http.StatusOK, StateResponse{
		Tab:     session.ID,
		Query:   session.Query.Value(),
		Busy:    session.Form.Busy(),
		Fields:  fields,
		Results: session.View(),
	})
}

// session resolves the tab's session. Unknown but well-formed ids get a fresh
// session so a tab survives a server restart.
func (h *UI) session(w http.ResponseWriter, r *http.Request, tab string) (*ui.Session, bool) {
	if tab == "" {
		apperrors.RespondWithError(w, r, apperrors.NewInvalidInputError("tab is required"))
		return nil, false
	}
	if s, ok := h.Sessions.Get(tab); ok {
		return s, true
	}
	s := h.Sessions.GetOrCreate(tab)
	if s.ID != tab {
		env := apperrors.NewInvalidInputError("tab is not a valid id")
		env = env.WithDetails(map[string]interface{}{"tab": tab})
		apperrors.RespondWithError(w, r, env)
		return nil, false
	}
	return s, true
}

func validationEnvelope(ctx context.Context, err error) *gferrors.ErrorEnvelope {
	env := apperrors.WrapValidationError(ctx, err, err.Error())

	var fieldErr *ui.FieldError
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		env = env.WithDetails(map[string]interface{}{"reason": "empty_query"})
	case errors.As(err, &fieldErr):
		env = env.WithDetails(map[string]interface{}{
			"reason": "invalid_field",
			"field":  string(fieldErr.Field),
		})
	}
	return env
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "request body must be a JSON object"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
