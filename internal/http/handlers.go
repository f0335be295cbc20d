package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/render"
)

const (
	pageTemplate     = "index.html"
	fragmentTemplate = "app"
)

// pageData feeds both the full page and the app fragment. Form echoes the
// submitted values after a rejected entry so the user can correct them.
type pageData struct {
	render.State
	Form ledger.Form
}

func (pageData) PromptDelete() string { return ledger.PromptDelete }
func (pageData) PromptClear() string  { return ledger.PromptClear }

// DeleteVals is the hx-vals payload of a row's delete button. Ids travel in
// the body since stored ids may contain any character.
func (pageData) DeleteVals(id string) (string, error) {
	b, err := json.Marshal(map[string]string{"id": id, "confirmed": "true"})
	return string(b), err
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// respond renders the fragment for HTMX requests and the full page otherwise.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, data pageData) {
	name := pageTemplate
	if isHTMX(r) {
		name = fragmentTemplate
	}
	if err := b.Template(s.templates, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err,
			"template", name)
		InternalServerError("Rendering failed").Write(w)
		return
	}
	b.Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.view.Take()
	s.mu.Unlock()

	s.respond(w, r, NewHTMXResponse(), pageData{State: st})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Malformed request body", log.FieldError, err)
		BadRequestError("Malformed request").Write(w)
		return
	}
	form := p.TransactionForm()

	s.mu.Lock()
	tx, err := s.ledger.Add(r.Context(), form)
	st := s.view.Take()
	size := len(s.ledger.Transactions())
	s.mu.Unlock()

	b := NewHTMXResponse()
	data := pageData{State: st}

	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ve):
		if s.metrics != nil {
			s.metrics.ValidationError(string(ve.Field))
		}
		b.Status(http.StatusUnprocessableEntity)
		data.Form = form
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Add failed", log.FieldError, err)
		InternalServerError("Could not add transaction").Write(w)
		return
	default:
		s.recordSize(size)
		b.TriggerTransactionAdded(tx.ID, string(tx.Type)).TriggerFormReset()
		s.notifyOutcome(b, st, "Transaction added")
	}
	s.respond(w, r, b, data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}
	id := p.TransactionID()
	if id == "" {
		BadRequestError("Missing transaction id").Write(w)
		return
	}
	ctx := ledger.WithConfirmation(r.Context(), p.Confirmed())

	s.mu.Lock()
	removed := s.ledger.Delete(ctx, id)
	st := s.view.Take()
	size := len(s.ledger.Transactions())
	s.mu.Unlock()

	b := NewHTMXResponse()
	if removed {
		s.recordSize(size)
		b.TriggerTransactionDeleted(id)
		s.notifyOutcome(b, st, "Transaction deleted")
	} else if p.Confirmed() {
		b.TriggerNotification(NotificationInfo, "Transaction not found", 3000)
	}
	s.respond(w, r, b, pageData{State: st})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}
	ctx := ledger.WithConfirmation(r.Context(), p.Confirmed())

	s.mu.Lock()
	n := s.ledger.ClearAll(ctx)
	st := s.view.Take()
	s.mu.Unlock()

	b := NewHTMXResponse()
	if n > 0 {
		s.recordSize(0)
		b.TriggerLedgerCleared(n)
		s.notifyOutcome(b, st, "All transactions cleared")
	}
	s.respond(w, r, b, pageData{State: st})
}

// notifyOutcome surfaces a save warning in place of the success toast.
func (s *Server) notifyOutcome(b *HTMXResponseBuilder, st render.State, success string) {
	if st.Error != "" {
		b.TriggerWarningNotification(st.Error)
		return
	}
	b.TriggerSuccessNotification(success)
}

func (s *Server) recordSize(n int) {
	if s.metrics != nil {
		s.metrics.SetLedgerSize(n)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ready(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
