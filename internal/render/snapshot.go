package render

import "sync"

// State is everything a page needs to draw the ledger.
type State struct {
	Totals    TotalsView
	List      ListView
	Error     string
	Focus     Field
	FormReset bool
}

// Snapshot is a Presenter that records the latest display state.
// Focus and FormReset are one-shot signals cleared by Take.
type Snapshot struct {
	mu    sync.Mutex
	state State
}

func NewSnapshot() *Snapshot {
	return &Snapshot{state: State{List: ListView{Empty: true}}}
}

func (s *Snapshot) RenderTotals(v TotalsView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Totals = v
}

func (s *Snapshot) RenderList(v ListView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.List = v
}

func (s *Snapshot) ShowError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = msg
}

func (s *Snapshot) ClearError() {
	s.ShowError("")
}

func (s *Snapshot) Focus(f Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Focus = f
}

func (s *Snapshot) ResetForm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.FormReset = true
}

// Take returns the current state and clears the one-shot signals.
func (s *Snapshot) Take() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	s.state.Focus = FieldNone
	s.state.FormReset = false
	return st
}

// Peek returns the current state without clearing anything.
func (s *Snapshot) Peek() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
