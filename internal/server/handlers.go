package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/leapmerge/internal/detect"
	"github.com/leapstack-labs/leapmerge/internal/engine"
	"github.com/leapstack-labs/leapmerge/internal/merge"
	"github.com/leapstack-labs/leapmerge/internal/validate"
	"github.com/starfederation/datastar-go/datastar"
)

// LoadRequest names the file to load into a slot.
type LoadRequest struct {
	Path string `json:"path"`
}

// KeysRequest names a key column pair.
type KeysRequest struct {
	Key1 string `json:"key1"`
	Key2 string `json:"key2"`
}

// MergeRequest selects the merge key pair and join type. Empty keys use
// the best detected candidate.
type MergeRequest struct {
	Key1 string         `json:"key1"`
	Key2 string         `json:"key2"`
	Join merge.JoinType `json:"join"`
}

// SaveRequest names the output path of the merge result.
type SaveRequest struct {
	Path   string `json:"path"`
	Report bool   `json:"report"`
}

// SaveResponse reports where the result was written.
type SaveResponse struct {
	Output string `json:"output"`
	Report string `json:"report,omitempty"`
}

// ResultResponse holds the merge summary and its first rows.
type ResultResponse struct {
	Result  *merge.Result `json:"result"`
	Columns []string      `json:"columns"`
	Rows    [][]any       `json:"rows"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// errNoCandidates is returned by merge without keys when detection finds
// nothing.
var errNoCandidates = errors.New("no key candidates found; choose the key columns manually")

func (s *Server) routes(r chi.Router) {
	r.Post("/datasets/{slot}", s.handleLoad)
	r.Get("/preview", s.handlePreview)
	r.Post("/detect", s.handleDetect)
	r.Post("/validate", s.handleValidate)
	r.Post("/merge", s.handleMerge)
	r.Get("/result", s.handleResult)
	r.Post("/result/save", s.handleSave)
	r.Delete("/session", s.handleReset)
	r.Get("/events", s.handleEvents)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	slot, err := engine.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req LoadRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Path == "" {
		s.writeError(w, badRequest("path is required"))
		return
	}

	var preview []engine.DatasetPreview
	id, err := s.withSession(w, r, func(eng *engine.Engine) error {
		if err := eng.Load(r.Context(), slot, req.Path); err != nil {
			return err
		}
		preview = eng.Preview(rowsParam(r))
		return nil
	})
	s.respond(w, id, err, previewOf(preview, slot))
}

func previewOf(previews []engine.DatasetPreview, slot engine.Slot) *engine.DatasetPreview {
	for i := range previews {
		if previews[i].Slot == slot {
			return &previews[i]
		}
	}
	return nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var preview []engine.DatasetPreview
	_, err := s.withSession(w, r, func(eng *engine.Engine) error {
		preview = eng.Preview(rowsParam(r))
		return nil
	})
	s.respond(w, "", err, preview)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var candidates []detect.Candidate
	id, err := s.withSession(w, r, func(eng *engine.Engine) error {
		var err error
		candidates, err = eng.DetectKeys()
		return err
	})
	s.respond(w, id, err, candidates)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req KeysRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var report *validate.Report
	_, err := s.withSession(w, r, func(eng *engine.Engine) error {
		var err error
		report, err = eng.ValidateKeys(req.Key1, req.Key2)
		return err
	})
	s.respond(w, "", err, report)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if (req.Key1 == "") != (req.Key2 == "") {
		s.writeError(w, badRequest("key1 and key2 must be given together"))
		return
	}
	if req.Join == "" {
		req.Join = merge.JoinLeft
	}

	var result *merge.Result
	id, err := s.withSession(w, r, func(eng *engine.Engine) error {
		key1, key2 := req.Key1, req.Key2
		if key1 == "" {
			if _, err := eng.DetectKeys(); err != nil {
				return err
			}
			best, ok := eng.BestCandidate()
			if !ok {
				return badRequest(errNoCandidates.Error())
			}
			key1, key2 = best.ColumnA, best.ColumnB
		}
		var err error
		result, err = eng.Merge(key1, key2, req.Join)
		return err
	})
	s.respond(w, id, err, result)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	var resp ResultResponse
	_, err := s.withSession(w, r, func(eng *engine.Engine) error {
		res := eng.Result()
		if res == nil {
			return engine.ErrNoResult
		}
		head := res.Dataset.Head(rowsParam(r))
		resp = ResultResponse{Result: res, Columns: head.Columns, Rows: head.Records()}
		return nil
	})
	s.respond(w, "", err, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Path == "" {
		s.writeError(w, badRequest("path is required"))
		return
	}

	var resp SaveResponse
	_, err := s.withSession(w, r, func(eng *engine.Engine) error {
		var err error
		if resp.Output, err = eng.Save(r.Context(), req.Path); err != nil {
			return err
		}
		if req.Report {
			resp.Report, err = eng.SaveReport(resp.Output)
		}
		return err
	})
	s.respond(w, "", err, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id, err := s.withSession(w, r, func(eng *engine.Engine) error {
		eng.Reset()
		return nil
	})
	if err == nil {
		s.sessions.drop(id)
	}
	s.respond(w, id, err, map[string]bool{"reset": true})
}

// StateSignals is the per-session state pushed to event stream clients.
type StateSignals struct {
	File1      string `json:"file1"`
	File2      string `json:"file2"`
	Loaded     bool   `json:"loaded"`
	Candidates int    `json:"candidates"`
	ResultRows int    `json:"resultRows"`
	Join       string `json:"join"`
}

// handleEvents is the long-lived SSE endpoint. It sends the session state
// once, then again after every operation that changes it.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessionID(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	updates := s.notifier.Subscribe(id)
	defer s.notifier.Unsubscribe(updates)

	sse := datastar.NewSSE(w, r)
	send := func() {
		if err := sse.MarshalAndPatchSignals(s.state(id)); err != nil {
			_ = sse.ConsoleError(err)
		}
	}
	send()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			send()
		}
	}
}

func (s *Server) state(id string) StateSignals {
	sess := s.sessions.get(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	eng := sess.eng
	st := StateSignals{
		File1:      eng.Source(engine.First),
		File2:      eng.Source(engine.Second),
		Loaded:     eng.Loaded(),
		Candidates: len(eng.Candidates()),
	}
	if res := eng.Result(); res != nil {
		st.ResultRows = res.Rows
		st.Join = string(res.Join)
	}
	return st
}

// requestError is a client mistake in the request itself.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

func decode(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := datastar.ReadSignals(r, v); err != nil {
		return badRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// rowsParam reads the rows query parameter; invalid or missing values
// select the engine default.
func rowsParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("rows"))
	if err != nil {
		return 0
	}
	return n
}

// respond writes v, or the error, as JSON. A non-empty id notifies the
// session's event listeners after a successful change.
func (s *Server) respond(w http.ResponseWriter, id string, err error, v any) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	if id != "" {
		s.notifier.Broadcast(id)
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr), engine.IsPrecondition(err):
		status = http.StatusBadRequest
	default:
		s.logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
