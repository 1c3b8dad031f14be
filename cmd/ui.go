package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/tessbox/pkg/box"
	"github.com/lehigh-university-libraries/tessbox/pkg/boxfile"
	"github.com/lehigh-university-libraries/tessbox/pkg/hocr"
	"github.com/lehigh-university-libraries/tessbox/pkg/segment"
	"github.com/spf13/cobra"
)

var (
	daemonPort string
	daemonHost string
)

// EditSession is one box file open for editing. All access to Doc goes
// through mu so edits on a session never interleave.
type EditSession struct {
	mu        sync.Mutex
	ID        string
	ImagePath string
	BoxPath   string
	Heights   []int
	Doc       boxfile.Document
	CreatedAt time.Time
}

// SessionSummary is the JSON form of a session
type SessionSummary struct {
	ID        string    `json:"id"`
	ImagePath string    `json:"image_path,omitempty"`
	BoxPath   string    `json:"box_path,omitempty"`
	Heights   []int     `json:"heights"`
	Pages     int       `json:"pages"`
	Boxes     int       `json:"boxes"`
	Legacy    bool      `json:"legacy"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSessionRequest opens a box file from disk (box_path and/or
// image_path) or from inline text (box).
type CreateSessionRequest struct {
	BoxPath   string `json:"box_path"`
	ImagePath string `json:"image_path"`
	Box       string `json:"box"`
	Heights   []int  `json:"heights"`
}

// SelectRequest replaces the selection with ids, or with the box under point.
// With add set the box under point joins the selection instead.
type SelectRequest struct {
	IDs   []uint64   `json:"ids"`
	Point *box.Point `json:"point"`
	Add   bool       `json:"add"`
}

// FindRequest carries characters or "x1 y1 x2 y2" box file coordinates
type FindRequest struct {
	Query string `json:"query"`
}

// BoxFields are the optional field edits of one box, from the set command or
// PATCH .../boxes/{box}. Coordinates are in display space, as listed by the
// page.
type BoxFields struct {
	Character *string `json:"character"`
	X         *int    `json:"x"`
	Y         *int    `json:"y"`
	Width     *int    `json:"width"`
	Height    *int    `json:"height"`
}

// EOLRequest configures end-of-line marking for a whole session
type EOLRequest struct {
	Segmenter   string `json:"segmenter"`
	HOCRPath    string `json:"hocr_path"`
	Language    string `json:"lang"`
	PageSegMode int    `json:"psm"`
}

// EditResponse is returned by every page edit: the page after the edit plus
// what the edit produced
type EditResponse struct {
	Page    PageListing `json:"page"`
	Boxes   []BoxRecord `json:"boxes,omitempty"`
	Removed int         `json:"removed,omitempty"`
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*EditSession
	seq      int
	registry *segment.Registry
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*EditSession),
		registry: segment.DefaultRegistry(),
	}
}

func (s *sessionStore) add(session *EditSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	session.ID = fmt.Sprintf("session_%d_%d", session.CreatedAt.Unix(), s.seq)
	s.sessions[session.ID] = session
}

func (s *sessionStore) get(id string) (*EditSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *sessionStore) list() []*EditSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*EditSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Start the box editing API",
	Long: `Start a web server exposing box files as editable sessions.

Sessions live in memory. PUT /api/sessions/{id}/boxfile writes the edited
box file back to disk.`,
	RunE: runDaemon,
}

func init() {
	RootCmd.AddCommand(uiCmd)
	uiCmd.Flags().StringVar(&daemonPort, "port", "8888", "Port to run the web server on")
	uiCmd.Flags().StringVar(&daemonHost, "host", "localhost", "Host to bind the web server to")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	slog.Info("Starting tessbox editing daemon", "host", daemonHost, "port", daemonPort)

	addr := fmt.Sprintf("%s:%s", daemonHost, daemonPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           newRouter(newSessionStore()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Box editing API available", "url", fmt.Sprintf("http://%s/api/sessions", addr))

	return server.ListenAndServe()
}

func newRouter(store *sessionStore) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions", store.handleListSessions)
	mux.HandleFunc("POST /api/sessions", store.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", store.withSession(handleSessionDetail))
	mux.HandleFunc("GET /api/sessions/{id}/boxfile", store.withSession(handleGetBoxFile))
	mux.HandleFunc("PUT /api/sessions/{id}/boxfile", store.withSession(handleSaveBoxFile))
	mux.HandleFunc("GET /api/sessions/{id}/hocr", store.withSession(handleExportHOCR))
	mux.HandleFunc("POST /api/sessions/{id}/eol", store.withSession(store.handleEOL))
	mux.HandleFunc("GET /api/sessions/{id}/pages/{page}", store.withPage(handlePage))
	mux.HandleFunc("POST /api/sessions/{id}/pages/{page}/select", store.withPage(handleSelect))
	mux.HandleFunc("POST /api/sessions/{id}/pages/{page}/find", store.withPage(handleFind))
	mux.HandleFunc("POST /api/sessions/{id}/pages/{page}/merge", store.withPage(handleMerge))
	mux.HandleFunc("POST /api/sessions/{id}/pages/{page}/split", store.withPage(handleSplit))
	mux.HandleFunc("POST /api/sessions/{id}/pages/{page}/insert", store.withPage(handleInsert))
	mux.HandleFunc("POST /api/sessions/{id}/pages/{page}/delete", store.withPage(handleDelete))
	mux.HandleFunc("POST /api/sessions/{id}/pages/{page}/clean", store.withPage(handleClean))
	mux.HandleFunc("PATCH /api/sessions/{id}/pages/{page}/boxes/{box}", store.withPage(handleSetBox))
	return mux
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, session *EditSession)

type pageHandler func(w http.ResponseWriter, r *http.Request, session *EditSession, page int, col *box.Collection)

// withSession resolves {id} and holds the session lock for the whole request
func (s *sessionStore) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.get(r.PathValue("id"))
		if !ok {
			respondWithError(w, "Session not found", http.StatusNotFound)
			return
		}
		session.mu.Lock()
		defer session.mu.Unlock()
		next(w, r, session)
	}
}

func (s *sessionStore) withPage(next pageHandler) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request, session *EditSession) {
		page, err := strconv.Atoi(r.PathValue("page"))
		if err != nil || page < 0 || page >= len(session.Doc.Pages) {
			respondWithError(w, fmt.Sprintf("Page %s not found", r.PathValue("page")), http.StatusNotFound)
			return
		}
		next(w, r, session, page, session.Doc.Pages[page])
	})
}

func (s *sessionStore) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.list()
	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		session.mu.Lock()
		summaries = append(summaries, session.summary())
		session.mu.Unlock()
	}
	respondWithJSON(w, summaries, http.StatusOK)
}

func (s *sessionStore) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	session, err := openSession(r, req)
	if err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.add(session)

	session.mu.Lock()
	summary := session.summary()
	session.mu.Unlock()
	slog.Info("Opened editing session", "id", summary.ID, "box_path", summary.BoxPath, "boxes", summary.Boxes)

	respondWithJSON(w, summary, http.StatusCreated)
}

func openSession(r *http.Request, req CreateSessionRequest) (*EditSession, error) {
	session := &EditSession{CreatedAt: time.Now()}

	if req.Box != "" {
		if len(req.Heights) == 0 {
			return nil, errors.New("heights are required with inline box text")
		}
		doc, err := boxfile.Parse(strings.TrimPrefix(req.Box, "\ufeff"), req.Heights)
		if err != nil {
			return nil, err
		}
		if err := doc.Complete(); err != nil {
			return nil, err
		}
		session.Heights = req.Heights
		session.Doc = doc
		return session, nil
	}

	ws, err := openWorkspace(r.Context(), req.ImagePath, req.BoxPath, req.Heights)
	if err != nil {
		return nil, err
	}
	session.ImagePath = ws.ImagePath
	session.BoxPath = ws.BoxPath
	session.Heights = ws.Heights
	session.Doc = ws.Doc
	return session, nil
}

func (session *EditSession) summary() SessionSummary {
	return SessionSummary{
		ID:        session.ID,
		ImagePath: session.ImagePath,
		BoxPath:   session.BoxPath,
		Heights:   session.Heights,
		Pages:     len(session.Doc.Pages),
		Boxes:     session.Doc.BoxCount(),
		Legacy:    session.Doc.Legacy,
		CreatedAt: session.CreatedAt,
	}
}

func (session *EditSession) listing(page int) PageListing {
	return PageListing{Page: page, Height: session.Heights[page], Boxes: boxRecords(session.Doc.Pages[page])}
}

func handleSessionDetail(w http.ResponseWriter, r *http.Request, session *EditSession) {
	respondWithJSON(w, session.summary(), http.StatusOK)
}

func handleGetBoxFile(w http.ResponseWriter, r *http.Request, session *EditSession) {
	content, err := boxfile.Format(session.Doc, session.Heights)
	if err != nil {
		respondWithError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, content)
}

func handleSaveBoxFile(w http.ResponseWriter, r *http.Request, session *EditSession) {
	if session.BoxPath == "" {
		respondWithError(w, "Session was opened from inline text and has no box path", http.StatusUnprocessableEntity)
		return
	}
	if err := boxfile.WriteFile(session.BoxPath, session.Doc, session.Heights); err != nil {
		respondWithError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, session.summary(), http.StatusOK)
}

func handleExportHOCR(w http.ResponseWriter, r *http.Request, session *EditSession) {
	content, err := hocr.Export(session.Doc.Pages, session.Heights)
	if err != nil {
		respondWithError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, content)
}

func (s *sessionStore) handleEOL(w http.ResponseWriter, r *http.Request, session *EditSession) {
	var req EOLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	config := segment.Config{
		Segmenter:   req.Segmenter,
		Language:    req.Language,
		PageSegMode: req.PageSegMode,
		HOCRPath:    req.HOCRPath,
	}
	if config.Segmenter == "" {
		config.Segmenter = "layout"
	}
	if !s.registry.HasSegmenter(config.Segmenter) {
		respondWithError(w, fmt.Sprintf("Unknown segmenter %q, available: %s", config.Segmenter, strings.Join(s.registry.List(), ", ")), http.StatusBadRequest)
		return
	}
	if config.Segmenter == "layout" {
		config.Boxes = pageRects(session.Doc.Pages)
	}

	inserted, err := markEndOfLines(r.Context(), s.registry, config, session.ImagePath, session.Doc.Pages)
	if err != nil {
		respondWithError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	respondWithJSON(w, map[string]int{"inserted": inserted}, http.StatusOK)
}

func handlePage(w http.ResponseWriter, r *http.Request, session *EditSession, page int, col *box.Collection) {
	respondWithJSON(w, session.listing(page), http.StatusOK)
}

func handleSelect(w http.ResponseWriter, r *http.Request, session *EditSession, page int, col *box.Collection) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Point != nil {
		b, ok := col.BoxAt(*req.Point)
		switch {
		case !ok && !req.Add:
			col.DeselectAll()
		case ok && req.Add:
			col.SetSelected(b.ID(), true)
		case ok:
			col.SelectOnly(b.ID())
		}
	} else {
		ids := make([]box.ID, 0, len(req.IDs))
		for _, id := range req.IDs {
			if _, ok := col.Get(box.ID(id)); !ok {
				respondWithError(w, fmt.Sprintf("Box %d not found", id), http.StatusNotFound)
				return
			}
			ids = append(ids, box.ID(id))
		}
		col.SelectOnly(ids...)
	}

	respondWithJSON(w, EditResponse{Page: session.listing(page), Boxes: selectedRecords(col)}, http.StatusOK)
}

func handleFind(w http.ResponseWriter, r *http.Request, session *EditSession, page int, col *box.Collection) {
	var req FindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	q, err := boxfile.ParseQuery(req.Query, page, session.Heights[page])
	if err != nil {
		respondWithError(w, boxfile.ErrInvalidQuery.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := q.Run(col); !ok {
		respondWithError(w, q.NotFoundMessage(), http.StatusNotFound)
		return
	}
	respondWithJSON(w, EditResponse{Page: session.listing(page), Boxes: selectedRecords(col)}, http.StatusOK)
}

func handleMerge(w http.ResponseWriter, r *http.Request, session *EditSession, page int, col *box.Collection) {
	merged, err := col.Merge()
	if err != nil {
		respondWithEditError(w, err)
		return
	}
	respondWithJSON(w, EditResponse{
		Page:  session.listing(page),
		Boxes: []BoxRecord{newBoxRecord(col.IndexOf(merged.ID()), merged)},
	}, http.StatusOK)
}

func handleSplit(w http.ResponseWriter, r *http.Request, session *EditSession, page int, col *box.Collection) {
	first, second, err := col.Split()
	if err != nil {
		respondWithEditError(w, err)
		return
	}
	respondWithJSON(w, EditResponse{
		Page: session.listing(page),
		Boxes: []BoxRecord{
			newBoxRecord(col.IndexOf(first.ID()), first),
			newBoxRecord(col.IndexOf(second.ID()), second),
		},
	}, http.StatusOK)
}

func handleInsert(w http.ResponseWriter, r *http.Request, session *EditSession, page int, col *box.Collection) {
	b, err := col.InsertAfterSelected()
	if err != nil {
		respondWithEditError(w, err)
		return
	}
	respondWithJSON(w, EditResponse{
		Page:  session.listing(page),
		Boxes: []BoxRecord{newBoxRecord(col.IndexOf(b.ID()), b)},
	}, http.StatusOK)
}

func handleDelete(w http.ResponseWriter, r *http.Request, session *EditSession, page int, col *box.Collection) {
	removed, err := col.Delete()
	if err != nil {
		respondWithEditError(w, err)
		return
	}
	respondWithJSON(w, EditResponse{Page: session.listing(page), Removed: len(removed)}, http.StatusOK)
}

func handleClean(w http.ResponseWriter, r *http.Request, session *EditSession, page int, col *box.Collection) {
	removed := col.RemoveBlank()
	respondWithJSON(w, EditResponse{Page: session.listing(page), Removed: removed}, http.StatusOK)
}

// handleSetBox selects {box} alone and applies the given field edits to it
func handleSetBox(w http.ResponseWriter, r *http.Request, session *EditSession, page int, col *box.Collection) {
	id, err := strconv.ParseUint(r.PathValue("box"), 10, 64)
	if err != nil {
		respondWithError(w, fmt.Sprintf("Box %s not found", r.PathValue("box")), http.StatusNotFound)
		return
	}
	if _, ok := col.Get(box.ID(id)); !ok {
		respondWithError(w, fmt.Sprintf("Box %d not found", id), http.StatusNotFound)
		return
	}

	var fields BoxFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondWithError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	col.SelectOnly(box.ID(id))
	b, err := fields.apply(col)
	if err != nil {
		respondWithEditError(w, err)
		return
	}
	respondWithJSON(w, EditResponse{
		Page:  session.listing(page),
		Boxes: []BoxRecord{newBoxRecord(col.IndexOf(b.ID()), b)},
	}, http.StatusOK)
}

func selectedRecords(col *box.Collection) []BoxRecord {
	selected := col.Selected()
	records := make([]BoxRecord, 0, len(selected))
	for _, b := range selected {
		records = append(records, newBoxRecord(col.IndexOf(b.ID()), b))
	}
	return records
}

func respondWithEditError(w http.ResponseWriter, err error) {
	var selErr *box.SelectionError
	if errors.As(err, &selErr) {
		respondWithError(w, selErr.Error(), http.StatusUnprocessableEntity)
		return
	}
	if errors.Is(err, box.ErrInvalidRect) || errors.Is(err, errNoFields) {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondWithError(w, err.Error(), http.StatusInternalServerError)
}

func respondWithJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}

func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	respondWithJSON(w, map[string]string{"error": message}, statusCode)
}
