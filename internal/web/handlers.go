package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/studiolegale/fascicolo/internal/compose"
	"github.com/studiolegale/fascicolo/internal/extract"
	"github.com/studiolegale/fascicolo/internal/llm"
	"github.com/studiolegale/fascicolo/internal/pipeline"
	"github.com/studiolegale/fascicolo/internal/pricing"
	"github.com/studiolegale/fascicolo/internal/repository"
)

type Handlers struct {
	store     *repository.Store
	orch      *pipeline.Orchestrator
	extractor *extract.Extractor
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*pipeline.Session
}

// session returns the open session for the case, opening one from the
// store on first touch. Session state survives until an explicit close.
func (h *Handlers) session(r *http.Request, caseID uuid.UUID) (*pipeline.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sess, ok := h.sessions[caseID.String()]; ok {
		return sess, nil
	}
	c := h.store.GetCase(r.Context(), caseID)
	if c == nil {
		return nil, fmt.Errorf("case %s not found", caseID)
	}
	sess := pipeline.NewSession(c)
	h.sessions[caseID.String()] = sess
	return sess, nil
}

func (h *Handlers) caseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid case id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handlers) HandleListCases(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	cases := h.store.ListCases(r.Context(), userID)
	if cases == nil {
		cases = []repository.Case{}
	}
	writeJSON(w, http.StatusOK, cases)
}

func (h *Handlers) HandleCreateCase(w http.ResponseWriter, r *http.Request) {
	var in repository.Case
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if in.UserID == uuid.Nil || in.ReferenceName == "" {
		writeError(w, http.StatusBadRequest, "user_id and reference_name are required")
		return
	}
	c := h.store.CreateCase(r.Context(), in)
	if c == nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handlers) HandleUpdateCase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var in struct {
		ReferenceName    *string `json:"reference_name"`
		ClientName       *string `json:"client_name"`
		CounterpartyName *string `json:"counterparty_name"`
		TechnicalNotes   *string `json:"technical_notes"`
		Aggressiveness   *int    `json:"aggressiveness"`
		State            *string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	h.store.UpdateCase(r.Context(), id, repository.CaseUpdate{
		ReferenceName:    in.ReferenceName,
		ClientName:       in.ClientName,
		CounterpartyName: in.CounterpartyName,
		TechnicalNotes:   in.TechnicalNotes,
		Aggressiveness:   in.Aggressiveness,
		State:            in.State,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleDeleteCase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	requester, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	isAdmin := false
	if p := h.store.GetUserProfile(r.Context(), requester); p != nil {
		isAdmin = p.Role == "admin"
	}
	h.store.DeleteCase(r.Context(), id, requester, isAdmin)
	h.dropSession(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleCloseCase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	h.dropSession(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) dropSession(id uuid.UUID) {
	h.mu.Lock()
	delete(h.sessions, id.String())
	h.mu.Unlock()
}

func (h *Handlers) HandleUploads(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	sess, err := h.session(r, id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	var uploads []extract.Upload
	for _, files := range r.MultipartForm.File {
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "cannot open upload "+fh.Filename)
				return
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "cannot read upload "+fh.Filename)
				return
			}
			uploads = append(uploads, extract.Upload{
				Filename: fh.Filename,
				MIME:     fh.Header.Get("Content-Type"),
				Data:     data,
			})
		}
	}
	frags, full := h.extractor.ExtractAll(r.Context(), uploads)
	sess.AttachUploads(frags, full)
	writeJSON(w, http.StatusOK, map[string]int{"fragments": len(frags)})
}

func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	sess, err := h.session(r, id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var in struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	payload := h.orch.ChatTurn(r.Context(), sess, in.Message)
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handlers) HandleQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	sess, err := h.session(r, id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	kind := r.URL.Query().Get("kind")
	docCount, _ := strconv.Atoi(r.URL.Query().Get("docs"))
	row := h.store.GetPriceRow(r.Context(), kind)
	quote := pricing.Quote(row, len(sess.FullText), docCount)
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "quote": quote, "advisory": true})
}

func (h *Handlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	sess, err := h.session(r, id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	var in struct {
		Documents []pipeline.DocRequest `json:"documents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || len(in.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "documents are required")
		return
	}

	docs := h.orch.GenerateAll(r.Context(), sess, in.Documents)
	rendered := make([]compose.RenderedDoc, 0, len(docs)+1)
	for _, d := range docs {
		rendered = append(rendered, compose.RenderedDoc{
			Kind:    d.Kind,
			Title:   d.Payload.Title,
			Content: d.Payload.Content,
		})
	}

	// the transcript itself ships as one more archive entry
	transcript := pipeline.TranscriptMarkdown(sess)
	rendered = append(rendered, compose.RenderedDoc{
		Kind:    "Trascrizione",
		Title:   "Trascrizione colloquio",
		Content: transcript,
	})
	h.store.RecordTransaction(r.Context(), id, "Trascrizione",
		"Trascrizione colloquio", transcript, repository.OriginChatTranscript,
		h.orch.Model(), llm.Usage{}, 1)

	archive, err := compose.BuildArchive(rendered, sess.Sanitizer, h.logger)
	if err != nil {
		h.logger.Error("web.generate.archive_failed", "case_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "archive build failed")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="fascicolo.zip"`)
	_, _ = w.Write(archive)
}

func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	c := h.store.GetCase(r.Context(), id)
	if c == nil {
		writeError(w, http.StatusNotFound, "case not found")
		return
	}
	data, err := compose.ExportBillingXLSX(c, h.logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="documenti.xlsx"`)
	_, _ = w.Write(data)
}

func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid snapshot index")
		return
	}
	c := h.store.GetCase(r.Context(), id)
	if c == nil {
		writeError(w, http.StatusNotFound, "case not found")
		return
	}
	if index >= len(c.GeneratedDocs) {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(c.GeneratedDocs[index].Body), &buf); err != nil {
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
