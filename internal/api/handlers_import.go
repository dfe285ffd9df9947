package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/clusterdesk/internal/corpus"
	"github.com/dgallion1/clusterdesk/internal/textract"
)

// handleImport stores one uploaded document in an existing docket.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	docketID := r.FormValue("docket_id")
	if docketID == "" {
		jsonError(w, "docket_id is required", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil {
		jsonError(w, "id must be an integer document id", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !textract.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	ctx := r.Context()
	if _, err := s.docs.Docket(ctx, docketID); err != nil {
		s.writeError(w, r, err)
		return
	}

	text, err := textract.Extract(filename, bytes.NewReader(data))
	if err != nil {
		jsonError(w, "failed to extract text: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	doc := &corpus.Document{
		ID:       id,
		DocketID: docketID,
		Text:     text,
		Metadata: corpus.DocMeta{
			Title:                 r.FormValue("title"),
			DocumentID:            r.FormValue("document_id"),
			SubmitterName:         r.FormValue("submitter_name"),
			SubmitterOrganization: r.FormValue("submitter_organization"),
		},
	}
	if err := s.docs.PutDocument(ctx, doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("imported document",
		"docket", docketID,
		"document", id,
		"filename", filename,
		"chars", utf8.RuneCountInString(text),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSONBody(w, map[string]any{
		"id":        doc.ID,
		"docket_id": doc.DocketID,
		"chars":     utf8.RuneCountInString(text),
	})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
