package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (d Dependencies) listSubmissions(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	subs, err := d.submissionService().ListSubmissions(r.Context(), formID, limit, offset)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"submissions": subs})
}

func (d Dependencies) getSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := d.submissionService().GetSubmission(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Submission not found", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sub)
}

func (d Dependencies) listAttachments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	atts, err := d.attachmentService().ListAttachments(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"attachments": atts})
}

func (d Dependencies) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	url, err := d.attachmentService().DownloadURL(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Attachment not found", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}
