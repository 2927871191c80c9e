package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"formflow/internal/storage"
)

// signFile hands out an upload destination for a file answer. When the
// step is identified, the file is checked against that step's accepted
// types and size cap before any URL is issued.
func (d Dependencies) signFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	contentType := r.URL.Query().Get("contentType")
	formID := r.URL.Query().Get("formId")
	serviceName := r.URL.Query().Get("service")
	stepID := r.URL.Query().Get("stepId")
	fileSizeStr := r.URL.Query().Get("size")

	if name == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "name parameter required", d.Log)
		return
	}

	var fileSize int64
	if fileSizeStr != "" {
		var err error
		fileSize, err = strconv.ParseInt(fileSizeStr, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_size", "Invalid file size parameter", d.Log)
			return
		}
	}

	if formID != "" && serviceName != "" && stepID != "" {
		wf, err := d.formService().GetDefinition(r.Context(), formID)
		if err != nil {
			WriteError(w, http.StatusNotFound, "form_not_found", "Form not found", d.Log)
			return
		}

		found := false
		for _, s := range wf[serviceName] {
			if s.ID != stepID {
				continue
			}
			found = true
			constraints := storage.Constraints{AcceptedTypes: s.AcceptedTypes, MaxSize: s.MaxSize}
			if err := constraints.Validate(name, contentType, fileSize); err != nil {
				WriteError(w, http.StatusBadRequest, "policy_violation", err.Error(), d.Log)
				return
			}
		}
		if !found {
			WriteError(w, http.StatusNotFound, "step_not_found", "Step not found", d.Log)
			return
		}
	}

	dest, err := d.attachmentService().RequestUploadDestination(r.Context(), name, contentType)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "url_generation_failed", "Failed to generate presigned URL", d.Log)
		return
	}

	getURL, err := d.Storage.PresignGet(r.Context(), dest.StorageID, 24*time.Hour)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "url_generation_failed", "Failed to generate presigned URL", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"putUrl":    dest.URL,
		"getUrl":    getURL,
		"storageId": dest.StorageID,
	})
}
