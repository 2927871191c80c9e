package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"formflow/internal/auth"
	"formflow/internal/service"
	"formflow/internal/workflow"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CreateFormRequest struct {
	OrgID      string            `json:"orgId,omitempty"`
	Name       string            `json:"name"`
	Slug       string            `json:"slug"`
	Definition workflow.Workflow `json:"definition,omitempty"`
}

func (d Dependencies) createForm(w http.ResponseWriter, r *http.Request) {
	var req CreateFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	orgID := req.OrgID
	if orgID == "" {
		orgID = auth.GetOrgID(r.Context())
	}
	if orgID == "" || req.Name == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "orgId and name required", d.Log)
		return
	}

	form, err := d.formService().CreateForm(r.Context(), service.CreateFormInput{
		OrgID:      orgID,
		Name:       req.Name,
		Slug:       req.Slug,
		Definition: req.Definition,
	})
	if err != nil {
		writeFormError(w, err, d)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(form)
}

func (d Dependencies) listForms(w http.ResponseWriter, r *http.Request) {
	orgID := auth.GetOrgID(r.Context())
	if orgID == "" {
		orgID = r.URL.Query().Get("orgId")
	}
	if orgID == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "orgId required", d.Log)
		return
	}

	forms, err := d.formService().ListForms(r.Context(), orgID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"forms": forms})
}

func (d Dependencies) getForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	form, err := d.formService().GetForm(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Form not found", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(form)
}

// getDefinition serves the normalized definition: what a visitor client
// actually walks, not the raw stored document.
func (d Dependencies) getDefinition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	wf, err := d.formService().GetDefinition(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Form not found", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wf)
}

func (d Dependencies) saveDefinition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var wf workflow.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	if err := d.formService().SaveDefinition(r.Context(), id, wf); err != nil {
		writeFormError(w, err, d)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "saved"})
}

func (d Dependencies) publishForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Published bool `json:"published"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	if err := d.formService().SetPublished(r.Context(), id, body.Published); err != nil {
		WriteError(w, http.StatusInternalServerError, "publish_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"formId": id, "published": body.Published})
}

func writeFormError(w http.ResponseWriter, err error, d Dependencies) {
	var defErr *service.DefinitionError
	if errors.As(err, &defErr) {
		d.Log.Warn("Definition rejected", zap.String("reason", string(defErr.Reason)))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":   "step_rejected",
			"service": defErr.Service,
			"stepId":  defErr.StepID,
			"reason":  defErr.Reason,
		})
		return
	}
	WriteError(w, http.StatusInternalServerError, "save_failed", err.Error(), d.Log)
}
