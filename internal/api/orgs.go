package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

type CreateOrgRequest struct {
	Name string `json:"name"`
	Plan string `json:"plan,omitempty"`
}

func (d Dependencies) createOrg(w http.ResponseWriter, r *http.Request) {
	var req CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "name required", d.Log)
		return
	}
	if req.Plan == "" {
		req.Plan = "free"
	}

	org, err := d.DB.Queries.CreateOrg(r.Context(), ulid.Make().String(), req.Name, req.Plan)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "create_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"orgId": org.ID,
		"name":  org.Name,
		"plan":  org.Plan,
	})
}

func (d Dependencies) getOrg(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	org, err := d.DB.Queries.GetOrgByID(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Org not found", d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":                org.ID,
		"name":              org.Name,
		"plan":              org.Plan,
		"paymentConfigured": org.PaymentConfigured,
	})
}

func (d Dependencies) setOrgPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Configured bool `json:"configured"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	if err := d.DB.Queries.SetOrgPaymentConfigured(r.Context(), id, body.Configured); err != nil {
		WriteError(w, http.StatusInternalServerError, "update_failed", err.Error(), d.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"orgId":             id,
		"paymentConfigured": body.Configured,
	})
}
