package service

import (
	"context"
	"fmt"

	"formflow/internal/db"
	"formflow/internal/workflow"
)

// PlanService resolves an organization's subscription tier and payment
// readiness for the step-insertion gate.
type PlanService struct {
	queries *db.Queries
}

func NewPlanService(queries *db.Queries) *PlanService {
	return &PlanService{queries: queries}
}

func (s *PlanService) GetPlan(ctx context.Context, orgID string) (workflow.Plan, error) {
	org, err := s.queries.GetOrgByID(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("failed to get org: %w", err)
	}
	return workflow.Plan(org.Plan), nil
}

func (s *PlanService) IsPaymentConfigured(ctx context.Context, orgID string) (bool, error) {
	org, err := s.queries.GetOrgByID(ctx, orgID)
	if err != nil {
		return false, fmt.Errorf("failed to get org: %w", err)
	}
	return org.PaymentConfigured, nil
}

// Gate loads the plan and payment flag together for a gate run.
func (s *PlanService) Gate(ctx context.Context, orgID string) (workflow.Plan, bool, error) {
	org, err := s.queries.GetOrgByID(ctx, orgID)
	if err != nil {
		return "", false, fmt.Errorf("failed to get org: %w", err)
	}
	return workflow.Plan(org.Plan), org.PaymentConfigured, nil
}
