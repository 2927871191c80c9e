package workflow

import (
	"formflow/internal/step"
)

// Plan identifies a subscription tier.
type Plan string

const (
	PlanFree         Plan = "free"
	PlanProfessional Plan = "professional"
	PlanBusiness     Plan = "business"
)

// DenyReason is a structured code explaining a gate denial.
type DenyReason string

const (
	DenyPlanUpgradeRequired  DenyReason = "plan-upgrade-required"
	DenyPaymentNotConfigured DenyReason = "payment-not-configured"
	DenyDuplicateTerminal    DenyReason = "duplicate-terminal"
	DenyDuplicateStepID      DenyReason = "duplicate-step-id"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// GateContext carries external readiness flags the gate depends on.
type GateContext struct {
	PaymentConfigured bool
	// Steps the candidate would join; used for the duplicate-terminal rule.
	Existing []step.Step
}

// advancedTypes require a paid plan.
var advancedTypes = map[step.Type]bool{
	step.TypeFile:           true,
	step.TypeMultipleChoice: true,
}

// CanInsert decides whether a step of the given type may be added. The
// same function runs in the editor and again server-side before a
// definition is persisted; the editor outcome is advisory only.
func CanInsert(t step.Type, plan Plan, ctx GateContext) Decision {
	if advancedTypes[t] && plan == PlanFree {
		return deny(DenyPlanUpgradeRequired)
	}
	if t == step.TypePayment && !ctx.PaymentConfigured {
		return deny(DenyPaymentNotConfigured)
	}
	if t == step.TypeExternalBrowser {
		for _, s := range ctx.Existing {
			if s.Type == step.TypeExternalBrowser {
				return deny(DenyDuplicateTerminal)
			}
		}
	}
	return allow()
}
