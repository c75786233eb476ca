package core

import "time"

// CaseStatus tracks where an escalated case sits in the review flow.
type CaseStatus string

const (
	CaseReadyForHumanReview CaseStatus = "ready_for_human_review"
	CaseNeedsCustomerPhotos CaseStatus = "needs_customer_photos"
	CaseClosed              CaseStatus = "closed"
)

// PolicyCitation is a stored excerpt of the policy text that grounded the
// AI decision, kept on the case for auditability.
type PolicyCitation struct {
	Source   string  `json:"source"`
	Excerpt  string  `json:"excerpt"`
	PolicyID *string `json:"policy_id"`
}

// Case is a human-reviewable record opened when the pipeline escalates or
// needs customer photos. The AI outputs (decision, audit, citations,
// order facts) are persisted verbatim from the pipeline result.
type Case struct {
	ID               string           `json:"id"`
	OrderID          string           `json:"order_id"`
	Reason           string           `json:"reason"`
	CustomerMessage  string           `json:"customer_message"`
	WantsStoreCredit bool             `json:"wants_store_credit"`
	PhotosRequired   bool             `json:"photos_required"`
	Status           CaseStatus       `json:"status"`
	AIDecision       Decision         `json:"ai_decision"`
	AIAudit          map[string]any   `json:"ai_audit"`
	PolicyCitations  []PolicyCitation `json:"policy_citations"`
	OrderFacts       *Order           `json:"order_facts"`
	PhotoURLs        []string         `json:"photo_urls"`
	HumanDecision    *HumanDecision   `json:"human_decision,omitempty"`
	HumanNotes       *string          `json:"human_notes,omitempty"`
	FinalReply       *string          `json:"final_reply,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
