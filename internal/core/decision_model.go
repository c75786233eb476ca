package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResolutionType is the closed set of outcomes a Decision can recommend.
type ResolutionType string

const (
	ResolutionReject               ResolutionType = "reject"
	ResolutionManualReview         ResolutionType = "manual_review"
	ResolutionReturnForRefund      ResolutionType = "return_for_refund"
	ResolutionExchange             ResolutionType = "exchange"
	ResolutionReplacement          ResolutionType = "replacement"
	ResolutionRefundNoReturn       ResolutionType = "refund_no_return"
	ResolutionCarrierInvestigation ResolutionType = "carrier_investigation"
	ResolutionWarrantyClaimPending ResolutionType = "warranty_claim_pending"
)

// RefundMethod says where an approved refund goes.
type RefundMethod string

const (
	RefundOriginalPayment RefundMethod = "original_payment"
	RefundStoreCredit     RefundMethod = "store_credit"
)

// FeeLine is one fee deducted from a refund. Fees are never charged
// upfront.
type FeeLine struct {
	Code        string          `json:"code"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

// Decision is the structured outcome of the eligibility classifier.
// Invariants: ResolutionType == reject implies Eligible == false;
// RefundEstimate is set only for return_for_refund.
type Decision struct {
	Eligible       bool             `json:"eligible"`
	ResolutionType ResolutionType   `json:"resolution_type"`
	RefundMethod   *RefundMethod    `json:"refund_method"`
	RefundEstimate *decimal.Decimal `json:"refund_estimate"`
	Currency       string           `json:"currency"`
	RequiresPhotos bool             `json:"requires_photos"`
	RequiresReturn bool             `json:"requires_return"`
	Deadline       *time.Time       `json:"deadline"`
	Fees           []FeeLine        `json:"fees"`
}

// Intent is the set of keyword-derived flags describing why the customer
// is writing. Flags are not mutually exclusive; the classifier's
// evaluation order resolves precedence.
type Intent struct {
	IsPreference    bool `json:"is_preference"`
	IsShippingIssue bool `json:"is_shipping_issue"`
	IsWarrantyIssue bool `json:"is_warranty_issue"`
	IsVendorError   bool `json:"is_vendor_error"`
}

// HumanDecision is the reviewer's verdict on an escalated case.
// Anything other than approved/denied is treated as a request for more
// information.
type HumanDecision string

const (
	HumanApproved          HumanDecision = "approved"
	HumanDenied            HumanDecision = "denied"
	HumanMoreInfoRequested HumanDecision = "more_info_requested"
)
