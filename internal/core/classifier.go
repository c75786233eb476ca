package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Policy constants for the eligibility rules. The keyword lists and fee
// values below are the policy itself, not tuning knobs: changing them
// changes what customers are entitled to.
const (
	preferenceWindowDays    = 30
	apparelWarrantyDays     = 90
	footwearWarrantyDays    = 180
	restockingFeeRate       = "0.15"
	returnShippingFeeAmount = "8.00"
	highValueUnitPrice      = "500"
	bulkQtyThreshold        = 5
)

var preferenceKeywords = []string{
	"doesn't fit", "does not fit", "changed mind", "changed my mind",
	"wrong size", "buyer remorse", "color looked",
}

var shippingKeywords = []string{
	"lost", "not arrived", "missing", "label created", "in transit",
	"delivered but missing",
}

var warrantyKeywords = []string{
	"warranty", "defect", "manufacturing", "quality issue", "quality",
	"fading", "color fades", "colour fades", "color faded", "patch",
	"hole", "tear", "ripped", "rip", "stain", "frayed", "stitching",
	"pilling", "seam", "stitch", "zipper", "broken", "hardware",
}

var vendorErrorKeywords = []string{
	"wrong item", "arrived damaged", "damaged on arrival",
	"item arrived damaged",
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Classify derives intent flags from the stated reason plus the free-text
// message. Multiple flags may be set simultaneously; Decide resolves
// precedence.
func Classify(reason, message string) Intent {
	text := strings.ToLower(reason + " " + message)
	return Intent{
		IsPreference:    containsAny(text, preferenceKeywords),
		IsShippingIssue: containsAny(text, shippingKeywords),
		IsWarrantyIssue: containsAny(text, warrantyKeywords),
		IsVendorError:   containsAny(text, vendorErrorKeywords),
	}
}

// DecideInput carries the customer-supplied facts alongside the order.
type DecideInput struct {
	Reason           string
	Message          string
	WantsStoreCredit bool
	PhotosProvided   bool
}

// maxWarrantyDays returns the widest warranty window across line items,
// using the per-product override when present and the category default
// otherwise (apparel 90, footwear/accessories 180).
func maxWarrantyDays(items []LineItem) int {
	max := 0
	for _, it := range items {
		if it.Product == nil {
			continue
		}
		days := 0
		switch {
		case it.Product.WarrantyDays != nil:
			days = *it.Product.WarrantyDays
		case it.Product.Category == CategoryApparel:
			days = apparelWarrantyDays
		case it.Product.Category == CategoryFootwearAccessories:
			days = footwearWarrantyDays
		}
		if days > max {
			max = days
		}
	}
	return max
}

func daysBetween(a, b time.Time) int {
	return int(a.UTC().Sub(b.UTC()).Hours() / 24)
}

func baseDecision(currency string) Decision {
	return Decision{
		Eligible:       false,
		ResolutionType: ResolutionManualReview,
		Currency:       currency,
		Fees:           []FeeLine{},
	}
}

// Decide evaluates the eligibility rules over an enriched order and the
// classified intent, in strict priority order (first match wins):
//
//  1. non-returnable guard for preference returns
//  2. shipping issues (branch on tracking status)
//  3. preference return within the 30-day window
//  4. warranty/quality issues and vendor errors
//  5. fallback to manual review
//
// It is a total function: every input yields a Decision, with unknown
// inputs falling through to manual review plus escalation. now is
// injected so callers and tests control the clock.
func Decide(order *Order, in DecideInput, now time.Time) (Decision, bool) {
	currency := order.Currency
	if currency == "" {
		currency = "USD"
	}
	decision := baseDecision(currency)

	intent := Classify(in.Reason, in.Message)

	anyFinalSale := false
	anyGiftCard := false
	anyCustom := false
	for _, it := range order.Items {
		if it.Product == nil {
			continue
		}
		if it.Product.IsFinalSale {
			anyFinalSale = true
		}
		if it.Product.Category == CategoryGiftCard {
			anyGiftCard = true
		}
		if it.Product.Category == CategoryCustomPersonalized {
			anyCustom = true
		}
	}

	// 1) Non-returnable guard. Preference returns never bypass this,
	// even when other intent flags are also set.
	if intent.IsPreference && (anyFinalSale || anyGiftCard || anyCustom) {
		decision.ResolutionType = ResolutionReject
		return decision, false
	}

	// 2) Shipping issues resolve without a human.
	if intent.IsShippingIssue {
		decision.Eligible = true
		if order.TrackingStatus == TrackingDelivered {
			decision.ResolutionType = ResolutionCarrierInvestigation
		} else {
			decision.ResolutionType = ResolutionReplacement
		}
		return decision, false
	}

	// 3) Preference return within the 30-day window.
	if intent.IsPreference {
		if order.DeliveredAt == nil {
			return decision, true
		}
		if daysBetween(now, *order.DeliveredAt) > preferenceWindowDays {
			return decision, true
		}

		decision.Eligible = true
		decision.ResolutionType = ResolutionReturnForRefund
		decision.RequiresReturn = true

		method := RefundOriginalPayment
		if order.IsGift || in.WantsStoreCredit {
			method = RefundStoreCredit
		}
		decision.RefundMethod = &method

		subtotal := order.ItemSubtotal()
		fees := []FeeLine{}
		if method == RefundOriginalPayment {
			fees = append(fees, FeeLine{
				Code:        "return_shipping_fee",
				Amount:      decimal.RequireFromString(returnShippingFeeAmount),
				Currency:    currency,
				Description: "Return shipping fee (deducted from refund)",
			})
		}

		highValue := false
		bulk := false
		threshold := decimal.RequireFromString(highValueUnitPrice)
		for _, it := range order.Items {
			if it.UnitPrice.GreaterThan(threshold) {
				highValue = true
			}
			if it.Qty >= bulkQtyThreshold {
				bulk = true
			}
		}
		if highValue || bulk {
			// Restocking fee is computed on the whole item subtotal,
			// not just the qualifying line.
			rate := decimal.RequireFromString(restockingFeeRate)
			fees = append(fees, FeeLine{
				Code:        "restocking_fee",
				Amount:      subtotal.Mul(rate).Round(2),
				Currency:    currency,
				Description: "Restocking fee (15%)",
			})
		}
		decision.Fees = fees

		feeTotal := decimal.Zero
		for _, f := range fees {
			feeTotal = feeTotal.Add(f.Amount)
		}
		estimate := subtotal.Sub(feeTotal).Round(2)
		if estimate.IsNegative() {
			estimate = decimal.Zero.Round(2)
		}
		decision.RefundEstimate = &estimate

		deadline := order.DeliveredAt.AddDate(0, 0, preferenceWindowDays)
		decision.Deadline = &deadline
		return decision, false
	}

	// 4) Warranty/quality issues and vendor errors always fail safe to a
	// human: out-of-window claims go to review, never silent rejection.
	if intent.IsWarrantyIssue || intent.IsVendorError {
		if order.DeliveredAt != nil {
			if window := maxWarrantyDays(order.Items); window > 0 {
				if daysBetween(now, *order.DeliveredAt) > window {
					return decision, true
				}
			}
		}

		if !in.PhotosProvided {
			decision.Eligible = true
			decision.ResolutionType = ResolutionWarrantyClaimPending
			decision.RequiresPhotos = true
			return decision, true
		}

		// Photos provided: a human still approves or denies.
		decision.Eligible = true
		return decision, true
	}

	// 5) Nothing matched.
	return decision, true
}
