// Package status derives a shipment's canonical lifecycle state from its
// raw carrier data. Derivation is pure and total: every input maps to
// exactly one of the five canonical statuses, and evidence from the latest
// event code always takes precedence over free-text status.
package status

import "strings"

// Status is one of the five canonical lifecycle states.
type Status string

const (
	PreDeparture    Status = "Pre-Departure"
	InTransit       Status = "In Transit"
	Discharged      Status = "Discharged"
	CustomsReleased Status = "Customs Released"
	Delivered       Status = "Delivered"
)

// codeRule matches a normalized (uppercased, trimmed) event code.
type codeRule struct {
	contains []string
	equals   []string
	status   Status
}

// Rules are checked in order; the first match wins. Order encodes
// precedence, not chronology: a DELIVERED code resolves Delivered even if
// the code also mentions an earlier stage.
var codeRules = []codeRule{
	{contains: []string{"DELIVERED"}, equals: []string{"DEL"}, status: Delivered},
	{contains: []string{"CUSTOMS_RELEASED", "CLEARED"}, equals: []string{"CUS"}, status: CustomsReleased},
	{contains: []string{"DISCHARGED"}, equals: []string{"DIS"}, status: Discharged},
	{contains: []string{"ATD", "DEPARTED"}, status: InTransit},
	{contains: []string{"BOOKED", "READY", "DOCS_RECEIVED", "CARGO_RECEIVED"}, status: PreDeparture},
}

// Derive maps the latest event code (nil when the shipment has no events)
// and the raw free-text status to a canonical Status. Event-code evidence
// strictly dominates: the raw text is only consulted when no code rule
// matches. Unrecognized input defaults to InTransit.
func Derive(latestEventCode *string, rawStatus string) Status {
	if latestEventCode != nil {
		code := strings.ToUpper(strings.TrimSpace(*latestEventCode))
		for _, rule := range codeRules {
			if rule.matches(code) {
				return rule.status
			}
		}
	}
	return deriveFromText(rawStatus)
}

func (r codeRule) matches(code string) bool {
	if code == "" {
		return false
	}
	for _, sub := range r.contains {
		if strings.Contains(code, sub) {
			return true
		}
	}
	for _, eq := range r.equals {
		if code == eq {
			return true
		}
	}
	return false
}

// deriveFromText applies substring rules to the lowercased, trimmed raw
// status text, in the same relative order as the code rules.
func deriveFromText(rawStatus string) Status {
	text := strings.ToLower(strings.TrimSpace(rawStatus))
	switch {
	case strings.Contains(text, "deliver"):
		return Delivered
	case strings.Contains(text, "custom") && (strings.Contains(text, "release") || strings.Contains(text, "cleared")):
		return CustomsReleased
	case strings.Contains(text, "discharg"):
		return Discharged
	case strings.Contains(text, "transit"):
		return InTransit
	case strings.Contains(text, "pre") || strings.Contains(text, "booked") || strings.Contains(text, "ready"):
		return PreDeparture
	default:
		return InTransit
	}
}
