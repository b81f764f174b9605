package status

import "strings"

// Milestone is one step of the fixed eight-step shipment progress bar.
type Milestone struct {
	Name  string
	codes []string
}

// milestones in lifecycle order. Index 0 (Booked) doubles as the floor for
// shipments whose events match no milestone at all.
var milestones = []Milestone{
	{Name: "Booked", codes: []string{"BOOKED"}},
	{Name: "Ready", codes: []string{"READY", "CARGO_READY"}},
	{Name: "Docs Received", codes: []string{"DOCS_RECEIVED"}},
	{Name: "Cargo Received", codes: []string{"CARGO_RECEIVED"}},
	{Name: "Departed", codes: []string{"ATD", "DEPARTED"}},
	{Name: "Discharged", codes: []string{"DISCHARGED", "DIS"}},
	{Name: "Customs Released", codes: []string{"CUSTOMS_RELEASED", "CUS", "CLEARED"}},
	{Name: "Delivered", codes: []string{"DELIVERED", "DEL"}},
}

// MilestoneNames returns the ordered milestone labels for progress display.
func MilestoneNames() []string {
	names := make([]string, len(milestones))
	for i, m := range milestones {
		names[i] = m.Name
	}
	return names
}

// MilestoneIndex returns the index of the furthest milestone reached by any
// of the given event codes. Furthest progress wins, not the most recent
// event: an out-of-order or duplicate earlier event can never regress the
// index. Codes matching no milestone leave the index at 0 (Booked).
func MilestoneIndex(eventCodes []string) int {
	present := make(map[string]bool, len(eventCodes))
	for _, code := range eventCodes {
		present[strings.ToUpper(strings.TrimSpace(code))] = true
	}

	for i := len(milestones) - 1; i >= 0; i-- {
		for _, code := range milestones[i].codes {
			if present[code] {
				return i
			}
		}
	}
	return 0
}
