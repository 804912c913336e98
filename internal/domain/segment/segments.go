package segment

import "slices"

// Boolean tags kept in sync with the marketing service
const (
	TagCustomer     = "customer"
	TagOnboarded    = "onboarded"
	TagCanceled     = "canceled"
	TagTrial        = "trial"
	TagTrial7       = "trial7"
	TagTrial1       = "trial1"
	TagTrial0       = "trial0"
	TagPaying       = "paying"
	TagOveruse      = "overuse"
	TagIssueSegment = "issueSegment"
)

// Universe lists every boolean tag in output order
var Universe = []string{
	TagCustomer,
	TagOnboarded,
	TagCanceled,
	TagTrial,
	TagTrial7,
	TagTrial1,
	TagTrial0,
	TagPaying,
	TagOveruse,
	TagIssueSegment,
}

// Segments is the reconciliation for one organization: tags to set and boolean tags to clear.
// Every boolean tag of Universe is in exactly one of the two lists.
type Segments struct {
	Segments       []string `json:"segments"`
	DeleteSegments []string `json:"deleteSegments"`
}

// Flags returns the boolean tags the state sets
func (s AccountLifecycleState) Flags() map[string]bool {
	on := map[string]bool{
		TagCustomer: true,
		TagCanceled: s.canceled,
	}
	if !s.Onboarded() {
		return on
	}
	on[TagOnboarded] = true
	switch s.kind {
	case KindTrialEndingSoon:
		on[TagTrial], on[TagTrial7] = true, true
	case KindTrialLastDay:
		on[TagTrial], on[TagTrial1] = true, true
	case KindTrialExhausted:
		on[TagTrial], on[TagTrial0] = true, true
	case KindOveruse:
		on[TagOveruse], on[TagPaying] = true, true
	case KindPaying:
		on[TagPaying] = true
	case KindInconsistent:
		on[TagIssueSegment] = true
	}
	return on
}

// Project turns the state into its tag reconciliation
func (s AccountLifecycleState) Project() Segments {
	on := s.Flags()
	out := Segments{
		Segments:       make([]string, 0, len(Universe)+2),
		DeleteSegments: make([]string, 0, len(Universe)),
	}
	for _, tag := range Universe {
		if on[tag] {
			out.Segments = append(out.Segments, tag)
		} else {
			out.DeleteSegments = append(out.DeleteSegments, tag)
		}
	}
	if s.planName != "" {
		out.Segments = append(out.Segments, "plan:"+s.planName)
	}
	if s.payingMonthly != "" {
		out.Segments = append(out.Segments, "payingMonthly:"+s.payingMonthly)
	}
	return out
}

// Compute classifies in and projects it onto tags
func Compute(in LifecycleInput) Segments {
	return Classify(in).Project()
}

// Has reports whether tag is in the set list
func (s Segments) Has(tag string) bool {
	return slices.Contains(s.Segments, tag)
}

// Clears reports whether tag is in the delete list
func (s Segments) Clears(tag string) bool {
	return slices.Contains(s.DeleteSegments, tag)
}
