// Package segment classifies an organization into its account lifecycle bucket and
// projects that bucket onto the marketing tags kept in sync for the organization.
package segment

// LifecycleInput is the billing and usage state a lifecycle classification depends on
type LifecycleInput struct {
	Onboarded     bool
	Canceled      bool
	Paying        bool
	TrialDaysLeft int
	CanUseMore    bool
	// PlanName is the explicit plan of the organization; empty when none is known.
	PlanName string
	// PayingMonthly is "true", "false" or empty when the interval is unknown.
	PayingMonthly string
}

// StateKind names the variant of an AccountLifecycleState
type StateKind int

const (
	KindNotOnboarded StateKind = iota + 1
	KindTrialEndingSoon
	KindTrialLastDay
	KindTrialExhausted
	KindOveruse
	KindPaying
	KindInconsistent
)

// String returns the variant name used in logs
func (k StateKind) String() string {
	switch k {
	case KindNotOnboarded:
		return "not_onboarded"
	case KindTrialEndingSoon:
		return "trial_ending_soon"
	case KindTrialLastDay:
		return "trial_last_day"
	case KindTrialExhausted:
		return "trial_exhausted"
	case KindOveruse:
		return "overuse"
	case KindPaying:
		return "paying"
	case KindInconsistent:
		return "inconsistent"
	default:
		return "unknown"
	}
}

// AccountLifecycleState is the single lifecycle bucket an organization is in.
// Values are built only through Classify or the constructors below, one per bucket.
type AccountLifecycleState struct {
	kind          StateKind
	canceled      bool
	planName      string
	payingMonthly string
}

// NotOnboarded is an organization without a shipped bundle yet
func NotOnboarded(canceled bool) AccountLifecycleState {
	return AccountLifecycleState{kind: KindNotOnboarded, canceled: canceled}
}

// TrialEndingSoon is an unpaid organization with two to seven trial days left
func TrialEndingSoon(canceled bool, plan, monthly string) AccountLifecycleState {
	return AccountLifecycleState{kind: KindTrialEndingSoon, canceled: canceled, planName: plan, payingMonthly: monthly}
}

// TrialLastDay is an unpaid organization on its final trial day
func TrialLastDay(canceled bool, plan, monthly string) AccountLifecycleState {
	return AccountLifecycleState{kind: KindTrialLastDay, canceled: canceled, planName: plan, payingMonthly: monthly}
}

// TrialExhausted is an unpaid organization with no room left in its plan
func TrialExhausted(canceled bool, plan, monthly string) AccountLifecycleState {
	return AccountLifecycleState{kind: KindTrialExhausted, canceled: canceled, planName: plan, payingMonthly: monthly}
}

// Overuse is a paying organization above its plan
func Overuse(canceled bool, plan, monthly string) AccountLifecycleState {
	return AccountLifecycleState{kind: KindOveruse, canceled: canceled, planName: plan, payingMonthly: monthly}
}

// Paying is a paying organization within its plan
func Paying(canceled bool, plan, monthly string) AccountLifecycleState {
	return AccountLifecycleState{kind: KindPaying, canceled: canceled, planName: plan, payingMonthly: monthly}
}

// Inconsistent is billing state that matches no other bucket
func Inconsistent(canceled bool, plan, monthly string) AccountLifecycleState {
	return AccountLifecycleState{kind: KindInconsistent, canceled: canceled, planName: plan, payingMonthly: monthly}
}

// Classify picks the lifecycle bucket of in. The first matching rule wins.
func Classify(in LifecycleInput) AccountLifecycleState {
	plan, monthly := in.PlanName, in.PayingMonthly
	switch {
	case !in.Onboarded:
		return NotOnboarded(in.Canceled)
	case !in.Paying && in.TrialDaysLeft > 1 && in.TrialDaysLeft <= 7:
		return TrialEndingSoon(in.Canceled, plan, monthly)
	case !in.Paying && in.TrialDaysLeft == 1:
		return TrialLastDay(in.Canceled, plan, monthly)
	case !in.Paying && !in.CanUseMore:
		return TrialExhausted(in.Canceled, plan, monthly)
	case in.Paying && !in.CanUseMore && plan != "":
		return Overuse(in.Canceled, plan, monthly)
	case in.Paying && in.CanUseMore && plan != "":
		return Paying(in.Canceled, plan, monthly)
	default:
		return Inconsistent(in.Canceled, plan, monthly)
	}
}

// Kind returns the bucket
func (s AccountLifecycleState) Kind() StateKind { return s.kind }

// Onboarded reports whether the organization has shipped a bundle
func (s AccountLifecycleState) Onboarded() bool { return s.kind != KindNotOnboarded }

// Canceled reports whether the subscription was canceled
func (s AccountLifecycleState) Canceled() bool { return s.canceled }

// PlanName returns the explicit plan, if any
func (s AccountLifecycleState) PlanName() string { return s.planName }

// PayingMonthly returns the billing interval flag, if any
func (s AccountLifecycleState) PayingMonthly() string { return s.payingMonthly }

// IsDiagnostic reports whether the state signals billing data that needs a look
func (s AccountLifecycleState) IsDiagnostic() bool { return s.kind == KindInconsistent }
