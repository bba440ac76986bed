// Package capacity implements the capacity tracker (C12): per-category
// nanosecond budgets that drive task-profile pressure valves up or down
// to keep frame cost within budget.
package capacity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vixengraph/rendergraph/internal/taskprofile"
)

// Tracker holds one nanosecond budget per category and, once profiles
// have reported their samples for the frame, nudges the lowest/highest
// priority profile's pressure valve to stay within it.
type Tracker struct {
	registry *taskprofile.Registry

	budgetNs          map[string]uint64
	comfortableFrames map[string]int

	underBudgetStreakThreshold int

	utilization *prometheus.GaugeVec
}

// NewTracker returns a Tracker driving valves on registry, with K
// consecutive comfortable frames required before increasing.
func NewTracker(registry *taskprofile.Registry, comfortableStreakThreshold int, registerer prometheus.Registerer) *Tracker {
	t := &Tracker{
		registry:                    registry,
		budgetNs:                    map[string]uint64{},
		comfortableFrames:           map[string]int{},
		underBudgetStreakThreshold:  comfortableStreakThreshold,
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rendergraph_capacity_utilization_ratio",
			Help: "Ratio of estimated cost to budget per capacity category.",
		}, []string{"category"}),
	}
	if registerer != nil {
		registerer.MustRegister(t.utilization)
	}
	return t
}

// SetBudget sets the nanosecond budget for category.
func (t *Tracker) SetBudget(category string, ns uint64) {
	t.budgetNs[category] = ns
}

// Adjustment records one pressure-valve move made by Evaluate.
type Adjustment struct {
	Category string
	Profile  string
	Increased bool
}

// Evaluate must run after registry.ProcessAllSamples for the frame. It
// sums estimated cost per category, compares to budget, and adjusts the
// appropriate profile's pressure valve, returning the categories it
// adjusted and in which direction.
func (t *Tracker) Evaluate() []Adjustment {
	var adjustments []Adjustment

	for category, budget := range t.budgetNs {
		profiles := t.registry.ByCategory(category)
		var total uint64
		for _, p := range profiles {
			total += p.GetEstimatedCostNs()
		}

		if budget > 0 {
			t.utilization.WithLabelValues(category).Set(float64(total) / float64(budget))
		}

		switch {
		case total > budget:
			t.comfortableFrames[category] = 0
			if name, ok := decreaseLowestPriority(profiles); ok {
				adjustments = append(adjustments, Adjustment{Category: category, Profile: name, Increased: false})
			}
		case total < budget:
			t.comfortableFrames[category]++
			if t.comfortableFrames[category] >= t.underBudgetStreakThreshold {
				t.comfortableFrames[category] = 0
				if name, ok := increaseHighestPriority(profiles); ok {
					adjustments = append(adjustments, Adjustment{Category: category, Profile: name, Increased: true})
				}
			}
		}
	}

	return adjustments
}

// decreaseLowestPriority walks profiles by ascending priority and calls
// Decrease on the first that CanDecrease, per spec §4.9.
func decreaseLowestPriority(profiles []taskprofile.Profile) (string, bool) {
	ordered := sortedAscendingPriority(profiles)
	for _, p := range ordered {
		if p.CanDecrease() {
			p.Decrease()
			return p.Name(), true
		}
	}
	return "", false
}

// increaseHighestPriority is the symmetric walk in descending priority
// order, per spec §4.9.
func increaseHighestPriority(profiles []taskprofile.Profile) (string, bool) {
	ordered := sortedDescendingPriority(profiles)
	for _, p := range ordered {
		if p.CanIncrease() {
			p.Increase()
			return p.Name(), true
		}
	}
	return "", false
}

func sortedAscendingPriority(profiles []taskprofile.Profile) []taskprofile.Profile {
	out := append([]taskprofile.Profile(nil), profiles...)
	insertionSortByPriority(out, true)
	return out
}

func sortedDescendingPriority(profiles []taskprofile.Profile) []taskprofile.Profile {
	out := append([]taskprofile.Profile(nil), profiles...)
	insertionSortByPriority(out, false)
	return out
}

func insertionSortByPriority(s []taskprofile.Profile, ascending bool) {
	for i := 1; i < len(s); i++ {
		j := i
		for j > 0 {
			less := s[j].Priority() < s[j-1].Priority()
			if !ascending {
				less = s[j].Priority() > s[j-1].Priority()
			}
			if !less {
				break
			}
			s[j], s[j-1] = s[j-1], s[j]
			j--
		}
	}
}
