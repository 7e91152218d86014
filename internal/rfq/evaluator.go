package rfq

import "github.com/Checker-Finance/rfq-router/pkg/model"

// Best selects the winning quote: the strictly highest premium, with the
// earliest-received quote (insertion order) winning ties. Returns nil when
// quotes is empty.
//
// The strict > comparison while scanning in insertion order is what makes the
// tie-break deterministic: a later quote at the same premium never displaces
// an earlier one.
func Best(quotes []model.Quote) *model.Quote {
	var best *model.Quote
	for i := range quotes {
		if best == nil || quotes[i].Premium > best.Premium {
			best = &quotes[i]
		}
	}
	return best
}
