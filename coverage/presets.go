/*
presets.go - Pre-built policy configurations

PURPOSE:
  Ready-to-use policy records for the common contract shapes. These set the
  term and wellness deadlines the standard contract uses; callers only
  supply what varies per policyholder (effective date, daily benefit).

AVAILABLE PRESETS:
  StandardHospitalizationPolicy: 12-month term, wellness visit due within
  6 months and confirmed within 7.

CUSTOMIZATION:
  The returned record is a plain value; adjust fields before use if a
  rider changes a deadline. Validate() still applies.
*/
package coverage

import (
	"github.com/shopspring/decimal"

	"github.com/warp/coverage-engine/calendar"
)

// Standard contract terms.
const (
	StandardTermMonths                 = 12
	StandardVisitDeadlineMonths        = 6
	StandardConfirmationDeadlineMonths = 7
)

// StandardHospitalizationPolicy returns the standard fixed-term
// hospitalization policy: one-year term, wellness visit within six months,
// confirmation within seven.
func StandardHospitalizationPolicy(id PolicyID, name string, effective calendar.Date, dailyBenefit decimal.Decimal) Policy {
	return Policy{
		ID:                                 id,
		Name:                               name,
		EffectiveDate:                      effective,
		TermMonths:                         StandardTermMonths,
		WellnessVisitDeadlineMonths:        StandardVisitDeadlineMonths,
		WellnessConfirmationDeadlineMonths: StandardConfirmationDeadlineMonths,
		DailyBenefit:                       dailyBenefit,
	}
}
