package finances

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PlanTypeKey is the hankosign scope under which payment plans sign.
const PlanTypeKey = "finances.paymentplan"

var (
	ibanShape = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{10,30}$`)
	bicShape  = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
	ccShape   = regexp.MustCompile(`^\d{3}$`)
)

// PaymentPlan is a recurring payment agreement for a role assignment within
// one fiscal year. Status is a cache recomputed from the signature snapshot.
type PaymentPlan struct {
	ID           string
	PlanCode     string
	PersonRoleID string
	FiscalYearID string

	CostCenter string
	PayeeName  string
	IBAN       string
	BIC        string
	Reference  string
	Address    string

	PayStart time.Time
	PayEnd   time.Time

	// Amounts in cents.
	MonthlyAmount int64
	TotalOverride *int64

	Status     string
	StatusNote string
	Notes      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TypeKey implements hankosign.Target.
func (p *PaymentPlan) TypeKey() string { return PlanTypeKey }

// PrimaryKey implements hankosign.Target.
func (p *PaymentPlan) PrimaryKey() string { return p.ID }

// NextPlanCode computes the per-year serial reference, e.g. WJ24_25-00001.
// maxExisting is the highest serial already issued for the year.
func NextPlanCode(fiscalYearCode string, maxExisting int) string {
	return fmt.Sprintf("%s-%05d", fiscalYearCode, maxExisting+1)
}

// Validate checks shapes and checksum of the banking fields and the window.
// Fields required when leaving draft are only enforced by ValidateForSubmit.
func (p *PaymentPlan) Validate(fy *FiscalYear) error {
	if p.FiscalYearID == "" {
		return fmt.Errorf("%w: fiscal year is required", ErrInvalidInput)
	}
	if p.PersonRoleID == "" {
		return fmt.Errorf("%w: assignment is required", ErrInvalidInput)
	}
	if p.MonthlyAmount < 0 {
		return fmt.Errorf("%w: monthly amount must be non-negative", ErrInvalidInput)
	}
	if p.CostCenter != "" && !ccShape.MatchString(p.CostCenter) {
		return fmt.Errorf("%w: cost center must be a 3-digit number", ErrInvalidInput)
	}
	if p.IBAN != "" {
		iban := strings.ToUpper(strings.ReplaceAll(p.IBAN, " ", ""))
		if !ibanShape.MatchString(iban) {
			return fmt.Errorf("%w: malformed IBAN", ErrInvalidInput)
		}
		if !ibanChecksumOK(iban) {
			return fmt.Errorf("%w: IBAN checksum failed", ErrInvalidInput)
		}
		p.IBAN = iban
	}
	if p.BIC != "" && !bicShape.MatchString(strings.ToUpper(p.BIC)) {
		return fmt.Errorf("%w: malformed BIC", ErrInvalidInput)
	}
	if fy != nil {
		if !p.PayStart.IsZero() && p.PayStart.After(fy.End) {
			return fmt.Errorf("%w: pay start is after the fiscal year end", ErrInvalidInput)
		}
		if !p.PayEnd.IsZero() && p.PayEnd.Before(fy.Start) {
			return fmt.Errorf("%w: pay end is before the fiscal year start", ErrInvalidInput)
		}
		start, end := p.ResolvedWindow(fy)
		if start.After(end) {
			return fmt.Errorf("%w: pay window is empty or inverted", ErrInvalidInput)
		}
	}
	return nil
}

// ValidateForSubmit enforces the fields a plan must carry to leave draft.
func (p *PaymentPlan) ValidateForSubmit(fy *FiscalYear) error {
	if err := p.Validate(fy); err != nil {
		return err
	}
	missing := []string{}
	for _, f := range []struct {
		name, val string
	}{
		{"payee name", p.PayeeName},
		{"address", p.Address},
		{"reference", p.Reference},
		{"cost center", p.CostCenter},
		{"iban", p.IBAN},
		{"bic", p.BIC},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: required when leaving draft: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// ResolvedWindow is the window the plan covers, clamped to the fiscal year.
// An end date on the 1st is treated as the previous day so month spans read
// naturally (Apr 1 to May 1 equals Apr 1 to Apr 30).
func (p *PaymentPlan) ResolvedWindow(fy *FiscalYear) (time.Time, time.Time) {
	start, end := p.PayStart, p.PayEnd
	if start.IsZero() {
		start = fy.Start
	}
	if end.IsZero() {
		end = fy.End
	} else if end.Day() == 1 {
		end = end.AddDate(0, 0, -1)
	}
	if start.Before(fy.Start) {
		start = fy.Start
	}
	if end.After(fy.End) {
		end = fy.End
	}
	return start, end
}

// MonthShare is one month's slice of the pay window. Proration uses a
// 30-day accounting month regardless of the real month length.
type MonthShare struct {
	Year      int
	Month     time.Month
	Days      int
	MonthDays int
}

// Fraction is Days over the 30-day accounting month.
func (m MonthShare) Fraction() float64 { return float64(m.Days) / 30 }

// MonthsBreakdown splits the resolved window into per-month covered days.
func (p *PaymentPlan) MonthsBreakdown(fy *FiscalYear) []MonthShare {
	start, end := p.ResolvedWindow(fy)
	if start.After(end) {
		return nil
	}
	var out []MonthShare
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(last) {
		mEnd := cursor.AddDate(0, 1, -1)
		segStart, segEnd := start, end
		if segStart.Before(cursor) {
			segStart = cursor
		}
		if segEnd.After(mEnd) {
			segEnd = mEnd
		}
		if !segStart.After(segEnd) {
			out = append(out, MonthShare{
				Year:      cursor.Year(),
				Month:     cursor.Month(),
				Days:      int(segEnd.Sub(segStart).Hours()/24) + 1,
				MonthDays: mEnd.Day(),
			})
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return out
}

// RecommendedTotal is the Richtwert in cents: monthly amount times the sum
// of month fractions, rounded half up.
func (p *PaymentPlan) RecommendedTotal(fy *FiscalYear) int64 {
	days := 0
	for _, m := range p.MonthsBreakdown(fy) {
		days += m.Days
	}
	num := p.MonthlyAmount * int64(days)
	return (num + 15) / 30
}

// EffectiveTotal prefers the manual override over the recommended total.
func (p *PaymentPlan) EffectiveTotal(fy *FiscalYear) int64 {
	if p.TotalOverride != nil {
		return *p.TotalOverride
	}
	return p.RecommendedTotal(fy)
}

// MaskIBAN keeps the head and tail visible for display and logs.
func MaskIBAN(iban string) string {
	const head, tail = 6, 4
	if len(iban) <= head+tail {
		return iban
	}
	return iban[:head] + strings.Repeat("*", len(iban)-head-tail) + iban[len(iban)-tail:]
}

// ibanChecksumOK runs the ISO 13616 MOD-97 check.
func ibanChecksumOK(iban string) bool {
	if len(iban) < 4 {
		return false
	}
	s := iban[4:] + iban[:4]
	rem := 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return false
		}
	}
	return rem == 1
}
