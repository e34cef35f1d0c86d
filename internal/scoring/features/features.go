// Package features turns raw applicant payloads into validated, canonically
// ordered feature records.
package features

// Attribute names as they appear on the wire.
const (
	IncomeLevel         = "income_level"
	DebtLevel           = "debt_level"
	CreditUtilization   = "credit_utilization"
	CreditHistoryLength = "credit_history_length"
	NumCreditAccounts   = "num_credit_accounts"
	NumCreditInquiries  = "num_credit_inquiries"
	Age                 = "age"
	PaymentHistory      = "payment_history"
	EmploymentStatus    = "employment_status"
	EducationLevel      = "education_level"
)

// CanonicalOrder is the positional order the scoring model expects.
var CanonicalOrder = []string{
	IncomeLevel,
	DebtLevel,
	CreditUtilization,
	CreditHistoryLength,
	NumCreditAccounts,
	NumCreditInquiries,
	Age,
	PaymentHistory,
	EmploymentStatus,
	EducationLevel,
}

// Kind is the declared type of an attribute.
type Kind string

const (
	KindReal        Kind = "real"
	KindInteger     Kind = "integer"
	KindCategorical Kind = "categorical"
)

// Categorical domains. Matching is exact and case-sensitive.
var (
	PaymentHistoryValues   = []string{"Good", "Fair", "Poor"}
	EmploymentStatusValues = []string{"Employed", "Self-Employed", "Unemployed"}
	EducationLevelValues   = []string{"High School", "Bachelor", "Master", "PhD"}
)

// Bounds of the plausible age range, inclusive.
const (
	MinAge = 18
	MaxAge = 120
)

// KindOf returns the declared kind of name, or false for unknown attributes.
func KindOf(name string) (Kind, bool) {
	switch name {
	case IncomeLevel, DebtLevel, CreditUtilization:
		return KindReal, true
	case CreditHistoryLength, NumCreditAccounts, NumCreditInquiries, Age:
		return KindInteger, true
	case PaymentHistory, EmploymentStatus, EducationLevel:
		return KindCategorical, true
	default:
		return "", false
	}
}

// CategoriesOf returns the allowed values of a categorical attribute.
func CategoriesOf(name string) []string {
	switch name {
	case PaymentHistory:
		return PaymentHistoryValues
	case EmploymentStatus:
		return EmploymentStatusValues
	case EducationLevel:
		return EducationLevelValues
	default:
		return nil
	}
}

// FeatureRecord is a validated applicant. Field order matches CanonicalOrder,
// so its JSON encoding is schema-aligned.
type FeatureRecord struct {
	IncomeLevel         float64 `json:"income_level"`
	DebtLevel           float64 `json:"debt_level"`
	CreditUtilization   float64 `json:"credit_utilization"`
	CreditHistoryLength int     `json:"credit_history_length"`
	NumCreditAccounts   int     `json:"num_credit_accounts"`
	NumCreditInquiries  int     `json:"num_credit_inquiries"`
	Age                 int     `json:"age"`
	PaymentHistory      string  `json:"payment_history"`
	EmploymentStatus    string  `json:"employment_status"`
	EducationLevel      string  `json:"education_level"`
}

// Numeric returns the value of a real or integer attribute.
func (r FeatureRecord) Numeric(name string) (float64, bool) {
	switch name {
	case IncomeLevel:
		return r.IncomeLevel, true
	case DebtLevel:
		return r.DebtLevel, true
	case CreditUtilization:
		return r.CreditUtilization, true
	case CreditHistoryLength:
		return float64(r.CreditHistoryLength), true
	case NumCreditAccounts:
		return float64(r.NumCreditAccounts), true
	case NumCreditInquiries:
		return float64(r.NumCreditInquiries), true
	case Age:
		return float64(r.Age), true
	default:
		return 0, false
	}
}

// Category returns the value of a categorical attribute.
func (r FeatureRecord) Category(name string) (string, bool) {
	switch name {
	case PaymentHistory:
		return r.PaymentHistory, true
	case EmploymentStatus:
		return r.EmploymentStatus, true
	case EducationLevel:
		return r.EducationLevel, true
	default:
		return "", false
	}
}

// Values returns the attribute values in CanonicalOrder.
func (r FeatureRecord) Values() []interface{} {
	out := make([]interface{}, 0, len(CanonicalOrder))
	for _, name := range CanonicalOrder {
		if v, ok := r.Numeric(name); ok {
			if k, _ := KindOf(name); k == KindInteger {
				out = append(out, int(v))
			} else {
				out = append(out, v)
			}
			continue
		}
		c, _ := r.Category(name)
		out = append(out, c)
	}
	return out
}

// ToMap returns the record as a wire-format attribute bag.
func (r FeatureRecord) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(CanonicalOrder))
	for i, v := range r.Values() {
		out[CanonicalOrder[i]] = v
	}
	return out
}
