package predictcreditscore

// Input is read from the job variables. Features may be nested under
// "features" or supplied as top-level variables.
type Input struct {
	ApplicantID string                 `json:"applicantId,omitempty"`
	Features    map[string]interface{} `json:"features"`
}

// Output is merged into the process instance on completion.
type Output struct {
	ApplicantID  string  `json:"applicantId,omitempty"`
	CreditScore  float64 `json:"creditScore"`
	RiskCategory string  `json:"riskCategory"`
}
