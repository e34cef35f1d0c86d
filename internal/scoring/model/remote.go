package model

import (
	"context"
	"fmt"
	"time"

	httpclient "credit-scoring/internal/common/http"
	"credit-scoring/internal/scoring/features"
)

// RemoteScorer delegates scoring to an external model API that accepts the
// schema-aligned record and answers {"credit_score": <float>}.
type RemoteScorer struct {
	url    string
	client *httpclient.Client
}

func NewRemoteScorer(url string, timeout time.Duration) *RemoteScorer {
	return &RemoteScorer{
		url:    url,
		client: httpclient.NewClient(timeout),
	}
}

type remoteResponse struct {
	CreditScore *float64 `json:"credit_score"`
	Error       string   `json:"error,omitempty"`
}

func (s *RemoteScorer) Score(ctx context.Context, record features.FeatureRecord) (float64, error) {
	var resp remoteResponse
	if err := s.client.PostJSON(ctx, s.url, record, &resp); err != nil {
		return 0, fmt.Errorf("remote model %s: %w", s.url, err)
	}
	if resp.Error != "" {
		return 0, fmt.Errorf("remote model %s: %s", s.url, resp.Error)
	}
	if resp.CreditScore == nil {
		return 0, fmt.Errorf("remote model %s: response has no credit_score", s.url)
	}
	return *resp.CreditScore, nil
}
