// Package lendscore fetches the supplemental 1-99 creditworthiness score used to
// adjust a DSCR-derived base rate.
package lendscore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmdatafocus/lending_backend/config"
	"github.com/mmdatafocus/lending_backend/dscr"
	"github.com/mmdatafocus/lending_backend/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type scoreResponse struct {
	Score       *int     `json:"score" validate:"required,min=1,max=99"`
	ReasonCodes []string `json:"reason_codes" validate:"omitempty,dive,max=16"`
}

type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewClient(cfg config.LendScoreConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 20
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		logger:  logger,
	}
}

// FetchScore returns the loan's score, or nil when the provider has none or cannot be reached.
func (c *Client) FetchScore(ctx context.Context, loanId string) *dscr.Score {
	if c == nil || c.baseURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	score, err := c.fetch(ctx, loanId)
	if err != nil {
		config.LogWarn(c.logger, "lendscore/client.go", "FetchScore", "fetching lend score", loanId, err)
		return nil
	}
	return score
}

func (c *Client) fetch(ctx context.Context, loanId string) (*dscr.Score, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("loan_id", loanId)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/lend-score?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lend score error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed scoreResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(parsed); err != nil {
		return nil, fmt.Errorf("invalid lend score: %v", utils.ProcessValidationErrors(err))
	}
	return &dscr.Score{Value: *parsed.Score, ReasonCodes: parsed.ReasonCodes}, nil
}
