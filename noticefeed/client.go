// Package noticefeed reads DSCR verification notices from the off-chain
// verifiable-compute layer. Every failure is logged and reported as "no notice".
package noticefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmdatafocus/lending_backend/config"
	"github.com/mmdatafocus/lending_backend/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewClient(cfg config.NoticeFeedConfig, logger *logrus.Logger) *Client {
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

// FetchLatestNotice returns the loan's notice with the latest computation time, or nil.
func (c *Client) FetchLatestNotice(ctx context.Context, loanId string) *Notice {
	if c == nil || c.baseURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raws, err := c.listNotices(ctx, loanId)
	if err != nil {
		config.LogWarn(c.logger, "noticefeed/client.go", "FetchLatestNotice", "listing notices", loanId, err)
		return nil
	}

	notices := make([]Notice, 0, len(raws))
	for _, raw := range raws {
		n, err := decodeNotice(raw)
		if err != nil {
			config.LogWarn(c.logger, "noticefeed/client.go", "FetchLatestNotice", "skipping malformed notice", string(raw), err)
			continue
		}
		if !strings.EqualFold(n.LoanId, loanId) {
			continue
		}
		notices = append(notices, n)
	}
	return Latest(notices)
}

// Latest picks the notice with the greatest CalculatedAt; ties keep the earlier entry.
func Latest(notices []Notice) *Notice {
	var best *Notice
	for i := range notices {
		if best == nil || notices[i].CalculatedAt.After(best.CalculatedAt) {
			best = &notices[i]
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func (c *Client) listNotices(ctx context.Context, loanId string) ([]json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("loan_id", loanId)
	endpoint := c.baseURL + "/notices?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("notice feed error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return parseNoticeList(body)
}

// parseNoticeList accepts a bare array or an object with "notices" / "data".
func parseNoticeList(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty notice feed response")
	}
	if trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var parsed noticeListResponse
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Notices) > 0 {
		return parsed.Notices, nil
	}
	return parsed.Data, nil
}

func decodeNotice(raw json.RawMessage) (Notice, error) {
	var rn rawNotice
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rn); err != nil {
		return Notice{}, err
	}
	if err := utils.ValidateStruct(rn); err != nil {
		return Notice{}, fmt.Errorf("invalid notice: %v", utils.ProcessValidationErrors(err))
	}

	dscrValue, err := utils.ParseDecimal(rn.DscrValue.String())
	if err != nil {
		return Notice{}, err
	}
	if dscrValue.Sign() < 0 {
		return Notice{}, fmt.Errorf("negative dscr_value %s", dscrValue)
	}
	calculatedAt, err := rn.CalculatedAt.Float64()
	if err != nil {
		return Notice{}, fmt.Errorf("calculated_at: %w", err)
	}

	n := Notice{
		LoanId:         strings.TrimSpace(rn.LoanId),
		Dscr:           dscrValue,
		ProofHash:      strings.TrimSpace(rn.ProofHash),
		CalculatedAt:   utils.EpochToTime(calculatedAt),
		MeetsThreshold: rn.MeetsThreshold,
		VerificationId: rn.VerificationId,
	}
	if rn.InterestRate != nil {
		if bps, err := rn.InterestRate.Int64(); err == nil {
			n.InterestRate = &bps
		}
	}
	return n, nil
}
