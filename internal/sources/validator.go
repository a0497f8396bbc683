package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/dkorolev/veridict/internal/model"
	"github.com/dkorolev/veridict/internal/util"
)

const (
	validateMaxRetries = 3
	titleMaxBody       = 256 * 1024
)

// validateSleepFunc is the sleep function used between retries (injectable for tests)
var validateSleepFunc = time.Sleep

// LinkStatus is the outcome of checking one cited URL
type LinkStatus struct {
	URL           string `json:"url"`
	IsAccessible  bool   `json:"is_accessible"`
	StatusCode    int    `json:"status_code,omitempty"`
	IsDead        bool   `json:"is_dead"` // 404, 410, or network failure
	RobotsBlocked bool   `json:"robots_blocked,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	ResolvedTitle string `json:"resolved_title,omitempty"` // Filled when the citation arrived untitled
	Error         string `json:"error,omitempty"`
}

// Validator checks cited links concurrently
type Validator struct {
	httpClient *http.Client
	maxWorkers int
	robots     *robotsChecker
	userAgent  string
}

// NewValidator creates a validator
func NewValidator(timeout time.Duration, maxWorkers int, userAgent, httpProxy, httpsProxy, noProxy string) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = 20
	}
	if userAgent == "" {
		userAgent = "Veridict/0.1 (+https://github.com/dkorolev/veridict)"
	}

	return &Validator{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxWorkers: maxWorkers,
		robots:     newRobotsChecker(userAgent, timeout),
		userAgent:  userAgent,
	}
}

// Validate checks every cited link concurrently and returns one status
// per source, in input order.
func (v *Validator) Validate(ctx context.Context, srcs []model.AggregatedSource) []LinkStatus {
	if len(srcs) == 0 {
		return []LinkStatus{}
	}

	results := make([]LinkStatus, len(srcs))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, v.maxWorkers)

	for i, src := range srcs {
		wg.Add(1)
		go func(idx int, s model.AggregatedSource) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = LinkStatus{URL: s.URL, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = v.checkWithRetry(ctx, s)
		}(i, src)
	}

	wg.Wait()
	return results
}

// check validates a single citation
func (v *Validator) check(ctx context.Context, src model.AggregatedSource) LinkStatus {
	status := LinkStatus{URL: src.URL}

	if !v.robots.canFetch(ctx, src.URL) {
		status.RobotsBlocked = true
		return status
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, src.URL, nil)
	if err != nil {
		status.Error = fmt.Sprintf("create request: %v", err)
		status.IsDead = true
		return status
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		status.Error = fmt.Sprintf("request failed: %v", err)
		status.IsDead = true
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	status.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		status.IsAccessible = true
	} else if resp.StatusCode == 404 || resp.StatusCode == 410 {
		status.IsDead = true
	}

	if resp.Request.URL.String() != src.URL {
		status.RedirectURL = resp.Request.URL.String()
	}

	if status.IsAccessible && src.Title == "" {
		status.ResolvedTitle = v.fetchTitle(ctx, src.URL)
	}

	return status
}

// checkWithRetry retries transient failures with exponential backoff
func (v *Validator) checkWithRetry(ctx context.Context, src model.AggregatedSource) LinkStatus {
	var status LinkStatus
	for attempt := 0; attempt < validateMaxRetries; attempt++ {
		status = v.check(ctx, src)
		if !isRetryable(status) {
			return status
		}
		if attempt < validateMaxRetries-1 {
			validateSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return status
}

// isRetryable returns true for statuses that indicate transient failures
func isRetryable(status LinkStatus) bool {
	if status.StatusCode >= 500 && status.StatusCode < 600 {
		return true
	}
	if status.StatusCode == 429 {
		return true
	}
	if status.Error != "" {
		s := strings.ToLower(status.Error)
		return strings.Contains(s, "timeout") ||
			strings.Contains(s, "connection refused") ||
			strings.Contains(s, "connection reset")
	}
	return false
}

// fetchTitle pulls the page <title> for citations that arrived without
// one. Best effort: any failure returns an empty string.
func (v *Validator) fetchTitle(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", v.userAgent)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ""
	}
	return extractTitle(io.LimitReader(resp.Body, titleMaxBody))
}

// extractTitle walks the HTML token stream until the first <title>
func extractTitle(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)
	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			inTitle = string(name) == "title"
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			inTitle = false
		}
	}
}
