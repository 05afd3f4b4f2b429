// Package client talks to the transaction service, the authoritative
// source of truth the recalculation path rebuilds aggregates from.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reportsvc/internal/core"
)

// DefaultPageSize bounds one fetch; the transaction service caps page
// sizes at 1000.
const DefaultPageSize = 1000

// TransactionData is the slice of a transaction the recalculation needs.
type TransactionData struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

type paginatedResponse struct {
	Content []TransactionData `json:"content"`
}

// TransactionClient fetches a period's transactions over HTTP. Any
// transport or HTTP-level failure surfaces as a core.IntegrationError;
// nothing is retried here.
type TransactionClient struct {
	baseURL  string
	pageSize int
	httpc    *http.Client
}

func NewTransactionClient(baseURL string, pageSize int) *TransactionClient {
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	return &TransactionClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		httpc:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchTransactions returns the authoritative transactions for a period.
// The caller's bearer token, when present, is forwarded so the transaction
// service sees the original identity.
func (c *TransactionClient) FetchTransactions(ctx context.Context, period core.Period, token string) ([]TransactionData, error) {
	u := c.baseURL + "/transactions?" + url.Values{
		"period": {period.String()},
		"size":   {strconv.Itoa(c.pageSize)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build transaction request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(token, "Bearer "))
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &core.IntegrationError{Msg: "transaction service unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &core.IntegrationError{
			Msg: fmt.Sprintf("transaction service returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var page paginatedResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &core.IntegrationError{Msg: "decode transaction response", Err: err}
	}

	return page.Content, nil
}
