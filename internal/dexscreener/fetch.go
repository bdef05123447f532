package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const maxErrorBody = 512

// fetchTokenPairs performs one GET /latest/dex/tokens/{address}.
func fetchTokenPairs(ctx context.Context, client *http.Client, baseURL, token string) ([]rawPair, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", baseURL, url.PathEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ProviderError{Token: token, Reason: ReasonNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		reason := ReasonNetwork
		if ctx.Err() != nil {
			reason = ReasonCanceled
		}
		return nil, &ProviderError{Token: token, Reason: reason, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ProviderError{
			Token:  token,
			Reason: ReasonStatus,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("non-200 response: %s", body),
		}
	}

	var out tokensResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ProviderError{Token: token, Reason: ReasonDecode, Status: resp.StatusCode, Err: err}
	}
	return out.Pairs, nil
}
