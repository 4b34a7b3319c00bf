package bitfinex

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	appconfig "fundflow/config"
	"fundflow/logger"
	"fundflow/models"
)

const defaultUserAgent = "fundflow/1.0"

// Client is a thin authenticated Bitfinex v2 REST client. It signs each
// request with HMAC-SHA384 over the path, a monotonic nonce and the JSON body,
// and decodes responses into raw records without assuming the payload shape:
// upstream returns arrays of arrays on some endpoints and arrays of objects on
// others, sometimes switching between revisions.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log

	mu        sync.Mutex
	lastNonce int64
}

func NewClient(cfg *appconfig.Config) *Client {
	rl := cfg.Reader.RateLimit
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}

	baseURL := strings.TrimRight(cfg.Source.Bitfinex.URL, "/")
	if baseURL == "" {
		baseURL = "https://api.bitfinex.com"
	}

	httpClient := &http.Client{
		Transport: userAgentTransport{agent: defaultUserAgent, base: http.DefaultTransport},
		Timeout:   cfg.Reader.Timeout,
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.Source.Bitfinex.APIKey,
		apiSecret:  cfg.Source.Bitfinex.APISecret,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		log:        logger.GetLogger(),
	}
}

// nonce returns a strictly increasing millisecond nonce. Bitfinex rejects
// reused or decreasing nonces per API key.
func (c *Client) nonce() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := time.Now().UnixMilli()
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return strconv.FormatInt(n, 10)
}

// FetchAuth POSTs to an authenticated v2 endpoint, e.g. "v2/auth/r/wallets",
// and returns the decoded records. body may be nil.
func (c *Client) FetchAuth(ctx context.Context, path string, body map[string]interface{}) ([]models.RawRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	raw := []byte("{}")
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		raw = encoded
	}

	nonce := c.nonce()
	signaturePayload := "/api/" + path + nonce + string(raw)
	mac := hmac.New(sha512.New384, []byte(c.apiSecret))
	mac.Write([]byte(signaturePayload))
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("bfx-nonce", nonce)
	req.Header.Set("bfx-apikey", c.apiKey)
	req.Header.Set("bfx-signature", signature)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.WithComponent("bitfinex_client").WithFields(logger.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Milliseconds(),
	}).Debug("api request complete")

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, path, strings.TrimSpace(string(snippet)))
	}

	return decodeRecords(resp.Body, path)
}

// decodeRecords turns a v2 response body into raw records. Numbers stay as
// json.Number so downstream normalization controls precision; each top-level
// element becomes a sequence or mapping record depending on its shape.
func decodeRecords(body io.Reader, path string) ([]models.RawRecord, error) {
	decoder := json.NewDecoder(body)
	decoder.UseNumber()

	var payload interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	switch v := payload.(type) {
	case []interface{}:
		// in-band error marker: ["error", code, "message"]
		if len(v) > 0 {
			if marker, ok := v[0].(string); ok && strings.EqualFold(marker, "error") {
				return nil, fmt.Errorf("api error from %s: %v", path, v)
			}
		}
		records := make([]models.RawRecord, 0, len(v))
		for _, element := range v {
			switch item := element.(type) {
			case []interface{}:
				records = append(records, models.SequenceRecord(item))
			case map[string]interface{}:
				records = append(records, models.MappingRecord(item))
			default:
				return nil, fmt.Errorf("unexpected element %T in response from %s", element, path)
			}
		}
		return records, nil
	case map[string]interface{}:
		// a few endpoints wrap a single object
		return []models.RawRecord{models.MappingRecord(v)}, nil
	default:
		return nil, fmt.Errorf("unexpected response shape %T from %s", payload, path)
	}
}
