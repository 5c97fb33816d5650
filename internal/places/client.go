package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/carepath/carepath/internal/cache"
	"github.com/carepath/carepath/internal/model"
	"github.com/carepath/carepath/internal/util"
	"github.com/carepath/carepath/internal/worker"
)

// Service paths under the data.go.kr gateway
const (
	emergencyListPath = "/B552657/ErmctInsttInfoInqireService/getEgytListInfoInqire"
	pharmacyListPath  = "/B552657/ErmctInsttInfoInqireService/getParmacyListInfoInqire"
	hospitalListPath  = "/B552657/HsptlAsembySearchService/getHsptlMdcncListInfoInqire"
)

const (
	listPageNo    = "1"
	listPageSize  = "100"
	maxAttempts   = 3
	maxBodyBytes  = 4 << 20
	retryBaseWait = time.Second
)

// ErrNotConfigured reports that no data.go.kr service key is present.
// Callers must distinguish it from upstream failures: the deployment lacks
// a credential, nothing is down.
var ErrNotConfigured = errors.New("places: data.go.kr service key not configured")

// fetchSleepFunc allows tests to disable retry backoff
var fetchSleepFunc = time.Sleep

// Client queries the government institution services for emergency rooms,
// hospitals, and pharmacies. Responses are cached per query signature so a
// burst of turns from one district costs a single upstream call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
	store      cache.Cache
	cacheTTL   time.Duration
	limiter    *worker.Limiter
	nowFunc    func() time.Time // injectable clock for duty-hour tests
}

// NewClient creates a client from configuration. A nil store disables
// response caching.
func NewClient(cfg *model.Config, store cache.Cache) *Client {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.Places.HTTPProxy, cfg.Places.HTTPSProxy, cfg.Places.NoProxy),
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Places.Timeout,
			Transport: transport,
		},
		baseURL:    strings.TrimRight(cfg.Places.BaseURL, "/"),
		serviceKey: cfg.Places.ServiceKey,
		store:      store,
		cacheTTL:   cfg.Places.CacheTTL,
		limiter:    worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		nowFunc:    time.Now,
	}
}

// Configured reports whether a service key is available
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.serviceKey) != ""
}

// NearbyQuery describes a proximity search around the caller
type NearbyQuery struct {
	Lat      float64
	Lng      float64
	Region   model.RegionKey
	RadiusKm float64
	Limit    int
}

// fetchList performs one institution list query with caching, rate limiting,
// and retry. q1 may be empty to query a whole province.
func (c *Client) fetchList(ctx context.Context, path, q0, q1 string) ([]placeItem, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	key := cache.Key(path, q0, q1)
	if c.store != nil {
		if data, found := c.store.Get(key); found {
			var items []placeItem
			if err := json.Unmarshal(data, &items); err == nil {
				return items, nil
			}
		}
	}

	params := url.Values{}
	params.Set("serviceKey", c.serviceKey)
	params.Set("Q0", q0)
	if q1 != "" {
		params.Set("Q1", q1)
	}
	params.Set("pageNo", listPageNo)
	params.Set("numOfRows", listPageSize)
	params.Set("_type", "json")

	body, err := c.fetchWithRetry(ctx, path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	items, err := decodeItems(body)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		if data, err := json.Marshal(items); err == nil {
			_ = c.store.Set(key, data, c.cacheTTL)
		}
	}

	return items, nil
}

// fetchWithRetry retries transient failures (5xx, 429, network errors) with
// linear backoff. Permanent failures return immediately.
func (c *Client) fetchWithRetry(ctx context.Context, pathAndQuery string) ([]byte, error) {
	reqURL := c.baseURL + pathAndQuery

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(attempt) * retryBaseWait)
		}

		if err := c.limiter.Wait(ctx, reqURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}

		body, err := c.fetchOnce(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

// isRetryableFetchError returns true for failures worth another attempt
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	retryable := []string{
		"unexpected status: 5",
		"unexpected status: 429",
		"timeout",
		"deadline exceeded",
		"connection refused",
		"connection reset",
		"EOF",
	}
	for _, marker := range retryable {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// placeItem is one institution record from the gateway. Several fields
// arrive as numbers or strings depending on the dataset, so flexible scalar
// types absorb both.
type placeItem struct {
	HPID      string    `json:"hpid"`
	DutyName  string    `json:"dutyName"`
	DutyAddr  string    `json:"dutyAddr"`
	DutyDiv   string    `json:"dutyDivNam"`
	DutyEmcls string    `json:"dutyEmclsName"`
	DutyEryn  string    `json:"dutyEryn"`
	DutyTel1  string    `json:"dutyTel1"`
	DutyTel3  string    `json:"dutyTel3"`
	Lat       flexFloat `json:"wgs84Lat"`
	Lon       flexFloat `json:"wgs84Lon"`

	DutyTime1S flexString `json:"dutyTime1s"`
	DutyTime1C flexString `json:"dutyTime1c"`
	DutyTime2S flexString `json:"dutyTime2s"`
	DutyTime2C flexString `json:"dutyTime2c"`
	DutyTime3S flexString `json:"dutyTime3s"`
	DutyTime3C flexString `json:"dutyTime3c"`
	DutyTime4S flexString `json:"dutyTime4s"`
	DutyTime4C flexString `json:"dutyTime4c"`
	DutyTime5S flexString `json:"dutyTime5s"`
	DutyTime5C flexString `json:"dutyTime5c"`
	DutyTime6S flexString `json:"dutyTime6s"`
	DutyTime6C flexString `json:"dutyTime6c"`
	DutyTime7S flexString `json:"dutyTime7s"`
	DutyTime7C flexString `json:"dutyTime7c"`
	DutyTime8S flexString `json:"dutyTime8s"`
	DutyTime8C flexString `json:"dutyTime8c"`
}

// listEnvelope mirrors the data.go.kr response wrapper
type listEnvelope struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items rawItems `json:"items"`
		} `json:"body"`
	} `json:"response"`
}

func decodeItems(body []byte) ([]placeItem, error) {
	var envelope listEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	header := envelope.Response.Header
	if header.ResultCode != "" && header.ResultCode != "00" {
		return nil, fmt.Errorf("upstream result %s: %s", header.ResultCode, header.ResultMsg)
	}

	return envelope.Response.Body.Items.list, nil
}

// rawItems absorbs the gateway's payload quirks: items may be an empty
// string, null, a single object, or an array under the "item" key.
type rawItems struct {
	list []placeItem
}

func (r *rawItems) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return nil
	}

	var wrapper struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return fmt.Errorf("decode items: %w", err)
	}

	inner := bytes.TrimSpace(wrapper.Item)
	if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
		return nil
	}

	if inner[0] == '[' {
		return json.Unmarshal(inner, &r.list)
	}

	var single placeItem
	if err := json.Unmarshal(inner, &single); err != nil {
		return err
	}
	r.list = []placeItem{single}
	return nil
}

// flexFloat decodes a JSON number or numeric string. Unparseable values
// become zero; geocoding gaps are handled downstream by pinning the place
// at the search radius.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	trimmed := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = 0
		return nil
	}

	v, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexString decodes a JSON string or bare number into a string
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}

	if len(trimmed) >= 2 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}

	*s = flexString(trimmed)
	return nil
}

func sortByDistance(candidates []model.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})
}

func capLimit(candidates []model.Candidate, limit int) []model.Candidate {
	if limit > 0 && len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}
