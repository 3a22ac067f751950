package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// EdamamBaseURL is the food-database parser endpoint.
const EdamamBaseURL = "https://api.edamam.com/api/food-database/v2/parser"

// EdamamConfig configures the Edamam client.
type EdamamConfig struct {
	HTTPClient *http.Client
	AppID      string
	AppKey     string
	BaseURL    string
	// RequestsPerMinute throttles outgoing calls. Zero means 10, the free plan limit.
	RequestsPerMinute int
}

// EdamamClient is a CalorieSource backed by the Edamam food database.
type EdamamClient struct {
	client  *http.Client
	limiter *rate.Limiter
	appID   string
	appKey  string
	baseURL string
}

func NewEdamamClient(cfg EdamamConfig) *EdamamClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = EdamamBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 10
	}
	return &EdamamClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		appID:   cfg.AppID,
		appKey:  cfg.AppKey,
		baseURL: baseURL,
	}
}

type edamamResponse struct {
	Parsed []struct {
		Food struct {
			Label     string             `json:"label"`
			Nutrients map[string]float64 `json:"nutrients"`
		} `json:"food"`
		Measure *struct {
			Label string `json:"label"`
		} `json:"measure"`
		Quantity *float64 `json:"quantity"`
	} `json:"parsed"`
}

// FindCalories queries the parser endpoint and reads the energy of the first parsed food.
func (c *EdamamClient) FindCalories(ctx context.Context, query string) (Match, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Match{}, false, err
	}

	params := url.Values{}
	params.Set("ingr", query)
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Match{}, false, errors.Wrap(err, "failed to construct edamam request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Match{}, false, errors.Wrap(err, "failed to query edamam")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Match{}, false, errors.Wrap(err, "failed to read edamam response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Match{}, false, errors.Errorf("edamam returned status %d: %s", resp.StatusCode, body)
	}

	var parsed edamamResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Match{}, false, errors.Wrap(err, "failed to decode edamam response")
	}
	if len(parsed.Parsed) == 0 {
		return Match{}, false, nil
	}
	first := parsed.Parsed[0]
	kcal, ok := first.Food.Nutrients["ENERC_KCAL"]
	if !ok {
		return Match{}, false, nil
	}

	serving := DefaultServingSize
	if first.Quantity != nil && first.Measure != nil && first.Measure.Label != "" {
		serving = fmt.Sprintf("%s %s", strconv.FormatFloat(*first.Quantity, 'f', -1, 64), first.Measure.Label)
	}
	return Match{Label: first.Food.Label, ServingSize: serving, Calories: kcal}, true, nil
}
