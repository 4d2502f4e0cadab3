package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/combinewear/wardrobe-backend/pkg/config"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
)

const retryBaseDelay = 250 * time.Millisecond

// Conditions is the trimmed current-weather view served to clients and used
// as free-text context for outfit generation.
type Conditions struct {
	Location    string `json:"location"`
	Temperature int    `json:"temperature"`
	Condition   string `json:"condition"`
	Icon        string `json:"icon"`
}

// Summary renders conditions as a short phrase, e.g. "Clouds, 14°C".
func (c Conditions) Summary() string {
	return fmt.Sprintf("%s, %d°C", c.Condition, c.Temperature)
}

type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	maxRetries int
	logg       *logger.Logger
}

func NewClient(cfg config.WeatherConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openweather api key is required")
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		maxRetries: cfg.MaxRetries,
		logg:       logg,
	}, nil
}

type openWeatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
		Icon string `json:"icon"`
	} `json:"weather"`
}

// Current fetches current conditions for the coordinates. Temperatures are
// requested in metric units and rounded to the nearest degree.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Conditions, error) {
	if c == nil {
		return nil, errors.New("weather client not initialized")
	}

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("units", "metric")
	query.Set("appid", c.apiKey)
	u := c.baseURL + "?" + query.Encode()

	var payload openWeatherResponse
	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(retryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			err := fmt.Errorf("openweather returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
			if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
				if c.logg != nil {
					c.logg.Warn(ctx, "openweather request failed, retrying")
				}
				return retry.RetryableError(err)
			}
			return err
		}
		return json.NewDecoder(resp.Body).Decode(&payload)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching current weather: %w", err)
	}

	cond := &Conditions{
		Location:    payload.Name,
		Temperature: int(math.Round(payload.Main.Temp)),
	}
	if len(payload.Weather) > 0 {
		cond.Condition = payload.Weather[0].Main
		cond.Icon = payload.Weather[0].Icon
	}
	return cond, nil
}
