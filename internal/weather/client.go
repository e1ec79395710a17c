// Package weather wraps the OpenWeather current-weather endpoint.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://api.openweathermap.org"
	requestTimeout = 10 * time.Second
	maxAttempts    = 3
)

// ErrCityNotFound maps the API's 404 response; it is terminal and never
// retried.
var ErrCityNotFound = errors.New("weather: city not found")

type Report struct {
	City        string
	Temp        float64
	Description string
	Humidity    int
	WindSpeed   float64
}

type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger

	sleep func(time.Duration)
}

func NewClient(httpClient *http.Client, baseURL, apiKey string, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

type currentWeatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Current fetches the weather for a city. A 404 returns ErrCityNotFound
// immediately; any other failure is retried with exponential backoff
// (1s, then 2s) for up to three attempts total.
func (c *Client) Current(ctx context.Context, city string) (Report, error) {
	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")
	query.Set("lang", "ru")
	reqURL := fmt.Sprintf("%s/data/2.5/weather?%s", c.baseURL, query.Encode())

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		report, retryable, err := c.fetch(ctx, reqURL)
		if err == nil {
			return report, nil
		}
		if !retryable {
			return Report{}, err
		}
		lastErr = err
		if attempt < maxAttempts-1 {
			delay := time.Duration(1<<attempt) * time.Second
			c.logger.Warn("weather_retry",
				"city", city,
				"attempt", attempt+1,
				"delay", delay.String(),
				"error", err.Error(),
			)
			c.sleep(delay)
		}
	}
	return Report{}, lastErr
}

func (c *Client) fetch(ctx context.Context, reqURL string) (Report, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Report{}, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Report{}, true, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return Report{}, false, ErrCityNotFound
	default:
		return Report{}, true, fmt.Errorf("weather http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out currentWeatherResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Report{}, true, fmt.Errorf("weather decode: %w", err)
	}
	report := Report{
		City:      out.Name,
		Temp:      out.Main.Temp,
		Humidity:  out.Main.Humidity,
		WindSpeed: out.Wind.Speed,
	}
	if len(out.Weather) > 0 {
		report.Description = out.Weather[0].Description
	}
	return report, false, nil
}
