// Package neis is a client for the NEIS open API school meal service.
package neis

import (
	"context"
	"net/http"
	"time"

	"schoolboard/internal/middleware"
	"schoolboard/internal/observability"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	mealServicePath = "/mealServiceDietInfo"
	resultNoData    = "INFO-200"
	resultOK        = "INFO-000"
)

// Config identifies the school whose meals are fetched.
type Config struct {
	BaseURL    string
	APIKey     string
	OfficeCode string
	SchoolCode string
	Timeout    time.Duration
}

// Meal is one NEIS meal row. Dishes are the raw DDISH_NM value.
type Meal struct {
	Date     string `json:"MLSV_YMD"`
	Kind     string `json:"MMEAL_SC_NM"`
	Dishes   string `json:"DDISH_NM"`
	Calories string `json:"CAL_INFO"`
}

// Client fetches meals for one school.
type Client struct {
	cfg  Config
	http *resty.Client
}

// NewClient builds a client whose outbound calls are traced.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := resty.NewWithClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{cfg: cfg, http: httpClient}
}

type resultInfo struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}

type mealSection struct {
	Head []struct {
		Result *resultInfo `json:"RESULT,omitempty"`
	} `json:"head,omitempty"`
	Row []Meal `json:"row,omitempty"`
}

type mealResponse struct {
	Info   json.RawMessage `json:"mealServiceDietInfo"`
	Result *resultInfo     `json:"RESULT"`
}

// Meals returns every meal served between from and to inclusive (YYYYMMDD).
// A range with no meals yields an empty slice.
func (c *Client) Meals(ctx context.Context, from, to string) (meals []Meal, err error) {
	done := observability.TrackExternal("neis")
	defer func() { done(err) }()

	params := map[string]string{
		"Type":               "json",
		"ATPT_OFCDC_SC_CODE": c.cfg.OfficeCode,
		"SD_SCHUL_CODE":      c.cfg.SchoolCode,
		"MLSV_FROM_YMD":      from,
		"MLSV_TO_YMD":        to,
		"pSize":              "100",
	}
	if c.cfg.APIKey != "" {
		params["KEY"] = c.cfg.APIKey
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(mealServicePath)
	if err != nil {
		return nil, errors.Wrap(err, "neis: request meal service")
	}
	if resp.IsError() {
		return nil, errors.Errorf("neis: meal service returned %s", resp.Status())
	}

	meals, err = decodeMeals(resp.Body())
	if err != nil {
		return nil, errors.Wrapf(err, "neis: decode meals %s-%s", from, to)
	}
	middleware.Logger.DebugContext(ctx, "NEIS meals fetched", "from", from, "to", to, "rows", len(meals))
	return meals, nil
}

// decodeMeals accepts both the usual [head, row] array and the bare object
// form of mealServiceDietInfo, plus the top-level RESULT used for "no data".
func decodeMeals(body []byte) ([]Meal, error) {
	var envelope mealResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Info) == 0 {
		if envelope.Result != nil && envelope.Result.Code != resultNoData && envelope.Result.Code != resultOK {
			return nil, errors.Errorf("api error %s: %s", envelope.Result.Code, envelope.Result.Message)
		}
		return []Meal{}, nil
	}

	var sections []mealSection
	if err := json.Unmarshal(envelope.Info, &sections); err != nil {
		var single mealSection
		if err := json.Unmarshal(envelope.Info, &single); err != nil {
			return nil, err
		}
		sections = []mealSection{single}
	}

	meals := []Meal{}
	for _, s := range sections {
		meals = append(meals, s.Row...)
	}
	return meals, nil
}
