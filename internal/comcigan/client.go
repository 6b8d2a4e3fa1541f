// Package comcigan reads class timetables from the comcigan timetable service.
//
// The service exposes a landing page whose script names the data endpoint,
// the request prefix and the keys of the timetable payload. Those change
// between releases, so they are discovered from the page rather than fixed.
package comcigan

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"schoolboard/internal/middleware"
	"schoolboard/internal/observability"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

const (
	landingPath      = "/st"
	defaultSeparator = 100
	// discovery results are refreshed after this long
	discoveryTTL = time.Hour
)

var (
	routePattern   = regexp.MustCompile(`\./(\d+)\?\d+l`)
	prefixPattern  = regexp.MustCompile(`sc_data\('(\d+_)'`)
	subjectPattern = regexp.MustCompile(`자료\.자료(\d+)\[sb\]`)
	teacherPattern = regexp.MustCompile(`성명=자료\.자료(\d+)`)
	dailyPattern   = regexp.MustCompile(`일일자료=Q자료\(자료\.자료(\d+)\[`)
)

var (
	// ErrUnknownClass is returned when the grade or class is not in the timetable.
	ErrUnknownClass = errors.New("comcigan: class not found in timetable")
	// ErrLayoutChanged is returned when the landing page or payload no longer
	// carries the expected markers.
	ErrLayoutChanged = errors.New("comcigan: landing page layout not recognized")
)

// Lesson is one period of a class's day.
type Lesson struct {
	Period  int    `json:"period"`
	Subject string `json:"subject"`
	Teacher string `json:"teacher,omitempty"`
}

type layout struct {
	route      string
	prefix     string
	subjectKey string
	teacherKey string
	dailyKey   string
	fetchedAt  time.Time
}

// Client fetches timetables for one school.
type Client struct {
	http       *resty.Client
	schoolCode int

	mu     sync.Mutex
	layout *layout
	now    func() time.Time
}

// NewClient builds a client for the school identified by schoolCode.
func NewClient(baseURL string, schoolCode int) *Client {
	httpClient := resty.NewWithClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}).
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (schoolboard)")

	return &Client{http: httpClient, schoolCode: schoolCode, now: time.Now}
}

// SchoolCode returns the school this client reads.
func (c *Client) SchoolCode() int {
	return c.schoolCode
}

// Day returns the lessons of grade/classNum on weekday (1 = Monday .. 5 = Friday),
// ordered by period. Periods with no lesson are omitted.
func (c *Client) Day(ctx context.Context, grade, classNum, weekday int) (lessons []Lesson, err error) {
	done := observability.TrackExternal("comcigan")
	defer func() { done(err) }()

	l, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := c.fetchPayload(ctx, l)
	if err != nil {
		return nil, err
	}
	return decodeDay(payload, l, grade, classNum, weekday)
}

func (c *Client) discover(ctx context.Context) (*layout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.layout != nil && c.now().Sub(c.layout.fetchedAt) < discoveryTTL {
		return c.layout, nil
	}

	resp, err := c.http.R().SetContext(ctx).Get(landingPath)
	if err != nil {
		return nil, errors.Wrap(err, "comcigan: request landing page")
	}
	if resp.IsError() {
		return nil, errors.Errorf("comcigan: landing page returned %s", resp.Status())
	}

	page, err := decodeEUCKR(resp.Body())
	if err != nil {
		return nil, errors.Wrap(err, "comcigan: decode landing page")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, errors.Wrap(err, "comcigan: parse landing page")
	}

	var script strings.Builder
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		script.WriteString(s.Text())
		script.WriteByte('\n')
	})

	l, err := parseLayout(script.String())
	if err != nil {
		return nil, err
	}
	l.fetchedAt = c.now()
	c.layout = l
	middleware.Logger.InfoContext(ctx, "Comcigan layout discovered",
		"route", l.route, "daily_key", l.dailyKey, "subject_key", l.subjectKey)
	return l, nil
}

func parseLayout(script string) (*layout, error) {
	find := func(re *regexp.Regexp) string {
		if m := re.FindStringSubmatch(script); len(m) > 1 {
			return m[1]
		}
		return ""
	}
	l := &layout{
		route:      find(routePattern),
		prefix:     find(prefixPattern),
		subjectKey: find(subjectPattern),
		teacherKey: find(teacherPattern),
		dailyKey:   find(dailyPattern),
	}
	if l.route == "" || l.prefix == "" || l.subjectKey == "" || l.dailyKey == "" {
		return nil, ErrLayoutChanged
	}
	return l, nil
}

func (c *Client) fetchPayload(ctx context.Context, l *layout) (map[string]json.RawMessage, error) {
	query := base64.StdEncoding.EncodeToString([]byte(l.prefix + strconv.Itoa(c.schoolCode) + "_0_1"))

	resp, err := c.http.R().SetContext(ctx).Get("/" + l.route + "?" + query)
	if err != nil {
		return nil, errors.Wrap(err, "comcigan: request timetable")
	}
	if resp.IsError() {
		return nil, errors.Errorf("comcigan: timetable returned %s", resp.Status())
	}

	// The payload is followed by padding bytes after the closing brace.
	body := resp.Body()
	end := bytes.LastIndexByte(body, '}')
	if end < 0 {
		return nil, errors.New("comcigan: timetable payload is not JSON")
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body[:end+1], &payload); err != nil {
		return nil, errors.Wrap(err, "comcigan: decode timetable")
	}
	return payload, nil
}

func decodeDay(payload map[string]json.RawMessage, l *layout, grade, classNum, weekday int) ([]Lesson, error) {
	subjects, err := stringList(payload, "자료"+l.subjectKey)
	if err != nil {
		return nil, err
	}
	var teachers []string
	if l.teacherKey != "" {
		teachers, _ = stringList(payload, "자료"+l.teacherKey)
	}
	separator := defaultSeparator
	if raw, ok := payload["분리"]; ok {
		_ = json.Unmarshal(raw, &separator)
		if separator <= 0 {
			separator = defaultSeparator
		}
	}

	// daily[grade][class][weekday][period]; index 0 at each level holds a count.
	raw, ok := payload["자료"+l.dailyKey]
	if !ok {
		return nil, errors.Wrapf(ErrLayoutChanged, "missing 자료%s", l.dailyKey)
	}
	if grade <= 0 || classNum <= 0 {
		return nil, ErrUnknownClass
	}
	classRaw, ok := element(raw, grade)
	if ok {
		classRaw, ok = element(classRaw, classNum)
	}
	if !ok {
		return nil, ErrUnknownClass
	}
	dayRaw, ok := element(classRaw, weekday)
	if weekday <= 0 || !ok {
		return []Lesson{}, nil
	}

	var periods []json.RawMessage
	if err := json.Unmarshal(dayRaw, &periods); err != nil {
		return nil, errors.Wrap(err, "decode periods")
	}
	lessons := make([]Lesson, 0, len(periods))
	for period := 1; period < len(periods); period++ {
		var code int
		if err := json.Unmarshal(periods[period], &code); err != nil || code <= 0 {
			continue
		}
		subject, teacher := code%separator, code/separator
		if subject <= 0 || subject >= len(subjects) {
			continue
		}
		lesson := Lesson{Period: period, Subject: strings.TrimSpace(subjects[subject])}
		if teacher > 0 && teacher < len(teachers) {
			lesson.Teacher = strings.TrimSpace(teachers[teacher])
		}
		lessons = append(lessons, lesson)
	}
	return lessons, nil
}

// element returns the i-th item of a JSON array, or false when raw is not an
// array or is too short.
func element(raw json.RawMessage, i int) (json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || i < 0 || i >= len(items) {
		return nil, false
	}
	return items[i], true
}

// stringList decodes a name table. Non-string slots (the leading count)
// decode as empty names.
func stringList(payload map[string]json.RawMessage, key string) ([]string, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, errors.Wrapf(ErrLayoutChanged, "missing %s", key)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(err, "decode %s", key)
	}
	out := make([]string, len(items))
	for i, item := range items {
		_ = json.Unmarshal(item, &out[i])
	}
	return out, nil
}

func decodeEUCKR(b []byte) (string, error) {
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(b), korean.EUCKR.NewDecoder()))
	if err != nil {
		return "", err
	}
	return string(out), nil
}
