package telemanas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"telemanas-backend/lib/htmlutil"
	"telemanas-backend/lib/telemetry"
	"telemanas-backend/lib/timezone"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

var htmlHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Upgrade-Insecure-Requests": "1",
}

// Strategy is one named way of obtaining a snapshot.
type Strategy struct {
	Name  string
	Fetch func(ctx context.Context) (Snapshot, error)
}

// Orchestrator walks an ordered list of strategies until one of them
// yields a snapshot with data in it.
type Orchestrator struct {
	client     *Client
	html       *resty.Client
	strategies []Strategy
	quiet      bool
}

func NewOrchestrator(client *Client) *Orchestrator {
	html := resty.New()
	html.SetBaseURL(client.BaseURL.String())
	html.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(html.GetClient().Transport)
	html.SetHeader("user-agent", browserUserAgent)
	html.SetHeaders(htmlHeaders)
	html.SetTimeout(client.timeout)

	if !client.quiet {
		telemetry.InstrumentResty(html, "scrapers/telemanas/html")
	}

	o := &Orchestrator{
		client: client,
		html:   html,
		quiet:  client.quiet,
	}
	o.strategies = []Strategy{
		{Name: "Direct API Calls", Fetch: o.fetchFromApi},
		{Name: "Web Scraping", Fetch: o.fetchFromHtml},
	}
	return o
}

// Scrape tries every strategy in order and never fails: when all of
// them come up empty the result carries success=false and an all-zero
// snapshot.
func (o *Orchestrator) Scrape(ctx context.Context) ScrapeResult {
	ctx, span := tracer.Start(ctx, "orchestrator:Scrape")
	defer span.End()

	for _, strategy := range o.strategies {
		snapshot, err := strategy.Fetch(ctx)
		if err != nil {
			span.RecordError(err)
			if !o.quiet {
				slog.WarnContext(
					ctx, "scrape strategy failed",
					"strategy", strategy.Name,
					"err", err,
				)
			}
			continue
		}
		if !snapshot.HasData() {
			if !o.quiet {
				slog.WarnContext(
					ctx, "scrape strategy yielded no data",
					"strategy", strategy.Name,
				)
			}
			continue
		}

		if !o.quiet {
			slog.InfoContext(
				ctx, "scrape succeeded",
				"strategy", strategy.Name,
			)
		}
		return ScrapeResult{
			Success:   true,
			Data:      snapshot,
			Method:    strategy.Name,
			Timestamp: timezone.Now(),
		}
	}

	span.SetStatus(codes.Error, "all scraping strategies failed")
	return ScrapeResult{
		Success:   false,
		Data:      ZeroSnapshot(),
		Error:     "All scraping strategies failed",
		Timestamp: timezone.Now(),
	}
}

func (o *Orchestrator) fetchFromApi(ctx context.Context) (Snapshot, error) {
	return o.client.GetAllData(ctx), nil
}

func (o *Orchestrator) fetchFromHtml(ctx context.Context) (Snapshot, error) {
	res, err := o.html.R().SetContext(ctx).Get("/")
	if err != nil {
		return Snapshot{}, err
	}
	if res.StatusCode() != 200 {
		return Snapshot{}, fmt.Errorf("dashboard page returned status %d", res.StatusCode())
	}
	return ExtractSnapshot(res.Body())
}

// candidate JSON object literals inlined into script tags; the page
// bootstraps its counters this way
var scriptDataRegex = regexp.MustCompile(`\{[^{}]*"Total_Calls"[^{}]*\}`)

// label → field patterns run over the raw markup, in order, so a later
// pattern may overwrite what an earlier one matched
var labelPatterns = []struct {
	re    *regexp.Regexp
	field func(*Snapshot) *string
}{
	{
		regexp.MustCompile(`(?is)total[\s_-]*calls?[^0-9]{0,64}?([\d,]+)`),
		func(s *Snapshot) *string { return &s.TotalCalls },
	},
	{
		regexp.MustCompile(`(?is)tele\s*manas\s*cells?[^0-9]{0,64}?([\d,]+)`),
		func(s *Snapshot) *string { return &s.TeleManasCells },
	},
	{
		regexp.MustCompile(`(?is)\bTMCs?\b[^0-9]{0,64}?([\d,]+)`),
		func(s *Snapshot) *string { return &s.TeleManasCells },
	},
	{
		regexp.MustCompile(`(?is)mentoring\s*institutes?[^0-9]{0,64}?([\d,]+)`),
		func(s *Snapshot) *string { return &s.MentoringInstitutes },
	},
	{
		regexp.MustCompile(`(?is)\bMIs?\b[^0-9]{0,64}?([\d,]+)`),
		func(s *Snapshot) *string { return &s.MentoringInstitutes },
	},
	{
		regexp.MustCompile(`(?is)regional\s*coordinat\w*\s*cent(?:er|re)s?[^0-9]{0,64}?([\d,]+)`),
		func(s *Snapshot) *string { return &s.RegionalCoordinatingCenters },
	},
	{
		regexp.MustCompile(`(?is)\bRCCs?\b[^0-9]{0,64}?([\d,]+)`),
		func(s *Snapshot) *string { return &s.RegionalCoordinatingCenters },
	},
}

// ExtractSnapshot pulls the counters out of the dashboard's HTML. Two
// passes: JSON object literals found in script tags, then label/number
// heuristics over the raw markup. The markup is unstable upstream, all
// of this is best effort.
func ExtractSnapshot(markup []byte) (Snapshot, error) {
	if len(bytes.TrimSpace(markup)) == 0 {
		return Snapshot{}, fmt.Errorf("empty document")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := ZeroSnapshot()

	for _, script := range doc.Find("script").Nodes {
		text := htmlutil.GetText(script)
		for _, candidate := range scriptDataRegex.FindAllString(text, -1) {
			var payload map[string]any
			// malformed candidates are skipped, the label pass below
			// still gets its chance
			if json.Unmarshal([]byte(candidate), &payload) != nil {
				continue
			}
			copyJsonCounter(payload, "Total_Calls", &snapshot.TotalCalls)
			copyJsonCounter(payload, "TMC", &snapshot.TeleManasCells)
			copyJsonCounter(payload, "MI", &snapshot.MentoringInstitutes)
			copyJsonCounter(payload, "RCC", &snapshot.RegionalCoordinatingCenters)
		}
	}

	text := string(markup)
	for _, pattern := range labelPatterns {
		groups := pattern.re.FindStringSubmatch(text)
		if len(groups) < 2 {
			continue
		}
		value, ok := htmlutil.NormalizeCount(groups[1])
		if !ok {
			continue
		}
		*pattern.field(&snapshot) = value
	}

	return snapshot, nil
}

func copyJsonCounter(payload map[string]any, key string, dst *string) {
	value := jsonField(payload, key, "")
	if value == "" {
		return
	}
	*dst = value
}
