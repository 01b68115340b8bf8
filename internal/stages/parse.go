package stages

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	sectionOverview   = "Overview"
	sectionCriteria   = "evaluation criteria"
	maxDocumentBytes  = 5 << 20
	defaultFetchLimit = 20 * time.Second
)

// DocumentFetcher loads the text of a source document.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type httpFetcher struct {
	http *http.Client
}

func NewHTTPFetcher(client *http.Client) DocumentFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchLimit}
	}
	return &httpFetcher{http: client}
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &statusError{code: resp.StatusCode}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

type statusError struct{ code int }

func (e *statusError) Error() string       { return fmt.Sprintf("document fetch returned status=%d", e.code) }
func (e *statusError) HTTPStatusCode() int { return e.code }

// Parse is the reference parser. Without a document the RFP name becomes the only
// section; with one, the text is fetched and split on markdown headings.
func Parse(ctx context.Context, fetcher DocumentFetcher, req ParseRequest) (ParsedRFP, error) {
	meta := map[string]any{"name": req.Name}
	if req.DocumentURL == nil || strings.TrimSpace(*req.DocumentURL) == "" || fetcher == nil {
		meta["source"] = "inline"
		return ParsedRFP{
			Sections:           map[string]string{sectionOverview: req.Name},
			EvaluationCriteria: []Criterion{},
			Metadata:           meta,
		}, nil
	}
	text, err := fetcher.Fetch(ctx, *req.DocumentURL)
	if err != nil {
		return ParsedRFP{}, fmt.Errorf("fetch document: %w", err)
	}
	parsed, err := ParseText(text)
	if err != nil {
		return ParsedRFP{}, err
	}
	meta["source"] = *req.DocumentURL
	meta["sectionCount"] = len(parsed.Sections)
	parsed.Metadata = meta
	return parsed, nil
}

// ParseText splits markdown-ish text into sections keyed by heading. Text before the
// first heading lands in "Overview". Lines of the "Evaluation Criteria" section shaped
// like "Name: 0.4" or "Name: 40%" become criteria.
func ParseText(text string) (ParsedRFP, error) {
	return parseText(text, maxDocumentBytes)
}

func parseText(text string, maxLine int) (ParsedRFP, error) {
	out := ParsedRFP{
		Sections:           map[string]string{},
		EvaluationCriteria: []Criterion{},
	}
	current := sectionOverview
	var body strings.Builder
	flush := func() {
		content := strings.TrimSpace(body.String())
		body.Reset()
		if content == "" {
			return
		}
		if prev, ok := out.Sections[current]; ok {
			content = prev + "\n" + content
		}
		out.Sections[current] = content
		if strings.EqualFold(current, sectionCriteria) {
			out.EvaluationCriteria = append(out.EvaluationCriteria, parseCriteria(content)...)
		}
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, min(64*1024, maxLine)), maxLine)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			current = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if current == "" {
				current = sectionOverview
			}
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return ParsedRFP{}, fmt.Errorf("read document: %w", err)
	}
	flush()
	return out, nil
}

func parseCriteria(content string) []Criterion {
	var out []Criterion
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*"))
		name, rawWeight, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		rawWeight = strings.TrimSpace(rawWeight)
		percent := strings.HasSuffix(rawWeight, "%")
		w, err := strconv.ParseFloat(strings.TrimSuffix(rawWeight, "%"), 64)
		if err != nil || name == "" {
			continue
		}
		if percent {
			w /= 100
		}
		out = append(out, Criterion{Criterion: name, Weight: w})
	}
	return out
}
