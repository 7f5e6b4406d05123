package filefilters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"easel/internal/config"
	"easel/internal/fileutil"
	"easel/internal/services"
)

// Perspective-style analyzers truncate silently past this length, so the
// payload is capped before sending.
const maxAnalyzedTextLength = 20400

// Toxicity rejects instances whose text content scores above the
// configured toxicity or sexually-explicit thresholds. Analyzer outages
// surface as errors, never as rejections.
type Toxicity struct {
	endpoint            string
	apiKey              string
	toxicityMax         float64
	sexuallyExplicitMax float64
	client              *http.Client
}

// NewToxicity builds the filter from the configured analyzer settings.
func NewToxicity(cfg config.Toxicity) *Toxicity {
	return &Toxicity{
		endpoint:            cfg.Endpoint,
		apiKey:              cfg.APIKey,
		toxicityMax:         cfg.ToxicityThreshold,
		sexuallyExplicitMax: cfg.SexuallyExplicitThreshold,
		client:              &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *Toxicity) Name() string { return "toxicity" }

type analyzeRequest struct {
	Comment struct {
		Text string `json:"text"`
	} `json:"comment"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
	Languages           []string            `json:"languages"`
	DoNotStore          bool                `json:"doNotStore"`
}

type analyzeResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

// Filter implements filter.FileFilter.
func (f *Toxicity) Filter(path string) (bool, map[string]any, error) {
	text, err := gatherText(path)
	if err != nil {
		return false, nil, err
	}
	if strings.TrimSpace(text) == "" {
		return true, map[string]any{"analyzed": false}, nil
	}

	scores, err := f.analyze(context.Background(), text)
	if err != nil {
		return false, nil, err
	}

	toxicity := scores["TOXICITY"]
	explicit := scores["SEXUALLY_EXPLICIT"]
	info := map[string]any{
		"analyzed":          true,
		"toxicity":          toxicity,
		"sexually_explicit": explicit,
	}
	if toxicity > f.toxicityMax || explicit > f.sexuallyExplicitMax {
		return false, info, nil
	}
	return true, info, nil
}

// gatherText concatenates the instance's code files, capped at the
// analyzer's text limit.
func gatherText(path string) (string, error) {
	files, err := fileutil.ListFiles(path)
	if err != nil {
		return "", services.Wrap(services.ErrFilter, "toxicity", "list", path, err)
	}

	var builder strings.Builder
	for _, rel := range files {
		ext := strings.ToLower(filepath.Ext(rel))
		if !contains(codeExtensions, ext) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(path, rel))
		if err != nil {
			return "", services.Wrap(services.ErrFilter, "toxicity", "read", rel, err)
		}
		builder.Write(data)
		builder.WriteByte('\n')
		if builder.Len() >= maxAnalyzedTextLength {
			break
		}
	}

	text := builder.String()
	if len(text) > maxAnalyzedTextLength {
		text = text[:maxAnalyzedTextLength]
	}
	return text, nil
}

func (f *Toxicity) analyze(ctx context.Context, text string) (map[string]float64, error) {
	var request analyzeRequest
	request.Comment.Text = text
	request.RequestedAttributes = map[string]struct{}{
		"TOXICITY":          {},
		"SEXUALLY_EXPLICIT": {},
	}
	request.Languages = []string{"en"}
	request.DoNotStore = true

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, services.Wrap(services.ErrFilter, "toxicity", "encode", "analyze request", err)
	}

	endpoint := f.endpoint
	if f.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(f.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrFilter, "toxicity", "analyze", f.endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrFilter, "toxicity", "analyze", f.endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrFilter, "toxicity", "analyze",
			fmt.Sprintf("status %d from analyzer", resp.StatusCode), nil)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, services.Wrap(services.ErrFilter, "toxicity", "decode", "analyze response", err)
	}

	scores := make(map[string]float64, len(parsed.AttributeScores))
	for name, attr := range parsed.AttributeScores {
		scores[name] = attr.SummaryScore.Value
	}
	return scores, nil
}
