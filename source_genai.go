package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"departureboard/log"

	"google.golang.org/genai"
)

// generateRequest is one call to the generative service.
type generateRequest struct {
	Prompt string
	// Grounded asks the service to ground its answer with web search.
	Grounded bool
	// JSON asks for a response body that is valid JSON text.
	JSON bool
}

type generation struct {
	Text    string
	Sources []Source
}

type generator interface {
	Generate(ctx context.Context, req generateRequest) (generation, error)
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func newGenaiGenerator(ctx context.Context, apiKey, model string, httpClient *http.Client) (*genaiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return &genaiGenerator{client: client, model: model}, nil
}

func (g *genaiGenerator) Generate(ctx context.Context, req generateRequest) (generation, error) {
	config := &genai.GenerateContentConfig{}
	if req.Grounded {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		return generation{}, err
	}

	out := generation{Text: resp.Text()}
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			out.Sources = append(out.Sources, Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
		}
	}
	return out, nil
}

// AIDepartureSource asks a search-grounded model for live departures in free
// text, then asks it again to convert that text into a JSON array.
type AIDepartureSource struct {
	gen generator
	now func() time.Time
}

func NewAIDepartureSource(gen generator) *AIDepartureSource {
	return &AIDepartureSource{gen: gen, now: time.Now}
}

func (s *AIDepartureSource) Fetch(ctx context.Context, st Station) (*StationData, error) {
	search, err := s.gen.Generate(ctx, generateRequest{Prompt: searchPrompt(st), Grounded: true})
	if err != nil {
		return nil, fetchFailed(err, st)
	}
	log.Debug("departure search answered", "station", st.Name, "chars", len(search.Text), "sources", len(search.Sources))

	extracted, err := s.gen.Generate(ctx, generateRequest{Prompt: extractionPrompt(search.Text), JSON: true})
	if err != nil {
		return nil, fetchFailed(err, st)
	}

	raw, err := parseDepartures(extracted.Text)
	if err != nil {
		return nil, fetchFailed(err, st)
	}
	return newStationData(st, raw, search.Sources, s.now()), nil
}

func searchPrompt(st Station) string {
	name := st.Name + " Station"
	if st.Code != "" {
		name += " (" + st.Code + ")"
	}
	return fmt.Sprintf(`Provide a list of CURRENT real-time live departures from %s.
Include ALL services calling there: National Rail operators, London Underground lines and Tramlink where present.

For each departure, identify:
- Destination
- Scheduled departure time
- Platform number
- Status (e.g., On time, Delayed, Cancelled)
- Operator (e.g., SWR, Southern, TfL)
- Type (TRAIN, TUBE, or TRAM)

Return the data in a clean structured format that can be parsed easily.
Focus on departures happening in the next 60 to 90 minutes.`, name)
}

func extractionPrompt(text string) string {
	return `Extract the departure information from the following text into a valid JSON array.
The JSON should be an array of objects with these keys:
"destination" (string), "time" (string, HH:MM), "platform" (string), "status" (string), "operator" (string), "type" (string: "TRAIN", "TUBE", or "TRAM").

Text:
` + text
}

// parseDepartures decodes the extraction answer. An empty answer is an empty
// board; anything that is not a JSON array is an error.
func parseDepartures(text string) ([]rawDeparture, error) {
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
		body = strings.TrimSpace(body)
	}
	if body == "" {
		return []rawDeparture{}, nil
	}
	var raw []rawDeparture
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("decode extracted departures: %w", err)
	}
	return raw, nil
}
