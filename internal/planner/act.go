package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/gridcity/internal/world"
)

// BuildResult is the response from POST /api/v1/commit.
type BuildResult struct {
	Building *struct {
		ID        string     `json:"id"`
		Archetype string     `json:"archetype"`
		Anchor    world.Cell `json:"anchor"`
	} `json:"building"`
	Money      int `json:"money"`
	Population int `json:"population"`
}

// Actor places buildings through the player command endpoints.
type Actor struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL.
func NewActor(baseURL string) *Actor {
	return &Actor{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Act carries out a build decision as select, hover, commit. If any step
// fails the selection is cancelled so the city is left idle.
func (a *Actor) Act(d *Decision) (*BuildResult, error) {
	if d.Action != ActionBuild {
		return nil, fmt.Errorf("nothing to do for action %q", d.Action)
	}

	if err := a.post("/api/v1/select", map[string]any{"id": d.Archetype}, nil); err != nil {
		return nil, err
	}
	if err := a.post("/api/v1/hover", map[string]int{"x": d.Anchor.X, "y": d.Anchor.Y}, nil); err != nil {
		a.post("/api/v1/cancel", nil, nil)
		return nil, err
	}

	var result BuildResult
	if err := a.post("/api/v1/commit", nil, &result); err != nil {
		a.post("/api/v1/cancel", nil, nil)
		return nil, err
	}
	return &result, nil
}

// post sends body as JSON to path and decodes the response into out when set.
func (a *Actor) post(path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, a.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST %s failed (%d): %s", path, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return nil
}
