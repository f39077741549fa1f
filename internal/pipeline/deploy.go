package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPDeployer publishes builds through the same service that runs the
// build queue: POST /deploys with the project name and output dir.
// Project creation on the service side is idempotent.
type HTTPDeployer struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPDeployer(endpoint string) *HTTPDeployer {
	return &HTTPDeployer{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type deployRequest struct {
	ProjectName string `json:"project_name"`
	OutputDir   string `json:"output_dir"`
}

func (d *HTTPDeployer) Deploy(ctx context.Context, projectName, outputDir string) (*DeployResult, error) {
	body, err := json.Marshal(deployRequest{ProjectName: projectName, OutputDir: outputDir})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deploy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/deploys", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create deploy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deploy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("deploy service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result DeployResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode deploy result: %w", err)
	}
	if result.URL == "" {
		return nil, fmt.Errorf("deploy service returned no URL")
	}
	return &result, nil
}
