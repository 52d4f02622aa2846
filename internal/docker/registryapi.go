package docker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	hubTokenURL    = "https://auth.docker.io/token?scope=repository:%s:pull&service=registry.docker.io"
	hubManifestURL = "https://registry-1.docker.io/v2/%s/manifests/%s"
	hubBlobURL     = "https://registry-1.docker.io/v2/%s/blobs/%s"
)

// HubClient looks up image metadata on the Docker Hub registry API.
type HubClient struct {
	httpClient  *http.Client
	tokenURL    string
	manifestURL string
	blobURL     string
}

func NewHubClient() *HubClient {
	return &HubClient{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		tokenURL:    hubTokenURL,
		manifestURL: hubManifestURL,
		blobURL:     hubBlobURL,
	}
}

// InspectRemoteImage fetches the configuration blob of image:tag without
// pulling it: anonymous pull token, manifest digest, then the config blob.
func (c *HubClient) InspectRemoteImage(image, tag string) (map[string]any, error) {
	token, err := c.token(image)
	if err != nil {
		return nil, err
	}

	digest, err := c.configDigest(image, tag, token)
	if err != nil {
		return nil, err
	}

	var blob map[string]any
	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := c.getJSON(fmt.Sprintf(c.blobURL, image, digest), headers, &blob); err != nil {
		return nil, fmt.Errorf("docker: fetching config blob for %s:%s: %w", image, tag, err)
	}
	return blob, nil
}

// RemoteImageLabels extracts the label map from a remote image's config.
func (c *HubClient) RemoteImageLabels(image, tag string) (map[string]string, error) {
	blob, err := c.InspectRemoteImage(image, tag)
	if err != nil {
		return nil, err
	}
	labels := map[string]string{}
	cfg, ok := blob["config"].(map[string]any)
	if !ok {
		return labels, nil
	}
	raw, ok := cfg["Labels"].(map[string]any)
	if !ok {
		return labels, nil
	}
	for key, value := range raw {
		if s, ok := value.(string); ok {
			labels[key] = s
		}
	}
	return labels, nil
}

func (c *HubClient) token(image string) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	if err := c.getJSON(fmt.Sprintf(c.tokenURL, image), nil, &res); err != nil {
		return "", fmt.Errorf("docker: fetching pull token for %s: %w", image, err)
	}
	if res.Token == "" {
		return "", fmt.Errorf("docker: registry returned an empty pull token for %s", image)
	}
	return res.Token, nil
}

func (c *HubClient) configDigest(image, tag, token string) (string, error) {
	var res struct {
		Config struct {
			Digest string `json:"digest"`
		} `json:"config"`
	}
	headers := map[string]string{
		"Accept":        "application/vnd.docker.distribution.manifest.v2+json",
		"Authorization": "Bearer " + token,
	}
	if err := c.getJSON(fmt.Sprintf(c.manifestURL, image, tag), headers, &res); err != nil {
		return "", fmt.Errorf("docker: fetching manifest for %s:%s: %w", image, tag, err)
	}
	if res.Config.Digest == "" {
		return "", fmt.Errorf("docker: manifest for %s:%s carries no config digest", image, tag)
	}
	return res.Config.Digest, nil
}

func (c *HubClient) getJSON(url string, headers map[string]string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", res.Status)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
