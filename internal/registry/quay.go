package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/avareg/quickscan/pkg/types"
)

// Repository is one repository entry from the registry's namespace listing.
type Repository struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// TagInfo is one tag entry on a repository.
type TagInfo struct {
	Name           string `json:"name"`
	ManifestDigest string `json:"manifest_digest"`
}

// RepositoryDetail is the per-repository response, including its tags in
// registry order (newest first).
type RepositoryDetail struct {
	Namespace string    `json:"namespace"`
	Name      string    `json:"name"`
	Tags      []TagInfo `json:"tags"`
}

// repositoryList is the namespace listing response envelope.
type repositoryList struct {
	Repositories []Repository `json:"repositories"`
}

// ListRepositories fetches the repositories under a namespace from a
// Quay-compatible registry API.
// ListRepositories accepts an HTTPClientInterface so tests can inject a
// mock client; when nil, an oauth2 bearer-token client is constructed.
func ListRepositories(ctx context.Context, client types.HTTPClientInterface, token, fqdn,
	namespace string) ([]Repository, error) {
	url := fmt.Sprintf("https://%s/api/v1/repository?namespace=%s", fqdn, namespace)

	var list repositoryList
	if err := getJSON(ctx, client, token, url, &list); err != nil {
		return nil, err
	}
	return list.Repositories, nil
}

// GetRepository fetches one repository's detail, tags included.
func GetRepository(ctx context.Context, client types.HTTPClientInterface, token, fqdn,
	namespace, name string) (*RepositoryDetail, error) {
	url := fmt.Sprintf("https://%s/api/v1/repository/%s/%s", fqdn, namespace, name)

	var detail RepositoryDetail
	if err := getJSON(ctx, client, token, url, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func getJSON(ctx context.Context, client types.HTTPClientInterface, token, url string,
	out interface{}) error {
	if token == "" {
		return fmt.Errorf("registry API token is not provided")
	}

	if client == nil {
		// Fallback to a default HTTP client if none is provided.
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = oauth2.NewClient(ctx, ts)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing JSON response: %w", err)
	}
	return nil
}
