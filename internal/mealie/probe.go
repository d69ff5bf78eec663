package mealie

import (
	"context"
	"errors"
	"net/http"

	"github.com/mmcdole/ladle/internal/domain"
)

const (
	aboutPathV1   = "/api/app/about"
	versionPathV0 = "/api/debug/version"
)

// RequestVersion checks that baseURL serves a Mealie API and returns its
// version. The 1.x endpoint is asked first; the pre-1.0 endpoint only when
// the first answer did not look like Mealie.
func (c *Client) RequestVersion(ctx context.Context, baseURL string) (*domain.VersionInfo, error) {
	info, err := c.requestVersion(ctx, baseURL, aboutPathV1)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, domain.ErrNotMealie) {
		return nil, err
	}

	c.logger.Debug("v1 version endpoint rejected, trying v0", "url", baseURL, "error", err)
	return c.requestVersion(ctx, baseURL, versionPathV0)
}

func (c *Client) requestVersion(ctx context.Context, baseURL, path string) (*domain.VersionInfo, error) {
	var resp VersionResponse
	err := c.get(ctx, request{
		baseURL: baseURL,
		method:  http.MethodGet,
		path:    path,
		probe:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Version == "" {
		return nil, domain.NewNetworkError(domain.KindNotMealie, errors.New("response has no version"))
	}
	return &domain.VersionInfo{
		Version:    resp.Version,
		Production: resp.Production,
		DemoStatus: resp.DemoStatus,
	}, nil
}
