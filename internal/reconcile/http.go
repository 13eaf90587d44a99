package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ebersole/caravan/internal/model"
)

// APIFetcher fetches authoritative state over the JSON API. The supplied
// http.Client must carry the caller's session cookie (e.g. via a jar).
type APIFetcher struct {
	BaseURL string
	Client  *http.Client
}

func (f *APIFetcher) FetchActivity(ctx context.Context, activityID int64) (model.ActivityView, error) {
	var v model.ActivityView
	err := f.getJSON(ctx, fmt.Sprintf("%s/api/activities/%d", f.BaseURL, activityID), &v)
	return v, err
}

func (f *APIFetcher) FetchTrip(ctx context.Context, tripID int64) ([]model.ActivityView, error) {
	var views []model.ActivityView
	err := f.getJSON(ctx, fmt.Sprintf("%s/api/trips/%d/activities", f.BaseURL, tripID), &views)
	return views, err
}

func (f *APIFetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", model.ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
