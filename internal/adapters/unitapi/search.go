package unitapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"unit-finder/internal/domain"
	"unit-finder/internal/platform/obs"

	"go.uber.org/zap"
)

// FetchByLocation searches units around c.
func (c *Client) FetchByLocation(
	ctx context.Context,
	coord domain.Coordinates,
	radiusMeters int,
) (_ []domain.HealthUnit, err error) {
	defer obs.Time(ctx, "unitapi.FetchByLocation")(&err)

	if !coord.Valid() {
		return nil, &domain.FetchError{
			Kind: domain.FetchInvalidQuery,
			Err:  &domain.ValidationError{Field: "coordinate", Reason: fmt.Sprintf("out of range %s", coord)},
		}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(radiusOrDefault(radiusMeters)))

	env, err := c.search(ctx, q)
	if err != nil {
		return nil, err
	}

	return env.units(), nil
}

// FetchByCity searches units around a named city. The returned location is
// the backend's geocoded search center, nil when it sent none.
func (c *Client) FetchByCity(
	ctx context.Context,
	city string,
	radiusMeters int,
) (_ []domain.HealthUnit, _ *domain.SearchLocation, err error) {
	defer obs.Time(ctx, "unitapi.FetchByCity")(&err)

	name := c.normalize(city)
	if name == "" {
		return nil, nil, &domain.FetchError{Kind: domain.FetchEmptyQuery, Err: domain.ErrEmptyCity}
	}

	q := url.Values{}
	q.Set("cidade", name)
	q.Set("radius", strconv.Itoa(radiusOrDefault(radiusMeters)))

	env, err := c.search(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	return env.units(), env.searchLocation(), nil
}

// search issues one GET /api/unidades request and classifies failures
// into *domain.FetchError.
func (c *Client) search(ctx context.Context, q url.Values) (*envelope, error) {
	endpoint := c.baseURL + "/api/unidades"

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, q)
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.FetchNetworkFailure, Err: err}
	}

	resp, err := c.do(req)
	if err != nil {
		var he *httpStatusError
		if errors.As(err, &he) {
			fe := &domain.FetchError{Kind: domain.FetchHTTPError, Status: he.Code, Err: he}
			// Failing envelopes still carry the backend's explanation.
			var env envelope
			if json.Unmarshal([]byte(he.Body), &env) == nil {
				fe.BackendMessage = env.Message
			}
			return nil, fe
		}
		return nil, &domain.FetchError{Kind: domain.FetchNetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.FetchError{
			Kind: domain.FetchNetworkFailure,
			Err:  fmt.Errorf("read unit response: %w", err),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.FetchError{
			Kind:   domain.FetchInvalidResponse,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("decode unit response: %w", err),
		}
	}

	if env.Success == nil {
		return nil, &domain.FetchError{
			Kind:           domain.FetchInvalidResponse,
			Status:         resp.StatusCode,
			BackendMessage: env.Message,
			Err:            errors.New("envelope has no success flag"),
		}
	}

	if !*env.Success {
		return nil, &domain.FetchError{
			Kind:           domain.FetchInvalidResponse,
			Status:         resp.StatusCode,
			BackendMessage: env.Message,
			Err:            fmt.Errorf("backend reported failure (error_code=%q)", env.ErrorCode),
		}
	}

	if env.Total != 0 && env.Total != len(env.Data) {
		c.log.Debug("unit total mismatch",
			zap.Int("total", env.Total),
			zap.Int("records", len(env.Data)),
			zap.String("req_id", obs.RequestID(ctx)),
		)
	}

	return &env, nil
}

func radiusOrDefault(radiusMeters int) int {
	if radiusMeters <= 0 {
		return DefaultRadiusMeters
	}
	return radiusMeters
}
