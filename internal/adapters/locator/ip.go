package locator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unit-finder/internal/domain"
	"unit-finder/internal/platform/obs"
	"unit-finder/internal/ports"

	"go.uber.org/zap"
)

// DefaultIPLocatorURL answers with {status, message, lat, lon}.
const DefaultIPLocatorURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

type ipResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// IPLocator approximates the device position from its public IP address.
//
// Options follow the browser geolocation knobs: Timeout bounds each lookup
// and a fix younger than MaximumAge is reused without a request. IP lookups
// are city-level, so EnableHighAccuracy cannot be honored and is only
// reported once.
type IPLocator struct {
	session  *http.Client
	endpoint string
	opts     ports.LocateOptions
	log      *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	last      *domain.Coordinates
	lastAt    time.Time
	warnedAcc bool
}

func NewIPLocator(endpoint string, opts ports.LocateOptions, log *zap.Logger) *IPLocator {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultIPLocatorURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = ports.DefaultLocateOptions().Timeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &IPLocator{
		session:  &http.Client{},
		endpoint: endpoint,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

func (l *IPLocator) Locate(ctx context.Context) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "locator.ip.Locate")(&err)

	if c, ok := l.cached(); ok {
		return c, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return domain.Coordinates{}, &domain.LocationError{
			Code: domain.LocationUnsupported,
			Err:  fmt.Errorf("build ip lookup request: %w", err),
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.session.Do(req)
	if err != nil {
		return domain.Coordinates{}, &domain.LocationError{Code: classifyContext(err), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return domain.Coordinates{}, &domain.LocationError{
			Code: domain.LocationPermissionDenied,
			Err:  fmt.Errorf("ip lookup refused: status=%d", resp.StatusCode),
		}
	case resp.StatusCode >= 300:
		return domain.Coordinates{}, &domain.LocationError{
			Code: domain.LocationPositionUnavailable,
			Err:  fmt.Errorf("ip lookup failed: status=%d", resp.StatusCode),
		}
	}

	var decoded ipResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&decoded); err != nil {
		return domain.Coordinates{}, &domain.LocationError{Code: classifyContext(err), Err: fmt.Errorf("decode ip lookup: %w", err)}
	}

	if decoded.Status != "success" {
		msg := decoded.Message
		if msg == "" {
			msg = "status " + decoded.Status
		}
		return domain.Coordinates{}, &domain.LocationError{
			Code: domain.LocationPositionUnavailable,
			Err:  errors.New(msg),
		}
	}

	if decoded.Lat == nil || decoded.Lon == nil {
		return domain.Coordinates{}, &domain.LocationError{
			Code: domain.LocationPositionUnavailable,
			Err:  errors.New("ip lookup returned no coordinates"),
		}
	}

	c := domain.Coordinates{Lat: *decoded.Lat, Lon: *decoded.Lon}
	if !c.Valid() {
		return domain.Coordinates{}, &domain.LocationError{
			Code: domain.LocationPositionUnavailable,
			Err:  fmt.Errorf("ip lookup returned invalid position %s", c),
		}
	}

	l.store(c)
	return c, nil
}

func (l *IPLocator) cached() (domain.Coordinates, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.opts.EnableHighAccuracy && !l.warnedAcc {
		l.warnedAcc = true
		l.log.Info("high accuracy requested; ip geolocation is city-level")
	}

	if l.last == nil || l.opts.MaximumAge <= 0 {
		return domain.Coordinates{}, false
	}
	if l.now().Sub(l.lastAt) > l.opts.MaximumAge {
		return domain.Coordinates{}, false
	}
	return *l.last, true
}

func (l *IPLocator) store(c domain.Coordinates) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = &c
	l.lastAt = l.now()
}
