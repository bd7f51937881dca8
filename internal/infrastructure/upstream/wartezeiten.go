package upstream

import (
	"context"
	"net/http"
	"strings"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
)

// WartezeitenProvider reads api.wartezeiten.app. The park is selected via a
// request header; every ride row carries its own live state, so children and
// live data come from the same endpoint.
type WartezeitenProvider struct {
	client  *Client
	baseURL string
}

var _ Provider = (*WartezeitenProvider)(nil)

func NewWartezeitenProvider(client *Client, baseURL string) *WartezeitenProvider {
	return &WartezeitenProvider{client: client, baseURL: baseURL}
}

func (p *WartezeitenProvider) Source() park.Source { return park.SourceWartezeiten }

type wzPark struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

type wzRide struct {
	UUID        *string `json:"uuid"`
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	WaitingTime *int    `json:"waitingtime"`
	Status      *string `json:"status"`
}

func (p *WartezeitenProvider) FetchParks(ctx context.Context) ([]ProviderPark, error) {
	var rows []wzPark
	header := http.Header{"language": []string{"en"}}
	if err := p.client.GetJSON(ctx, p.Source(), p.baseURL+"/v1/parks", header, &rows); err != nil {
		return nil, errs.Wrap(err, "fetch wartezeiten parks")
	}

	var parks []ProviderPark
	for _, raw := range rows {
		if raw.ID == nil || raw.Name == nil || *raw.Name == "" {
			continue
		}
		parks = append(parks, ProviderPark{ExternalID: *raw.ID, Name: *raw.Name})
	}
	return parks, nil
}

func (p *WartezeitenProvider) FetchChildren(ctx context.Context, parkExternalID string) ([]ProviderChild, error) {
	rides, err := p.fetchRides(ctx, parkExternalID)
	if err != nil {
		return nil, err
	}

	var children []ProviderChild
	for _, ride := range rides {
		id, ok := wzRideID(ride)
		if !ok || ride.Name == nil || *ride.Name == "" {
			continue
		}
		children = append(children, ProviderChild{
			ExternalID: id,
			Name:       *ride.Name,
			Kind:       park.KindAttraction,
		})
	}
	return children, nil
}

func (p *WartezeitenProvider) FetchLive(ctx context.Context, parkExternalID string) ([]LiveEntry, error) {
	rides, err := p.fetchRides(ctx, parkExternalID)
	if err != nil {
		return nil, err
	}

	var entries []LiveEntry
	for _, ride := range rides {
		id, ok := wzRideID(ride)
		if !ok {
			continue
		}
		entry := LiveEntry{
			ExternalID: id,
			Kind:       park.KindAttraction,
			QueueType:  park.QueueStandby,
			WaitTime:   ride.WaitingTime,
		}
		if ride.Status != nil {
			status := mapWartezeitenStatus(*ride.Status)
			entry.Status = &status
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (p *WartezeitenProvider) FetchSchedule(context.Context, string) ([]ProviderSchedule, error) {
	// wartezeiten only exposes "open right now", not a dated schedule.
	return nil, nil
}

func (p *WartezeitenProvider) fetchRides(ctx context.Context, parkExternalID string) ([]wzRide, error) {
	var rows []wzRide
	header := http.Header{
		"language": []string{"en"},
		"park":     []string{parkExternalID},
	}
	if err := p.client.GetJSON(ctx, p.Source(), p.baseURL+"/v1/waitingtimes", header, &rows); err != nil {
		return nil, errs.Wrap(err, "fetch wartezeiten waiting times")
	}
	return rows, nil
}

func wzRideID(ride wzRide) (string, bool) {
	if ride.UUID != nil && *ride.UUID != "" {
		return *ride.UUID, true
	}
	if ride.Code != nil && *ride.Code != "" {
		return *ride.Code, true
	}
	return "", false
}

func mapWartezeitenStatus(raw string) string {
	switch strings.ToLower(raw) {
	case "opened", "open":
		return string(park.StatusOperating)
	case "maintenance":
		return string(park.StatusRefurbishment)
	default:
		return string(park.StatusClosed)
	}
}
