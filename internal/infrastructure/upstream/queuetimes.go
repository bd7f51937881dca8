package upstream

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
)

// QueueTimesProvider reads queue-times.com. The API exposes park groups with
// rides and live wait times; there is no schedule endpoint.
type QueueTimesProvider struct {
	client  *Client
	baseURL string
}

var _ Provider = (*QueueTimesProvider)(nil)

func NewQueueTimesProvider(client *Client, baseURL string) *QueueTimesProvider {
	return &QueueTimesProvider{client: client, baseURL: baseURL}
}

func (p *QueueTimesProvider) Source() park.Source { return park.SourceQueueTimes }

type qtGroup struct {
	ID    *int     `json:"id"`
	Name  *string  `json:"name"`
	Parks []qtPark `json:"parks"`
}

// queue-times serializes coordinates as strings.
type qtPark struct {
	ID        *int    `json:"id"`
	Name      *string `json:"name"`
	Country   *string `json:"country"`
	Latitude  *string `json:"latitude"`
	Longitude *string `json:"longitude"`
	Timezone  *string `json:"timezone"`
}

type qtQueueTimes struct {
	Lands []qtLand `json:"lands"`
	Rides []qtRide `json:"rides"`
}

type qtLand struct {
	Rides []qtRide `json:"rides"`
}

type qtRide struct {
	ID          *int    `json:"id"`
	Name        *string `json:"name"`
	IsOpen      *bool   `json:"is_open"`
	WaitTime    *int    `json:"wait_time"`
	LastUpdated *string `json:"last_updated"`
}

func (p *QueueTimesProvider) FetchParks(ctx context.Context) ([]ProviderPark, error) {
	var groups []qtGroup
	if err := p.client.GetJSON(ctx, p.Source(), p.baseURL+"/parks.json", nil, &groups); err != nil {
		return nil, errs.Wrap(err, "fetch queue-times parks")
	}

	var parks []ProviderPark
	for _, group := range groups {
		for _, raw := range group.Parks {
			if raw.ID == nil || raw.Name == nil || *raw.Name == "" {
				continue
			}
			parks = append(parks, ProviderPark{
				ExternalID: strconv.Itoa(*raw.ID),
				Name:       *raw.Name,
				Timezone:   raw.Timezone,
				Country:    raw.Country,
				Latitude:   parseCoord(raw.Latitude),
				Longitude:  parseCoord(raw.Longitude),
			})
		}
	}
	return parks, nil
}

func (p *QueueTimesProvider) FetchChildren(ctx context.Context, parkExternalID string) ([]ProviderChild, error) {
	payload, err := p.fetchQueueTimes(ctx, parkExternalID)
	if err != nil {
		return nil, err
	}

	var children []ProviderChild
	for _, ride := range payload.allRides() {
		if ride.ID == nil || ride.Name == nil || *ride.Name == "" {
			continue
		}
		children = append(children, ProviderChild{
			ExternalID: strconv.Itoa(*ride.ID),
			Name:       *ride.Name,
			Kind:       park.KindAttraction,
		})
	}
	return children, nil
}

func (p *QueueTimesProvider) FetchLive(ctx context.Context, parkExternalID string) ([]LiveEntry, error) {
	payload, err := p.fetchQueueTimes(ctx, parkExternalID)
	if err != nil {
		return nil, err
	}

	var entries []LiveEntry
	for _, ride := range payload.allRides() {
		if ride.ID == nil {
			continue
		}
		entry := LiveEntry{
			ExternalID: strconv.Itoa(*ride.ID),
			Kind:       park.KindAttraction,
			QueueType:  park.QueueStandby,
			WaitTime:   ride.WaitTime,
		}
		if ride.IsOpen != nil {
			status := string(park.StatusClosed)
			if *ride.IsOpen {
				status = string(park.StatusOperating)
			}
			entry.Status = &status
		}
		if ride.LastUpdated != nil {
			if at, parseErr := time.Parse(time.RFC3339, *ride.LastUpdated); parseErr == nil {
				entry.LastUpdated = &at
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (p *QueueTimesProvider) FetchSchedule(context.Context, string) ([]ProviderSchedule, error) {
	// queue-times has no schedule API.
	return nil, nil
}

func (p *QueueTimesProvider) fetchQueueTimes(ctx context.Context, parkExternalID string) (qtQueueTimes, error) {
	var payload qtQueueTimes
	url := fmt.Sprintf("%s/parks/%s/queue_times.json", p.baseURL, parkExternalID)
	if err := p.client.GetJSON(ctx, p.Source(), url, nil, &payload); err != nil {
		return qtQueueTimes{}, errs.Wrap(err, "fetch queue-times wait times")
	}
	return payload, nil
}

func (q qtQueueTimes) allRides() []qtRide {
	rides := make([]qtRide, 0, len(q.Rides))
	rides = append(rides, q.Rides...)
	for _, land := range q.Lands {
		rides = append(rides, land.Rides...)
	}
	return rides
}

func parseCoord(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	value, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return nil
	}
	return &value
}
