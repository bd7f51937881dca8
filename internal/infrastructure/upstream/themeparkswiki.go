package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
)

// ThemeparksWikiProvider reads api.themeparks.wiki, the most authoritative
// source: it is the only one carrying schedules and typed child entities.
type ThemeparksWikiProvider struct {
	client  *Client
	baseURL string
}

var _ Provider = (*ThemeparksWikiProvider)(nil)

func NewThemeparksWikiProvider(client *Client, baseURL string) *ThemeparksWikiProvider {
	return &ThemeparksWikiProvider{client: client, baseURL: baseURL}
}

func (p *ThemeparksWikiProvider) Source() park.Source { return park.SourceThemeparksWiki }

type tpwDestinations struct {
	Destinations []tpwDestination `json:"destinations"`
}

type tpwDestination struct {
	ID    *string   `json:"id"`
	Name  *string   `json:"name"`
	Parks []tpwPark `json:"parks"`
}

type tpwPark struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

type tpwEntity struct {
	ID       *string      `json:"id"`
	Name     *string      `json:"name"`
	Timezone *string      `json:"timezone"`
	Location *tpwLocation `json:"location"`
}

type tpwLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type tpwChildren struct {
	Children []tpwChild `json:"children"`
}

type tpwChild struct {
	ID         *string `json:"id"`
	Name       *string `json:"name"`
	EntityType *string `json:"entityType"`
}

type tpwLive struct {
	LiveData []tpwLiveEntry `json:"liveData"`
}

type tpwLiveEntry struct {
	ID         *string             `json:"id"`
	EntityType *string             `json:"entityType"`
	Status     *string             `json:"status"`
	Queue      map[string]tpwQueue `json:"queue"`
}

type tpwQueue struct {
	WaitTime    *int       `json:"waitTime"`
	State       *string    `json:"state"`
	ReturnStart *time.Time `json:"returnStart"`
	ReturnEnd   *time.Time `json:"returnEnd"`
}

type tpwSchedule struct {
	Schedule []tpwScheduleEntry `json:"schedule"`
}

type tpwScheduleEntry struct {
	Date        *string    `json:"date"`
	Type        *string    `json:"type"`
	OpeningTime *time.Time `json:"openingTime"`
	ClosingTime *time.Time `json:"closingTime"`
}

func (p *ThemeparksWikiProvider) FetchParks(ctx context.Context) ([]ProviderPark, error) {
	var payload tpwDestinations
	if err := p.client.GetJSON(ctx, p.Source(), p.baseURL+"/destinations", nil, &payload); err != nil {
		return nil, errs.Wrap(err, "fetch themeparks-wiki destinations")
	}

	var parks []ProviderPark
	for _, destination := range payload.Destinations {
		for _, raw := range destination.Parks {
			if raw.ID == nil || raw.Name == nil || *raw.Name == "" {
				continue
			}

			entry := ProviderPark{ExternalID: *raw.ID, Name: *raw.Name}

			// The destinations listing is shallow; the entity endpoint
			// carries timezone and coordinates.
			var entity tpwEntity
			if err := p.client.GetJSON(ctx, p.Source(), p.baseURL+"/entity/"+*raw.ID, nil, &entity); err == nil {
				entry.Timezone = entity.Timezone
				if entity.Location != nil {
					entry.Latitude = entity.Location.Latitude
					entry.Longitude = entity.Location.Longitude
				}
			}

			parks = append(parks, entry)
		}
	}
	return parks, nil
}

func (p *ThemeparksWikiProvider) FetchChildren(ctx context.Context, parkExternalID string) ([]ProviderChild, error) {
	var payload tpwChildren
	url := fmt.Sprintf("%s/entity/%s/children", p.baseURL, parkExternalID)
	if err := p.client.GetJSON(ctx, p.Source(), url, nil, &payload); err != nil {
		return nil, errs.Wrap(err, "fetch themeparks-wiki children")
	}

	var children []ProviderChild
	for _, raw := range payload.Children {
		if raw.ID == nil || raw.Name == nil || *raw.Name == "" || raw.EntityType == nil {
			continue
		}

		kind, ok := tpwEntityKind(*raw.EntityType)
		if !ok {
			continue
		}

		children = append(children, ProviderChild{
			ExternalID: *raw.ID,
			Name:       *raw.Name,
			Kind:       kind,
		})
	}
	return children, nil
}

func (p *ThemeparksWikiProvider) FetchLive(ctx context.Context, parkExternalID string) ([]LiveEntry, error) {
	var payload tpwLive
	url := fmt.Sprintf("%s/entity/%s/live", p.baseURL, parkExternalID)
	if err := p.client.GetJSON(ctx, p.Source(), url, nil, &payload); err != nil {
		return nil, errs.Wrap(err, "fetch themeparks-wiki live data")
	}

	var entries []LiveEntry
	for _, raw := range payload.LiveData {
		if raw.ID == nil {
			continue
		}

		// Live data includes the park itself and other untracked entity
		// types; only typed child entities are usable.
		var kind park.EntityKind
		if raw.EntityType != nil {
			mapped, ok := tpwEntityKind(*raw.EntityType)
			if !ok {
				continue
			}
			kind = mapped
		}

		if len(raw.Queue) == 0 {
			entries = append(entries, LiveEntry{
				ExternalID: *raw.ID,
				Kind:       kind,
				QueueType:  park.QueueStandby,
				Status:     raw.Status,
			})
			continue
		}

		for queueName, queue := range raw.Queue {
			queueType, ok := mapQueueType(queueName)
			if !ok {
				continue
			}
			entries = append(entries, LiveEntry{
				ExternalID:       *raw.ID,
				Kind:             kind,
				QueueType:        queueType,
				Status:           raw.Status,
				WaitTime:         queue.WaitTime,
				ReturnStart:      queue.ReturnStart,
				ReturnEnd:        queue.ReturnEnd,
				AllocationStatus: queue.State,
			})
		}
	}
	return entries, nil
}

func tpwEntityKind(entityType string) (park.EntityKind, bool) {
	switch entityType {
	case "ATTRACTION":
		return park.KindAttraction, true
	case "SHOW":
		return park.KindShow, true
	case "RESTAURANT":
		return park.KindRestaurant, true
	default:
		return "", false
	}
}

func (p *ThemeparksWikiProvider) FetchSchedule(ctx context.Context, parkExternalID string) ([]ProviderSchedule, error) {
	var payload tpwSchedule
	url := fmt.Sprintf("%s/entity/%s/schedule", p.baseURL, parkExternalID)
	if err := p.client.GetJSON(ctx, p.Source(), url, nil, &payload); err != nil {
		return nil, errs.Wrap(err, "fetch themeparks-wiki schedule")
	}

	var entries []ProviderSchedule
	for _, raw := range payload.Schedule {
		if raw.Date == nil || raw.Type == nil {
			continue
		}
		entries = append(entries, ProviderSchedule{
			Date:        *raw.Date,
			Type:        *raw.Type,
			OpeningTime: raw.OpeningTime,
			ClosingTime: raw.ClosingTime,
		})
	}
	return entries, nil
}

func mapQueueType(name string) (park.QueueType, bool) {
	switch name {
	case "STANDBY":
		return park.QueueStandby, true
	case "SINGLE_RIDER":
		return park.QueueSingleRider, true
	case "RETURN_TIME", "BOARDING_GROUP":
		return park.QueueVirtual, true
	case "PAID_RETURN_TIME":
		return park.QueuePaidReturnTime, true
	case "SHOWTIMES":
		return park.QueueShowtimes, true
	}
	return "", false
}
