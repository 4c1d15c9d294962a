// Package calendar wraps the Google Calendar API for the read-only event
// listing the status engine consumes.
package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Client wraps the Google Calendar API service.
type Client struct {
	service *calendar.Service
}

// NewClient creates a new Google Calendar API client.
// Optionally accepts an endpoint URL for testing with mock servers.
func NewClient(ctx context.Context, httpClient *http.Client, endpoint ...string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}

	// Add endpoint override if provided
	if len(endpoint) > 0 && endpoint[0] != "" {
		opts = append(opts, option.WithEndpoint(endpoint[0]))
	}

	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}

	return &Client{
		service: srv,
	}, nil
}

// FetchEvents lists the events on one calendar between from and to, expanded
// to single events and ordered by start time. Pagination is followed to
// exhaustion. Any page failure fails the whole listing; there is no partial
// result.
func (c *Client) FetchEvents(ctx context.Context, calendarID string, from, to time.Time) ([]*calendar.Event, error) {
	call := c.service.Events.List(calendarID).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339))

	var out []*calendar.Event
	pageToken := ""

	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		events, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve events for %s: %w", calendarID, err)
		}

		out = append(out, events.Items...)

		pageToken = events.NextPageToken
		if pageToken == "" {
			return out, nil
		}
	}
}
