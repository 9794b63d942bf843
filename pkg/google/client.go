package google

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/tasklink/pkg/auth"
	"github.com/harrisonrobin/tasklink/pkg/index"
	"google.golang.org/api/calendar/v3"
)

// NewClient authenticates against Google Calendar using the credentials in
// configDir and resolves calendarName to its id.
func NewClient(ctx context.Context, configDir, calendarName string, idx *index.EventIndex) (*CalendarClient, error) {
	srv, err := auth.GetCalendarService(ctx, configDir)
	if err != nil {
		return nil, err
	}

	calendarID, err := findCalendarID(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}

	return NewCalendarClient(srv, calendarID, idx), nil
}

func findCalendarID(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	var calendarID string
	err := srv.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			if item.Summary == name {
				calendarID = item.Id
				return errStopPaging
			}
		}
		return nil
	})
	if err != nil && err != errStopPaging {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	if calendarID == "" {
		return "", fmt.Errorf("calendar '%s' not found", name)
	}
	return calendarID, nil
}
