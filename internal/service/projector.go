package service

import (
	"time"

	"github.com/BladexZN/dashboard-c/internal/models"
)

// LatestEvent returns the event with the greatest timestamp. Seq only decides
// between events that share a timestamp, so a late-arriving event carrying an
// earlier timestamp never becomes current.
func LatestEvent(events []models.StatusEvent) (models.StatusEvent, bool) {
	var (
		latest models.StatusEvent
		found  bool
	)
	for _, event := range events {
		if !found || eventAfter(event, latest) {
			latest = event
			found = true
		}
	}
	return latest, found
}

// CurrentStatus projects the status of one request from its event log. An
// empty log resolves to Pendiente.
func CurrentStatus(events []models.StatusEvent) models.RequestStatus {
	latest, ok := LatestEvent(events)
	if !ok {
		return models.StatusPending
	}
	return latest.Status
}

// LatestEvents builds the request-id to latest-event map in one pass over the
// full event set.
func LatestEvents(events []models.StatusEvent) map[string]models.StatusEvent {
	latest := make(map[string]models.StatusEvent, len(events))
	for _, event := range events {
		current, ok := latest[event.RequestID]
		if !ok || eventAfter(event, current) {
			latest[event.RequestID] = event
		}
	}
	return latest
}

// Project attaches the projected status and display names to every request.
// Requests without events in the map are Pendiente.
func Project(requests []models.Request, latest map[string]models.StatusEvent, userNames map[string]string) []models.RequestView {
	views := make([]models.RequestView, 0, len(requests))
	for _, req := range requests {
		view := models.RequestView{
			Request:      req,
			DisplayFolio: req.DisplayFolio(),
			Status:       models.StatusPending,
		}
		if event, ok := latest[req.ID]; ok {
			view.Status = event.Status
			ts := event.Timestamp
			view.StatusAt = &ts
		}
		if req.AdvisorID != nil {
			view.AdvisorName = userNames[*req.AdvisorID]
		}
		if req.DeletedBy != nil {
			view.DeletedByName = userNames[*req.DeletedBy]
		}
		views = append(views, view)
	}
	return views
}

// CountByStatus derives the headline counters from projected views.
func CountByStatus(views []models.RequestView) models.DashboardCounts {
	counts := models.DashboardCounts{Total: len(views)}
	for _, view := range views {
		switch view.Status {
		case models.StatusPending:
			counts.Pending++
		case models.StatusInProduction, models.StatusCorrection:
			counts.Production++
		case models.StatusDelivered:
			counts.Completed++
		}
	}
	return counts
}

func eventAfter(a, b models.StatusEvent) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.Seq > b.Seq
}

// hoursBetween clamps negative spans, which only clock skew can produce, to zero.
func hoursBetween(from, to time.Time) float64 {
	if to.Before(from) {
		return 0
	}
	return to.Sub(from).Hours()
}
