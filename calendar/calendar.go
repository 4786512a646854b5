// Package calendar exports recorded trips as an iCalendar feed, one all-day
// event per trip. DTEND is the arrival day, which iCalendar treats as
// exclusive, so the event spans exactly the days counted as absent.
package calendar

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/warp/residency-engine/residency"
)

// iCalendar properties and values.
const (
	PropVersion   = "VERSION"
	PropProdID    = "PRODID"
	PropCalName   = "X-WR-CALNAME"
	PropCalScale  = "CALSCALE"
	PropMethod    = "METHOD"
	PropUID       = "UID"
	PropSummary   = "SUMMARY"
	PropDTStart   = "DTSTART"
	PropDTEnd     = "DTEND"
	PropDTStamp   = "DTSTAMP"
	PropTransp    = "TRANSP"
	PropCategory  = "CATEGORIES"
	ICalVersion   = "2.0"
	ICalProdID    = "-//Residency Engine//Trips//EN"
	ICalScale     = "GREGORIAN"
	ICalMethod    = "PUBLISH"
	ICalDomain    = "residency-engine"
	ICalTransp    = "TRANSPARENT"
	ICalCategory  = "TRAVEL"
	DefaultName   = "Trips abroad"
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:" + ICalVersion + "\r\nPRODID:" + ICalProdID + "\r\nEND:VCALENDAR\r\n"
)

// Exporter renders trips. Summary, when set, names each event.
type Exporter struct {
	Name    string
	Summary func(residency.Trip) string
}

// Encode writes the calendar. now stamps every event (DTSTAMP).
// An empty trip list yields a valid calendar with no events.
func (e Exporter) Encode(trips []residency.Trip, now time.Time) ([]byte, error) {
	if len(trips) == 0 {
		return []byte(StubVCalendar), nil
	}

	name := e.Name
	if name == "" {
		name = DefaultName
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(PropVersion, ICalVersion)
	cal.Props.SetText(PropProdID, ICalProdID)
	cal.Props.SetText(PropCalName, name)
	cal.Props.SetText(PropCalScale, ICalScale)
	cal.Props.SetText(PropMethod, ICalMethod)

	dtStamp := ical.NewProp(PropDTStamp)
	dtStamp.SetDateTime(now.UTC())

	for _, t := range trips {
		event := ical.NewEvent()
		event.Props.SetText(PropUID, fmt.Sprintf("%s@%s", t.ID, ICalDomain))
		event.Props.SetText(PropSummary, e.summary(t))
		event.Props.SetText(PropTransp, ICalTransp)
		event.Props.SetText(PropCategory, ICalCategory)
		event.Props.Set(dtStamp)

		start := ical.NewProp(PropDTStart)
		start.SetDate(t.Departure.Time)
		event.Props.Set(start)

		end := ical.NewProp(PropDTEnd)
		end.SetDate(t.Arrival.Time)
		event.Props.Set(end)

		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode iCalendar data: %w", err)
	}
	return buf.Bytes(), nil
}

func (e Exporter) summary(t residency.Trip) string {
	if e.Summary != nil {
		return e.Summary(t)
	}
	return fmt.Sprintf("Abroad (%d days)", t.DurationDays())
}
