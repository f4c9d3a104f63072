package etl

import (
	"fmt"

	"github.com/servicekpi/internal/model"
)

// GPSKind names one of the fleet-platform export tables.
type GPSKind string

const (
	KindDayStartEnd GPSKind = "day_start_end"
	KindDrivesStops GPSKind = "drives_stops"
	KindDayEngine   GPSKind = "day_engine"
	KindIdleTime    GPSKind = "idle_time"
	KindAlert       GPSKind = "alert"
)

// GPSKinds lists every fleet table kind in load order.
var GPSKinds = []GPSKind{KindDayStartEnd, KindDrivesStops, KindDayEngine, KindIdleTime, KindAlert}

// GPSData collects the typed records of all fleet tables. Slices for
// tables that were not loaded stay nil.
type GPSData struct {
	Spans    []model.DaySpan      `json:"spans,omitempty"`
	Segments []model.GpsSegment   `json:"segments,omitempty"`
	Engine   []model.EngineDay    `json:"engine,omitempty"`
	Idle     []model.IdleInterval `json:"idle,omitempty"`
	Alerts   []model.AlertRecord  `json:"alerts,omitempty"`
}

// Merge folds another load's records into this one.
func (g *GPSData) Merge(other *GPSData) {
	if other == nil {
		return
	}
	g.Spans = append(g.Spans, other.Spans...)
	g.Segments = append(g.Segments, other.Segments...)
	g.Engine = append(g.Engine, other.Engine...)
	g.Idle = append(g.Idle, other.Idle...)
	g.Alerts = append(g.Alerts, other.Alerts...)
}

// LoadGPS reads one fleet export of the given kind. Every kind keys on
// the Device column; the rest of the shape differs per table.
func (ing *Ingestor) LoadGPS(kind GPSKind, path string) (*GPSData, *LoadReport, error) {
	table, err := ReadTable(path)
	if err != nil {
		return nil, nil, err
	}
	if err := table.Require("device"); err != nil {
		return nil, nil, err
	}

	report := newLoadReport(path, table)
	co := &Coercer{}
	data := &GPSData{}

	switch kind {
	case KindDayStartEnd:
		if err := table.Require("date"); err != nil {
			return nil, nil, err
		}
		for i, row := range table.Rows {
			device := table.Get(row, "device")
			if device == "" {
				report.warnf("row %d: missing device", i+2)
				continue
			}
			data.Spans = append(data.Spans, model.DaySpan{
				Device:    device,
				Date:      co.Timestamp(table.Get(row, "date")),
				StartTime: co.Timestamp(table.Get(row, "start time")),
				EndTime:   co.Timestamp(table.Get(row, "end time")),
			})
			ing.progress(path, len(data.Spans))
		}
		report.Loaded = len(data.Spans)

	case KindDrivesStops:
		if err := table.Require("status", "start time"); err != nil {
			return nil, nil, err
		}
		for i, row := range table.Rows {
			device := table.Get(row, "device")
			if device == "" {
				report.warnf("row %d: missing device", i+2)
				continue
			}
			data.Segments = append(data.Segments, model.GpsSegment{
				Device:      device,
				Status:      table.Get(row, "status"),
				StartTime:   co.Timestamp(table.Get(row, "start time")),
				EndTime:     co.Timestamp(table.Get(row, "end time")),
				DurationSec: co.DurationSec(table.Get(row, "duration")),
				Address:     table.Get(row, "address"),
				LengthMiles: co.Number(table.Get(row, "length (mi)")),
				TopSpeedMPH: co.Number(table.Get(row, "top speed (mph)")),
				AvgSpeedMPH: co.Number(table.Get(row, "avg speed (mph)")),
			})
			ing.progress(path, len(data.Segments))
		}
		report.Loaded = len(data.Segments)

	case KindDayEngine:
		if err := table.Require("date"); err != nil {
			return nil, nil, err
		}
		for i, row := range table.Rows {
			device := table.Get(row, "device")
			if device == "" {
				report.warnf("row %d: missing device", i+2)
				continue
			}
			data.Engine = append(data.Engine, model.EngineDay{
				Device:           device,
				Date:             co.Timestamp(table.Get(row, "date")),
				DailyHoursSec:    co.DurationSec(table.Get(row, "daily hours accumulated")),
				LifetimeHoursSec: co.DurationSec(table.Get(row, "lifetime hours")),
			})
			ing.progress(path, len(data.Engine))
		}
		report.Loaded = len(data.Engine)

	case KindIdleTime:
		if err := table.Require("start time"); err != nil {
			return nil, nil, err
		}
		for i, row := range table.Rows {
			device := table.Get(row, "device")
			if device == "" {
				report.warnf("row %d: missing device", i+2)
				continue
			}
			data.Idle = append(data.Idle, model.IdleInterval{
				Device:      device,
				StartTime:   co.Timestamp(table.Get(row, "start time")),
				DurationSec: co.DurationSec(table.Get(row, "duration")),
			})
			ing.progress(path, len(data.Idle))
		}
		report.Loaded = len(data.Idle)

	case KindAlert:
		if err := table.Require("alert type"); err != nil {
			return nil, nil, err
		}
		for i, row := range table.Rows {
			device := table.Get(row, "device")
			if device == "" {
				report.warnf("row %d: missing device", i+2)
				continue
			}
			data.Alerts = append(data.Alerts, model.AlertRecord{
				Device:      device,
				AlertType:   table.Get(row, "alert type"),
				Time:        co.Timestamp(table.Get(row, "date & time")),
				PostedSpeed: co.Number(table.Get(row, "posted speed")),
				Speed:       co.Number(table.Get(row, "speed")),
			})
			ing.progress(path, len(data.Alerts))
		}
		report.Loaded = len(data.Alerts)

	default:
		return nil, nil, fmt.Errorf("unknown GPS table kind %q", kind)
	}

	report.Coercions = co.Stats
	return data, report, nil
}
