package link

import (
	"sort"
	"strings"
	"time"

	"github.com/servicekpi/internal/config"
	"github.com/servicekpi/internal/identity"
	"github.com/servicekpi/internal/match"
	"github.com/servicekpi/internal/model"
)

// CorrelateGPS attaches the best fleet stop to each linked job: the
// technician's stopped segments starting within the configured window of
// the first appointment, scored by address similarity, best score at or
// above the threshold wins. Enrichment is strictly additive; rows without
// a usable stop are left alone. Returns the number of rows enriched.
func CorrelateGPS(linked []model.LinkedJob, segments []model.GpsSegment, ids *identity.Map, matcher *match.Matcher, cfg config.MatchingConfig) int {
	stops := make(map[string][]model.GpsSegment)
	for _, seg := range segments {
		if !strings.EqualFold(seg.Status, "Stopped") {
			continue
		}
		if seg.DurationSec < cfg.MinStopSec {
			continue
		}
		code := ids.CodeForDevice(seg.Device)
		if code == model.Unknown {
			continue
		}
		stops[code] = append(stops[code], seg)
	}
	for code := range stops {
		s := stops[code]
		sort.Slice(s, func(i, j int) bool { return s[i].StartTime.Before(s[j].StartTime) })
	}

	window := time.Duration(cfg.TimeWindowMin) * time.Minute
	attached := 0

	for i := range linked {
		lj := &linked[i]
		if lj.LinkStatus == model.LinkOrphan {
			continue
		}
		code := lj.Job.TechCode
		if code == "" || code == model.Unknown {
			continue
		}
		appmnt := lj.Job.FirstAppmnt
		if appmnt.IsZero() {
			continue
		}

		jobAddr := joinAddress(lj.Job.ServiceAddress, lj.Job.City, lj.Job.Zip)
		var best *model.GpsMatch
		for _, stop := range stops[code] {
			delta := stop.StartTime.Sub(appmnt)
			if delta < 0 {
				delta = -delta
			}
			if delta > window {
				continue
			}
			conf := matcher.Confidence(jobAddr, stop.Address)
			if conf < cfg.GPSThreshold {
				continue
			}
			if best == nil || conf > best.Confidence {
				best = &model.GpsMatch{
					StartTime:   stop.StartTime,
					EndTime:     stop.EndTime,
					DurationMin: float64(stop.DurationSec) / 60,
					Address:     stop.Address,
					Confidence:  conf,
				}
			}
		}
		if best != nil {
			lj.GPS = best
			attached++
		}
	}
	return attached
}

// AttachAlerts groups driving alerts by canonical technician code,
// sorted by time. Alerts from unmapped devices are dropped.
func AttachAlerts(alerts []model.AlertRecord, ids *identity.Map) map[string][]model.AlertRecord {
	grouped := make(map[string][]model.AlertRecord)
	for _, a := range alerts {
		code := ids.CodeForDevice(a.Device)
		if code == model.Unknown {
			continue
		}
		grouped[code] = append(grouped[code], a)
	}
	for code := range grouped {
		g := grouped[code]
		sort.Slice(g, func(i, j int) bool { return g[i].Time.Before(g[j].Time) })
	}
	return grouped
}

// joinAddress builds the comparable job-side address out of the street,
// city, and zip columns, skipping empty parts.
func joinAddress(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
