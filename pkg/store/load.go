package store

import (
	"go.uber.org/zap"

	"github.com/azybler/waymap/pkg/metrics"
	"github.com/azybler/waymap/pkg/osm"
)

// LoadReport counts what Load added and what it had to skip.
type LoadReport struct {
	Ways, Places, Areas int
	Skipped             int
}

// Load adds everything in an import result. Items that clash with existing
// ids are skipped and counted, not fatal, so repeated imports of overlapping
// extracts merge.
func (s *Store) Load(res *osm.ParseResult) LoadReport {
	var rep LoadReport

	s.netMu.Lock()
	for _, w := range res.Ways {
		if err := s.net.AddWay(w.ID, w.Coords); err != nil {
			s.log.Debug("load: way skipped", zap.String("way", string(w.ID)), zap.Error(err))
			rep.Skipped++
			continue
		}
		rep.Ways++
	}
	metrics.WayMutationsTotal.WithLabelValues("add").Add(float64(rep.Ways))
	metrics.WaysGauge.Set(float64(s.net.NumWays()))
	s.netMu.Unlock()

	s.regMu.Lock()
	for _, p := range res.Places {
		if err := s.reg.AddPlace(p); err != nil {
			s.log.Debug("load: place skipped", zap.Int64("place", int64(p.ID)), zap.Error(err))
			rep.Skipped++
			continue
		}
		rep.Places++
	}
	for _, a := range res.Areas {
		if err := s.reg.AddArea(a); err != nil {
			s.log.Debug("load: area skipped", zap.Int64("area", int64(a.ID)), zap.Error(err))
			rep.Skipped++
			continue
		}
		rep.Areas++
	}
	metrics.PlacesGauge.Set(float64(s.reg.PlaceCount()))
	metrics.AreasGauge.Set(float64(s.reg.AreaCount()))
	s.regMu.Unlock()

	s.log.Info("loaded import",
		zap.Int("ways", rep.Ways),
		zap.Int("places", rep.Places),
		zap.Int("areas", rep.Areas),
		zap.Int("skipped", rep.Skipped))
	return rep
}
