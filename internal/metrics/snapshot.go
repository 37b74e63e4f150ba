package metrics

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/facts"
	"github.com/sells-group/retail-cli/internal/store"
)

// Snapshot metric names.
const (
	TotalSalesMetric = "total_sales"
	YoYGrowthMetric  = "yoy_growth_pct"
	MoMGrowthMetric  = "mom_growth_pct"
	TopShareMetric   = "top5_state_growth_share_pct"
)

// topStates is how many states the concentration metric keeps.
const topStates = 5

// trailingMonths is the averaging window of the snapshot.
const trailingMonths = 12

// Metric is one row of the metrics snapshot.
type Metric struct {
	Metric      string   `csv:"metric"`
	LatestMonth string   `csv:"latest_month"`
	LatestValue *float64 `csv:"latest_value"`
	Last12mAvg  *float64 `csv:"last_12m_avg"`
}

// Headline bundles the series behind the snapshot and the charts.
type Headline struct {
	TotalSales Series
	YoY        Series
	MoM        Series
	TopShare   Series
}

// NewHeadline derives every headline series from the fact tables.
func NewHeadline(national []facts.NationalRow, state []facts.StateRow) *Headline {
	total := TotalSales(national)
	return &Headline{
		TotalSales: total,
		YoY:        PctChange(total, 12),
		MoM:        PctChange(total, 1),
		TopShare:   TopShare(state, topStates),
	}
}

// Snapshot reports each headline metric at the latest national month and
// averaged over the trailing twelve months.
func (h *Headline) Snapshot() ([]Metric, error) {
	if len(h.TotalSales) == 0 {
		return nil, eris.New("metrics: national table has no months")
	}
	latest := h.TotalSales.Latest().Month

	row := func(name string, s Series) Metric {
		return Metric{
			Metric:      name,
			LatestMonth: latest.String(),
			LatestValue: s.At(latest),
			Last12mAvg:  s.TrailingMean(latest, trailingMonths),
		}
	}
	return []Metric{
		row(TotalSalesMetric, h.TotalSales),
		row(YoYGrowthMetric, h.YoY),
		row(MoMGrowthMetric, h.MoM),
		row(TopShareMetric, h.TopShare),
	}, nil
}

// WriteSnapshot writes the snapshot CSV to path.
func WriteSnapshot(path string, metrics []Metric) error {
	if err := store.WriteCSVFile(path, metrics); err != nil {
		return eris.Wrap(err, "metrics: write snapshot")
	}
	zap.L().Info("wrote", zap.String("path", path))
	return nil
}
