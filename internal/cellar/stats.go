package cellar

import (
	"context"

	"github.com/aryannaik/cellar/internal/wine"
)

// Stats summarises a dataset.
type Stats struct {
	Records   int                 `json:"records"`
	Bottles   int                 `json:"bottles"`
	Value     float64             `json:"value"`
	ByStatus  map[wine.Status]int `json:"byStatus"`
	ByCountry map[string]int      `json:"byCountry"`
	ByStyle   map[string]int      `json:"byStyle"`
	// ReadyToDrink lists in-cellar wines whose peak year is this year or earlier.
	ReadyToDrink []string `json:"readyToDrink"`
}

// Stats counts bottles still in the cellar and values them at their
// recorded price. Country and style counts cover in-cellar records only.
func (s *Service) Stats(ctx context.Context, datasetID string) (Stats, error) {
	snap, err := s.store.Load(ctx, datasetID)
	if err != nil {
		return Stats{}, err
	}
	return summarize(snap.Records, s.now().Year()), nil
}

func summarize(d wine.Dataset, year int) Stats {
	st := Stats{
		Records:      len(d),
		ByStatus:     make(map[wine.Status]int),
		ByCountry:    make(map[string]int),
		ByStyle:      make(map[string]int),
		ReadyToDrink: []string{},
	}
	for _, w := range d {
		st.ByStatus[w.Status]++
		if w.Status != wine.StatusInCellar {
			continue
		}
		st.Bottles += w.Quantity
		if w.Price != nil {
			st.Value += *w.Price * float64(w.Quantity)
		}
		if w.Country != "" {
			st.ByCountry[w.Country]++
		}
		if w.Style != "" {
			st.ByStyle[w.Style]++
		}
		if w.PeakYear != 0 && w.PeakYear <= year {
			st.ReadyToDrink = append(st.ReadyToDrink, w.ID)
		}
	}
	return st
}
