package wine

// Status is the cellar state of a record.
type Status string

const (
	StatusInCellar Status = "in_cellar"
	StatusConsumed Status = "consumed"
	StatusSold     Status = "sold"
	StatusGifted   Status = "gifted"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInCellar, StatusConsumed, StatusSold, StatusGifted:
		return true
	}
	return false
}

// Wine is one bottle (or case) tracked in a dataset.
type Wine struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Country        string   `json:"country"`
	Region         string   `json:"region"`
	Vintage        int      `json:"vintage,omitempty"`
	Grapes         string   `json:"grapes"`
	Style          string   `json:"style"`
	DrinkingWindow string   `json:"drinkingWindow"`
	PeakYear       int      `json:"peakYear,omitempty"`
	Status         Status   `json:"status"`
	ConsumedDate   *string  `json:"consumedDate"`
	Location       string   `json:"location"`
	Quantity       int      `json:"quantity"`
	Price          *float64 `json:"price"`
	Rating         *float64 `json:"rating"`
	Notes          string   `json:"notes"`
	FromCellar     bool     `json:"fromCellar"`
	BottleImage    string   `json:"bottle_image,omitempty"`
	TechnicalSheet string   `json:"technical_sheet,omitempty"`
}

// Dataset is an ordered collection of wines persisted as one JSON document.
type Dataset []Wine

// Clone returns a copy that shares no pointers with w.
func (w Wine) Clone() Wine {
	c := w
	if w.ConsumedDate != nil {
		v := *w.ConsumedDate
		c.ConsumedDate = &v
	}
	if w.Price != nil {
		v := *w.Price
		c.Price = &v
	}
	if w.Rating != nil {
		v := *w.Rating
		c.Rating = &v
	}
	return c
}

// ApplyDefaults fills the fields a freshly created record must carry.
func (w *Wine) ApplyDefaults() {
	if w.Status == "" {
		w.Status = StatusInCellar
	}
	if w.Quantity == 0 {
		w.Quantity = 1
	}
}
