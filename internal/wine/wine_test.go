package wine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestValidate(t *testing.T) {
	valid := Wine{Name: "Barolo", Status: StatusInCellar, Quantity: 2, Vintage: 2016}

	t.Run("accepts a complete record", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("collects every rejected field", func(t *testing.T) {
		w := Wine{
			Status:       "drunk",
			Quantity:     0,
			Vintage:      1500,
			Price:        ptr(-1.0),
			Rating:       ptr(101.0),
			ConsumedDate: ptr("14/10/2026"),
			BottleImage:  "not a url",
		}

		err := w.Validate()
		require.Error(t, err)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)

		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fe.Field
		}
		assert.ElementsMatch(t, []string{"name", "status", "quantity", "vintage", "price", "rating", "consumedDate", "bottle_image"}, fields)
	})

	t.Run("does not couple status and consumedDate", func(t *testing.T) {
		w := valid
		w.ConsumedDate = ptr("2026-01-02")
		assert.NoError(t, w.Validate())
	})
}

func TestApplyDefaults(t *testing.T) {
	var w Wine
	w.ApplyDefaults()
	assert.Equal(t, StatusInCellar, w.Status)
	assert.Equal(t, 1, w.Quantity)

	w = Wine{Status: StatusSold, Quantity: 6}
	w.ApplyDefaults()
	assert.Equal(t, StatusSold, w.Status)
	assert.Equal(t, 6, w.Quantity)
}

func TestSequentialID(t *testing.T) {
	assert.Equal(t, "1", SequentialID(nil))
	assert.Equal(t, "8", SequentialID(Dataset{{ID: "3"}, {ID: "7"}, {ID: "abc"}}))

	t.Run("ids stay unique across many creates", func(t *testing.T) {
		var d Dataset
		for i := 0; i < 50; i++ {
			d = append(d, Wine{ID: SequentialID(d)})
			if i%7 == 0 {
				d, _ = d.Without(d[0].ID)
			}
		}
		assert.Len(t, d.IDs(), len(d))
	})
}

func TestTimestampID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	d := Dataset{{ID: "1700000000000"}, {ID: "1700000000001"}}
	assert.Equal(t, "1700000000002", TimestampID(d, now))
	assert.Equal(t, "1700000000000", TimestampID(nil, now))
}

func TestDatasetWithout(t *testing.T) {
	d := Dataset{{ID: "1", Name: "Wine A"}, {ID: "2", Name: "Wine B"}}

	out, ok := d.Without("2")
	require.True(t, ok)
	assert.Equal(t, Dataset{{ID: "1", Name: "Wine A"}}, out)

	again, ok := out.Without("2")
	assert.False(t, ok)
	assert.Equal(t, out, again)
	assert.Len(t, d, 2, "original must not be modified")
}

func TestDatasetReplace(t *testing.T) {
	d := Dataset{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}, {ID: "3", Name: "C"}}

	out, ok := d.Replace(Wine{ID: "2", Name: "B2"})
	require.True(t, ok)
	assert.Equal(t, "B2", out[1].Name)
	assert.Equal(t, "B", d[1].Name)

	_, ok = d.Replace(Wine{ID: "9"})
	assert.False(t, ok)
}

func TestWineJSONShape(t *testing.T) {
	w := Wine{ID: "1", Name: "Chablis", Status: StatusInCellar, Quantity: 1, BottleImage: "https://x.test/a.jpg"}
	b, err := json.Marshal(w)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Contains(t, m, "bottle_image")
	assert.Contains(t, m, "consumedDate")
	assert.Nil(t, m["consumedDate"])
	assert.NotContains(t, m, "dataSource")
	assert.NotContains(t, m, "technical_sheet")
}

func TestSummary(t *testing.T) {
	d := Dataset{{ID: "4", Name: "Rioja Reserva", Vintage: 2015, Country: "Spain", Quantity: 3}}
	assert.Equal(t, "[4] Rioja Reserva 2015 | Spain | qty 3\n", d.Summary())
}

func TestClone(t *testing.T) {
	orig := Wine{ID: "1", Name: "Barolo", Price: ptr(10.0), Rating: ptr(92.0), ConsumedDate: ptr("2026-01-02")}
	c := orig.Clone()
	assert.Equal(t, orig, c)

	*c.Price = 99
	*c.Rating = 50
	*c.ConsumedDate = "2026-12-31"
	assert.Equal(t, 10.0, *orig.Price)
	assert.Equal(t, 92.0, *orig.Rating)
	assert.Equal(t, "2026-01-02", *orig.ConsumedDate)

	assert.Nil(t, Wine{}.Clone().Price)
}
