package stats_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism_occupancy/internal/domain"
	"tourism_occupancy/internal/stats"
)

func TestSummarize_Empty(t *testing.T) {
	s := stats.Summarize(nil, stats.DefaultOptions())
	assert.Zero(t, s.Totals)
	assert.Empty(t, s.ByKind)
	assert.Empty(t, s.ByMonth)
	assert.Empty(t, s.TopProvenance)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"byKind":[]`)
}

func TestSummarize_TwoEstablishments(t *testing.T) {
	records := []domain.Questionnaire{
		hotel("H1", "2024-03-04", 10, 0, "Turistas de CDMX"),
		hotel("H1", "2024-03-11", 20, 5, "Turistas de CDMX"),
		hotel("H2", "2024-04-01", 30, 0, "Visitantes de Querétaro"),
		hotel("H2", "2024-04-08", 40, 10, "Familias de Monterrey"),
	}
	s := stats.Summarize(records, stats.DefaultOptions())

	assert.Equal(t, 4, s.Totals.Records)
	assert.Equal(t, 100, s.Totals.Guests)
	assert.Equal(t, 25.0, s.Totals.AverageGuests)
	assert.Equal(t, 15, s.Totals.Foreign)
	assert.Equal(t, 15.0, s.Totals.ForeignPercent)

	require.Len(t, s.ByKind, 1)
	assert.Equal(t, stats.KindBucket{Kind: domain.KindHotel, Records: 4, Guests: 100, AverageGuests: 25}, s.ByKind[0])

	require.Len(t, s.ByMonth, 2)
	assert.Equal(t, "2024-03", s.ByMonth[0].Month)
	assert.Equal(t, 15.0, s.ByMonth[0].AverageGuests)
	assert.Equal(t, "2024-04", s.ByMonth[1].Month)

	require.Len(t, s.TopProvenance, 3)
	assert.Equal(t, "Familias de Monterrey", s.TopProvenance[0].Description)
	// ties keep first-seen order
	assert.Equal(t, stats.ProvenanceCount{Description: "Turistas de CDMX", Records: 2, Guests: 30}, s.TopProvenance[1])
	assert.Equal(t, "Visitantes de Querétaro", s.TopProvenance[2].Description)

	top := stats.TopEstablishments(records, stats.MetricGuests, 10, stats.DefaultOptions())
	require.Len(t, top.Establishments, 2)
	assert.Equal(t, "H2", top.Establishments[0].ID)
	assert.Equal(t, 70, top.Establishments[0].Guests)
	assert.Equal(t, "H1", top.Establishments[1].ID)
}

func TestSummarize_TopProvenanceCapped(t *testing.T) {
	var records []domain.Questionnaire
	for i := 0; i < 12; i++ {
		records = append(records, hotel("H1", "2024-01-01", i+1, 0, "Procedencia número "+string(rune('A'+i))))
	}
	opts := stats.DefaultOptions()
	s := stats.Summarize(records, opts)
	require.Len(t, s.TopProvenance, opts.TopProvenance)
	assert.Equal(t, 12, s.TopProvenance[0].Guests)
}

func TestKindStatistics_AllKindsReported(t *testing.T) {
	records := []domain.Questionnaire{
		hotel("H1", "2024-03-04", 10, 0, "Turistas de CDMX"),
		cabin("C1", "2024-03-04", 4, "Familias de Puebla"),
		cabin("C1", "2024-03-11", 6, "Familias de Puebla"),
	}
	ks := stats.KindStatistics(records)
	require.Len(t, ks, 3)
	assert.Equal(t, domain.KindHotel, ks[0].Kind)
	assert.Equal(t, 1, ks[0].Records)
	assert.Equal(t, domain.KindRental, ks[1].Kind)
	assert.Zero(t, ks[1].Records)
	assert.Zero(t, ks[1].AverageGuests)
	assert.Equal(t, stats.KindStats{Kind: domain.KindCabin, Records: 2, Units: 4, Guests: 10, AverageUnits: 2, AverageGuests: 5}, ks[2])
}
