package flagsummary

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/radio-astro/casa-sub011/datatable"
)

func TestIsValid(t *testing.T) {
	dt, err := datatable.New()
	if err != nil {
		t.Fatal(err)
	}
	defer dt.Close()
	if err := dt.AddRows(6); err != nil {
		t.Fatal(err)
	}

	if err := dt.PutCell(datatable.ColFlagPermanent, 5, []int{1, 1, 1, 0}); err != nil {
		t.Fatal(err)
	}

	type testCase struct {
		row      int
		expected bool
	}
	cases := []testCase{{0, true}, {4, true}, {5, false}}
	for _, c := range cases {
		valid, err := IsValid(dt, c.row)
		if err != nil {
			t.Fatal(err)
		}
		if valid != c.expected {
			t.Errorf("Row %d: got %v, wanted %v", c.row, valid, c.expected)
		}
	}

	if _, err := IsValid(dt, 6); err == nil {
		t.Error("Expected an error for a missing row")
	}
}

func TestCompute(t *testing.T) {
	dt, err := datatable.New()
	if err != nil {
		t.Fatal(err)
	}
	defer dt.Close()
	if err := dt.AddRows(5); err != nil {
		t.Fatal(err)
	}

	stats := func(rms float64) []float64 {
		return []float64{0, rms, 0, 0, 0, 0, 0}
	}
	err = errors.Join(
		dt.PutCol(datatable.ColAntenna, []int{0, 0, 0, 0, 1}, 0, -1, 1),
		dt.PutCol(datatable.ColStatistics, [][]float64{stats(1), stats(3), stats(100), stats(200), stats(-1)}, 0, -1, 1),
		dt.PutCol(datatable.ColFlag, [][]int{
			{1, 1, 1, 1, 1, 1, 1},
			{1, 1, 1, 1, 1, 1, 1},
			{1, 0, 1, 0, 1, 1, 1},
			{1, 1, 1, 1, 1, 1, 1},
			{1, 1, 1, 1, 1, 1, 1},
		}, 0, -1, 1),
		dt.PutCol(datatable.ColFlagSummary, []int{1, 1, 0, 1, 1}, 0, -1, 1),
		dt.PutCell(datatable.ColFlagPermanent, 3, []int{1, 1, 1, 0}),
	)
	if err != nil {
		t.Fatal(err)
	}

	summaries, err := Compute(dt)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Got %v summaries, wanted 2", len(summaries))
	}

	s := summaries[0]
	if s.Total != 4 || s.Online != 1 || s.Flagged != 1 {
		t.Errorf("Got %+v", s)
	}
	if s.ByStatistic[datatable.NewRMS] != 1 || s.ByStatistic[datatable.NewRMSdiff] != 1 || s.ByStatistic[datatable.LowFreqRMS] != 0 {
		t.Errorf("Got %v", s.ByStatistic)
	}
	// Only rows 0 and 1 are valid
	if s.MeanRMS != 2 || math.Abs(s.StdRMS-math.Sqrt2) > 1e-12 {
		t.Errorf("Got mean %v std %v, wanted 2 and %v", s.MeanRMS, s.StdRMS, math.Sqrt2)
	}
	if s.FlaggedFraction() != 0.25 {
		t.Errorf("Got %v, wanted %v", s.FlaggedFraction(), 0.25)
	}

	// Unset statistics are ignored
	if !math.IsNaN(summaries[1].MeanRMS) {
		t.Errorf("Got %v, wanted NaN", summaries[1].MeanRMS)
	}

	var buf bytes.Buffer
	if err := Write(&buf, summaries); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 3 {
		t.Errorf("Got %v lines, wanted %v", lines, 3)
	}
}
