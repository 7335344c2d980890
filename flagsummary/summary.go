// Package flagsummary counts the flagged rows of a DataTable per antenna,
// spectral window and polarization.
package flagsummary

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/radio-astro/casa-sub011/datatable"
	"github.com/radio-astro/casa-sub011/grouping"
)

// Summary of one antenna, spectral window and polarization
type Summary struct {
	Key datatable.GroupKey
	// Number of rows
	Total int
	// Rows flagged online (FLAG_PERMANENT[OnlineFlagIndex] != 1)
	Online int
	// Rows with FLAG_SUMMARY == 0
	Flagged int
	// Number of rows flagged by each statistic, indexed like STATISTICS
	ByStatistic [datatable.NumStatistics]int
	// Mean and standard deviation of the new RMS over valid rows
	MeanRMS float64
	StdRMS  float64
}

func (s Summary) FlaggedFraction() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Flagged) / float64(s.Total)
}

// IsValid reports whether the online flag of row marks valid data
func IsValid(dt *datatable.DataTable, row int) (bool, error) {
	permanent, err := datatable.Cell[[]int](dt, datatable.ColFlagPermanent, row)
	if err != nil {
		return false, err
	}
	if len(permanent) <= datatable.OnlineFlagIndex {
		return false, fmt.Errorf("row %d: FLAG_PERMANENT has %d elements", row, len(permanent))
	}
	return permanent[datatable.OnlineFlagIndex] == datatable.Valid, nil
}

type flagColumns struct {
	stats     [][]float64
	flags     [][]int
	permanent [][]int
	summary   []int
}

func readFlags(dt *datatable.DataTable) (flagColumns, error) {
	var c flagColumns
	var errs [4]error
	c.stats, errs[0] = datatable.Col[[]float64](dt, datatable.ColStatistics)
	c.flags, errs[1] = datatable.Col[[]int](dt, datatable.ColFlag)
	c.permanent, errs[2] = datatable.Col[[]int](dt, datatable.ColFlagPermanent)
	c.summary, errs[3] = datatable.Col[int](dt, datatable.ColFlagSummary)
	return c, errors.Join(errs[:]...)
}

// Compute returns one summary per key, keys sorted by antenna, spw and pol
func Compute(dt *datatable.DataTable) ([]Summary, error) {
	keys, members, err := grouping.Keys(dt)
	if err != nil {
		return nil, err
	}
	cols, err := readFlags(dt)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(keys))
	for _, key := range keys {
		s := Summary{Key: key}
		var rms []float64
		for _, i := range members[key] {
			s.Total++

			online := cols.permanent[i][datatable.OnlineFlagIndex] == datatable.Valid
			if !online {
				s.Online++
			}
			if cols.summary[i] == datatable.Flagged {
				s.Flagged++
			}
			for k, flag := range cols.flags[i] {
				if k < datatable.NumStatistics && flag == datatable.Flagged {
					s.ByStatistic[k]++
				}
			}

			// Unset statistics are negative
			if online && cols.summary[i] != datatable.Flagged && cols.stats[i][datatable.NewRMS] >= 0 {
				rms = append(rms, cols.stats[i][datatable.NewRMS])
			}
		}

		s.MeanRMS, s.StdRMS = meanStd(rms)
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func meanStd(x []float64) (float64, float64) {
	switch len(x) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// Write prints one line per summary
func Write(w io.Writer, summaries []Summary) error {
	_, err := fmt.Fprintf(w, "%-24s %8s %8s %8s %8s %12s %12s\n", "key", "rows", "online", "flagged", "percent", "mean rms", "std rms")
	if err != nil {
		return err
	}
	for _, s := range summaries {
		_, err := fmt.Fprintf(w, "%-24s %8d %8d %8d %7.1f%% %12.4g %12.4g\n",
			s.Key, s.Total, s.Online, s.Flagged, 100*s.FlaggedFraction(), s.MeanRMS, s.StdRMS)
		if err != nil {
			return err
		}
	}
	return nil
}
