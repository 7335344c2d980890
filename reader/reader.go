// Package reader fills a DataTable from science datasets.
package reader

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/radio-astro/casa-sub011/datatable"
	"github.com/radio-astro/casa-sub011/utils"
)

var ErrNoScienceSpw = errors.New("no science spectral windows")

// Reader imports a single Source into a DataTable
type Reader struct {
	Source Source
	Table  *datatable.DataTable
	// Source types kept on import, PSON only by default
	SrcTypes []int
	// Optional selection on the record time
	TimeSpan utils.TimeSpan
	// Hides the progress bar of the direction loop
	Quiet bool
}

func New(src Source, dt *datatable.DataTable) *Reader {
	return &Reader{Source: src, Table: dt, SrcTypes: []int{PSON}}
}

// DetectTargetSpw returns the ids of the science spectral windows
func (r *Reader) DetectTargetSpw() ([]int, error) {
	windows, err := r.Source.SpectralWindows()
	if err != nil {
		return nil, err
	}

	var ids []int
	for _, w := range windows {
		if w.IsScience() {
			ids = append(ids, w.ID)
		}
	}
	return ids, nil
}

// Execute appends one row per selected source row and returns how many were added.
// A dataset that is already registered is skipped. The source is read completely
// before the table changes, so a failed dataset leaves the table untouched.
func (r *Reader) Execute() (int, error) {
	name := r.Source.Name()
	logStr := "[" + name + "]: "

	names, err := r.Table.Filenames()
	if err != nil {
		return 0, err
	}
	if slices.Contains(names, name) {
		slog.Info(logStr + "already registered, skipping")
		return 0, nil
	}

	spws, err := r.DetectTargetSpw()
	if err != nil {
		return 0, err
	}
	if len(spws) == 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoScienceSpw, name)
	}

	windows, err := r.Source.SpectralWindows()
	if err != nil {
		return 0, err
	}
	nchan := make(map[int]int, len(windows))
	for _, w := range windows {
		nchan[w.ID] = w.NChan
	}

	records, err := r.Source.Records()
	if err != nil {
		return 0, err
	}
	selected := r.selectRecords(records, spws)
	if len(selected) == 0 {
		slog.Warn(logStr + "no rows selected, dataset is not registered")
		return 0, nil
	}

	// The dataset gets the next FILENAMES index once committed
	columns := scalarColumns(selected, nchan, len(names))
	directions, err := r.directionColumns(selected)
	if err != nil {
		return 0, err
	}
	columns = append(columns, directions...)

	if err := r.commit(name, columns, len(selected)); err != nil {
		return 0, err
	}

	slog.Info(logStr + fmt.Sprintf("%d/%d rows imported", len(selected), len(records)))
	return len(selected), nil
}

type columnValues struct {
	col    datatable.Column
	values any
}

// Appends the rows and registers the dataset last
func (r *Reader) commit(name string, columns []columnValues, n int) error {
	start := r.Table.Len()
	if err := r.Table.AddRows(n); err != nil {
		return err
	}
	for _, c := range columns {
		if err := r.Table.PutCol(c.col, c.values, start, n, 1); err != nil {
			return fmt.Errorf("%s: %w", c.col, err)
		}
	}
	_, _, err := r.Table.AddFilename(name)
	return err
}

func (r *Reader) selectRecords(records []Record, spws []int) []Record {
	var out []Record
	for _, rec := range records {
		if !slices.Contains(spws, rec.IF) || !slices.Contains(r.SrcTypes, rec.SrcType) {
			continue
		}
		if !r.TimeSpan.Contains(MJDToTime(rec.Time)) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func scalarColumns(records []Record, nchan map[int]int, msIndex int) []columnValues {
	n := len(records)

	rows := make([]int, n)
	scans := make([]int, n)
	ifs := make([]int, n)
	pols := make([]int, n)
	beams := make([]int, n)
	antennas := make([]int, n)
	srctypes := make([]int, n)
	channels := make([]int, n)
	ms := make([]int, n)
	times := make([]float64, n)
	elapsed := make([]float64, n)
	exposures := make([]float64, n)
	tsys := make([]float64, n)
	targets := make([]string, n)
	dates := make([]string, n)
	permanent := make([][]int, n)
	summary := make([]int, n)

	t0 := records[0].Time
	for i, rec := range records {
		rows[i] = rec.Row
		scans[i] = rec.Scan
		ifs[i] = rec.IF
		pols[i] = rec.Pol
		beams[i] = rec.Beam
		antennas[i] = rec.Antenna
		srctypes[i] = rec.SrcType
		channels[i] = nchan[rec.IF]
		ms[i] = msIndex
		times[i] = rec.Time
		elapsed[i] = (rec.Time - t0) * secondsPerDay
		exposures[i] = rec.Exposure
		tsys[i] = rec.Tsys
		targets[i] = rec.Target

		// Row specific encodings
		dates[i] = FormatDate(rec.Time)
		online := datatable.Valid
		if rec.FlagRow != 0 {
			online = datatable.Flagged
		}
		permanent[i] = []int{datatable.Valid, datatable.Valid, datatable.Valid, online}
		summary[i] = online
	}

	return []columnValues{
		{datatable.ColRow, rows},
		{datatable.ColScan, scans},
		{datatable.ColIF, ifs},
		{datatable.ColPol, pols},
		{datatable.ColBeam, beams},
		{datatable.ColAntenna, antennas},
		{datatable.ColSrcType, srctypes},
		{datatable.ColNChan, channels},
		{datatable.ColMS, ms},
		{datatable.ColTime, times},
		{datatable.ColElapsed, elapsed},
		{datatable.ColExposure, exposures},
		{datatable.ColTsys, tsys},
		{datatable.ColTarget, targets},
		{datatable.ColDate, dates},
		{datatable.ColFlagPermanent, permanent},
		{datatable.ColFlagSummary, summary},
	}
}

// Direction lookups are the slow path. Rows are visited antenna by antenna
// and stored at their own position.
func (r *Reader) directionColumns(records []Record) ([]columnValues, error) {
	n := len(records)
	ra := make([]float64, n)
	dec := make([]float64, n)
	az := make([]float64, n)
	el := make([]float64, n)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return records[order[a]].Antenna < records[order[b]].Antenna
	})

	site := r.Source.Site()
	bar := utils.NewBar(n, "Directions", r.Quiet)
	for _, i := range order {
		d, err := r.Source.Direction(records[i].Row)
		if err != nil {
			return nil, fmt.Errorf("direction of row %d: %w", records[i].Row, err)
		}
		if !d.HasEquatorial && !d.HasHorizontal {
			slog.Warn(fmt.Sprintf("[%s]: row %d has no pointing", r.Source.Name(), records[i].Row))
		}

		d = Frame{MJD: records[i].Time, Site: site}.Complete(d)
		ra[i], dec[i], az[i], el[i] = d.RA, d.Dec, d.Az, d.El
		bar.Add(1)
	}

	return []columnValues{
		{datatable.ColRA, ra},
		{datatable.ColDec, dec},
		{datatable.ColAz, az},
		{datatable.ColEl, el},
	}, nil
}
