// Package catalog publishes DataTable rows to a PostgreSQL catalog
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/radio-astro/casa-sub011/datatable"
	"github.com/radio-astro/casa-sub011/reader"
)

const CATALOG_ENV_VAR string = "CATALOG_CONN_STRING"

var recordColumns = []string{
	"datatable", "ms", "row_id", "scan", "spw", "pol", "beam", "antenna",
	"obstime", "exposure", "ra", "dec", "az", "el", "target", "srctype",
	"flag_summary", "online", "posgrp", "timegrp_s", "timegrp_l",
}

// Struct mimicking the `sd.records` table
type Record struct {
	// Base name of the DataTable
	DataTable string
	// Index of the source dataset in FILENAMES
	MS       int32
	Row      int32
	Scan     int32
	Spw      int32
	Pol      int32
	Beam     int32
	Antenna  int32
	Obstime  time.Time
	Exposure float64
	RA       float64
	Dec      float64
	Az       float64
	El       float64
	Target   string
	SrcType  int32
	FlagSum  int32
	Online   bool
	// Group ids, nil if the table has not been grouped
	PosGrp   *int32
	TimeGrpS *int32
	TimeGrpL *int32
}

func (r *Record) ToRow() []any {
	return []any{
		r.DataTable, r.MS, r.Row, r.Scan, r.Spw, r.Pol, r.Beam, r.Antenna,
		r.Obstime, r.Exposure, r.RA, r.Dec, r.Az, r.El, r.Target, r.SrcType,
		r.FlagSum, r.Online, r.PosGrp, r.TimeGrpS, r.TimeGrpL,
	}
}

// Struct mimicking the `sd.datasets` table
type Dataset struct {
	DataTable string
	MS        int32
	Filename  string
}

func tableName(dt *datatable.DataTable) string {
	return filepath.Base(dt.Name())
}

// Datasets lists the source datasets registered in the table
func Datasets(dt *datatable.DataTable) ([]Dataset, error) {
	names, err := dt.Filenames()
	if err != nil {
		return nil, err
	}
	datasets := make([]Dataset, len(names))
	for i, name := range names {
		datasets[i] = Dataset{DataTable: tableName(dt), MS: int32(i), Filename: name}
	}
	return datasets, nil
}

type columns struct {
	ints    map[datatable.Column][]int
	floats  map[datatable.Column][]float64
	targets []string
	perm    [][]int
}

func readColumns(dt *datatable.DataTable) (columns, error) {
	c := columns{
		ints:   make(map[datatable.Column][]int),
		floats: make(map[datatable.Column][]float64),
	}

	for _, col := range []datatable.Column{
		datatable.ColMS, datatable.ColRow, datatable.ColScan, datatable.ColIF, datatable.ColPol,
		datatable.ColBeam, datatable.ColAntenna, datatable.ColSrcType, datatable.ColFlagSummary,
		datatable.ColPosGrp, datatable.ColTimeGrpS, datatable.ColTimeGrpL,
	} {
		values, err := datatable.Col[int](dt, col)
		if err != nil {
			return c, err
		}
		c.ints[col] = values
	}

	for _, col := range []datatable.Column{
		datatable.ColTime, datatable.ColExposure, datatable.ColRA, datatable.ColDec, datatable.ColAz, datatable.ColEl,
	} {
		values, err := datatable.Col[float64](dt, col)
		if err != nil {
			return c, err
		}
		c.floats[col] = values
	}

	var err error
	if c.targets, err = datatable.Col[string](dt, datatable.ColTarget); err != nil {
		return c, err
	}
	c.perm, err = datatable.Col[[]int](dt, datatable.ColFlagPermanent)
	return c, err
}

// Negative group ids mean the row has not been grouped
func groupID(v int) *int32 {
	if v < 0 {
		return nil
	}
	id := int32(v)
	return &id
}

// Records converts every row of the table
func Records(dt *datatable.DataTable) ([]Record, error) {
	c, err := readColumns(dt)
	if err != nil {
		return nil, err
	}

	name := tableName(dt)
	records := make([]Record, dt.Len())
	for i := range records {
		records[i] = Record{
			DataTable: name,
			MS:        int32(c.ints[datatable.ColMS][i]),
			Row:       int32(c.ints[datatable.ColRow][i]),
			Scan:      int32(c.ints[datatable.ColScan][i]),
			Spw:       int32(c.ints[datatable.ColIF][i]),
			Pol:       int32(c.ints[datatable.ColPol][i]),
			Beam:      int32(c.ints[datatable.ColBeam][i]),
			Antenna:   int32(c.ints[datatable.ColAntenna][i]),
			Obstime:   reader.MJDToTime(c.floats[datatable.ColTime][i]),
			Exposure:  c.floats[datatable.ColExposure][i],
			RA:        c.floats[datatable.ColRA][i],
			Dec:       c.floats[datatable.ColDec][i],
			Az:        c.floats[datatable.ColAz][i],
			El:        c.floats[datatable.ColEl][i],
			Target:    c.targets[i],
			SrcType:   int32(c.ints[datatable.ColSrcType][i]),
			FlagSum:   int32(c.ints[datatable.ColFlagSummary][i]),
			Online:    c.perm[i][datatable.OnlineFlagIndex] == datatable.Valid,
			PosGrp:    groupID(c.ints[datatable.ColPosGrp][i]),
			TimeGrpS:  groupID(c.ints[datatable.ColTimeGrpS][i]),
			TimeGrpL:  groupID(c.ints[datatable.ColTimeGrpL][i]),
		}
	}
	return records, nil
}

// Publish replaces the rows of the table in the catalog
func Publish(ctx context.Context, pool *pgxpool.Pool, dt *datatable.DataTable) (int64, error) {
	logStr := fmt.Sprintf("[%s]: ", tableName(dt))

	datasets, err := Datasets(dt)
	if err != nil {
		return 0, err
	}
	records, err := Records(dt)
	if err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	for _, query := range []string{
		`DELETE FROM sd.records WHERE datatable = $1`,
		`DELETE FROM sd.datasets WHERE datatable = $1`,
	} {
		if _, err := tx.Exec(ctx, query, tableName(dt)); err != nil {
			return 0, err
		}
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"sd", "datasets"},
		[]string{"datatable", "ms", "filename"},
		pgx.CopyFromSlice(len(datasets), func(i int) ([]any, error) {
			d := datasets[i]
			return []any{d.DataTable, d.MS, d.Filename}, nil
		}),
	)
	if err != nil {
		return 0, err
	}

	size := len(records)
	count, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"sd", "records"},
		recordColumns,
		pgx.CopyFromSlice(size, func(i int) ([]any, error) {
			return records[i].ToRow(), nil
		}),
	)
	if err != nil {
		return count, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	logStr += fmt.Sprintf("%v/%v rows inserted", count, size)
	if int(count) != size {
		slog.Warn(logStr)
	} else {
		slog.Info(logStr)
	}
	return count, nil
}
