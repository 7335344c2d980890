package dump

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/radio-astro/casa-sub011/datatable"
	"github.com/radio-astro/casa-sub011/sd/base"
	"github.com/radio-astro/casa-sub011/table"
)

type Config struct {
	base.Config
	Out string `arg:"-o,--out,required" help:"CSV file the rows are written to"`
}

func (Config) Description() string {
	return "Dump the rows of a DataTable to CSV"
}

// One line of the dump
type Row struct {
	Row         int     `csv:"row"`
	MS          int     `csv:"ms"`
	Scan        int     `csv:"scan"`
	Spw         int     `csv:"spw"`
	Pol         int     `csv:"pol"`
	Beam        int     `csv:"beam"`
	Antenna     int     `csv:"antenna"`
	Date        string  `csv:"date"`
	Time        float64 `csv:"time"`
	Elapsed     float64 `csv:"elapsed"`
	Exposure    float64 `csv:"exposure"`
	RA          float64 `csv:"ra"`
	Dec         float64 `csv:"dec"`
	Az          float64 `csv:"az"`
	El          float64 `csv:"el"`
	NChan       int     `csv:"nchan"`
	Tsys        float64 `csv:"tsys"`
	Target      string  `csv:"target"`
	SrcType     int     `csv:"srctype"`
	FlagSummary int     `csv:"flag_summary"`
	Online      int     `csv:"online"`
	NMask       int     `csv:"nmask"`
	NoChange    string  `csv:"nochange"`
	PosGrp      int     `csv:"posgrp"`
	TimeGrpS    int     `csv:"timegrp_s"`
	TimeGrpL    int     `csv:"timegrp_l"`
}

// Rows converts every row of the table
func Rows(dt *datatable.DataTable) ([]Row, error) {
	ints := map[datatable.Column][]int{}
	floats := map[datatable.Column][]float64{}
	strs := map[datatable.Column][]string{}

	var errs []error
	for _, col := range datatable.Columns() {
		if col.Descriptor().Codec != datatable.Generic {
			continue
		}

		var err error
		switch col.Descriptor().Kind {
		case table.Int:
			ints[col], err = datatable.Col[int](dt, col)
		case table.Double:
			floats[col], err = datatable.Col[float64](dt, col)
		case table.String:
			strs[col], err = datatable.Col[string](dt, col)
		}
		errs = append(errs, err)
	}
	nochange, err := datatable.Col[datatable.NoChange](dt, datatable.ColNoChange)
	errs = append(errs, err)
	permanent, err := datatable.Col[[]int](dt, datatable.ColFlagPermanent)
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	rows := make([]Row, dt.Len())
	for i := range rows {
		rows[i] = Row{
			Row:         ints[datatable.ColRow][i],
			MS:          ints[datatable.ColMS][i],
			Scan:        ints[datatable.ColScan][i],
			Spw:         ints[datatable.ColIF][i],
			Pol:         ints[datatable.ColPol][i],
			Beam:        ints[datatable.ColBeam][i],
			Antenna:     ints[datatable.ColAntenna][i],
			Date:        strs[datatable.ColDate][i],
			Time:        floats[datatable.ColTime][i],
			Elapsed:     floats[datatable.ColElapsed][i],
			Exposure:    floats[datatable.ColExposure][i],
			RA:          floats[datatable.ColRA][i],
			Dec:         floats[datatable.ColDec][i],
			Az:          floats[datatable.ColAz][i],
			El:          floats[datatable.ColEl][i],
			NChan:       ints[datatable.ColNChan][i],
			Tsys:        floats[datatable.ColTsys][i],
			Target:      strs[datatable.ColTarget][i],
			SrcType:     ints[datatable.ColSrcType][i],
			FlagSummary: ints[datatable.ColFlagSummary][i],
			Online:      permanent[i][datatable.OnlineFlagIndex],
			NMask:       ints[datatable.ColNMask][i],
			NoChange:    nochange[i].String(),
			PosGrp:      ints[datatable.ColPosGrp][i],
			TimeGrpS:    ints[datatable.ColTimeGrpS][i],
			TimeGrpL:    ints[datatable.ColTimeGrpL][i],
		}
	}
	return rows, nil
}

func (config *Config) Execute() error {
	dt, err := config.Load()
	if err != nil {
		return err
	}
	defer dt.Close()

	rows, err := Rows(dt)
	if err != nil {
		return err
	}

	file, err := os.Create(config.Out)
	if err != nil {
		return err
	}
	defer file.Close()

	slog.Info(fmt.Sprintf("Writing %d rows to %s...", len(rows), config.Out))
	return gocsv.MarshalFile(&rows, file)
}
