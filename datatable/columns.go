// Package datatable implements the single-dish DataTable: one row per spectral
// record, split between a read-only metadata store (RO) and a read-write
// working store (RW) that always have the same rows in the same order.
package datatable

import (
	"fmt"

	"github.com/radio-astro/casa-sub011/table"
)

// Column identifies a logical DataTable column
type Column int

const (
	// RO columns
	ColRow Column = iota
	ColScan
	ColIF
	ColPol
	ColBeam
	ColDate
	ColTime
	ColElapsed
	ColExposure
	ColRA
	ColDec
	ColAz
	ColEl
	ColNChan
	ColTsys
	ColTarget
	ColAntenna
	ColSrcType
	ColMS

	// RW columns
	ColStatistics
	ColFlag
	ColFlagPermanent
	ColFlagSummary
	ColNMask
	ColMaskList
	ColNoChange
	ColPosGrp
	ColTimeGrpS
	ColTimeGrpL

	numColumns
)

// Which of the two stores holds a column
type Side int

const (
	RO Side = iota
	RW
)

func (s Side) String() string {
	if s == RO {
		return "RO"
	}
	return "RW"
}

// Codec selects the accessor strategy of a column
type Codec int

const (
	Generic Codec = iota
	NoChangeCodec
	MaskListCodec
)

// Descriptor is the static definition of a column
type Descriptor struct {
	Name  string
	Side  Side
	Kind  table.Kind
	Shape int
	Codec Codec
}

// Layout of the STATISTICS vector. FLAG uses the same indices.
const (
	LowFreqRMS = iota
	NewRMS
	OldRMS
	NewRMSdiff
	OldRMSdiff
	ExpectedRMSPreFit
	ExpectedRMSPostFit

	NumStatistics
)

// Layout of the FLAG_PERMANENT vector
const (
	WeatherFlagIndex = iota
	TsysFlagIndex
	UserFlagIndex
	OnlineFlagIndex

	NumPermanentFlags
)

// Flag values
const (
	Flagged = 0
	Valid   = 1
)

// AnyPol matches every polarization in GetRowIndex
const AnyPol = -1

var descriptors = [numColumns]Descriptor{
	ColRow:      {Name: "ROW", Side: RO, Kind: table.Int},
	ColScan:     {Name: "SCAN", Side: RO, Kind: table.Int},
	ColIF:       {Name: "IF", Side: RO, Kind: table.Int},
	ColPol:      {Name: "POL", Side: RO, Kind: table.Int},
	ColBeam:     {Name: "BEAM", Side: RO, Kind: table.Int},
	ColDate:     {Name: "DATE", Side: RO, Kind: table.String},
	ColTime:     {Name: "TIME", Side: RO, Kind: table.Double},
	ColElapsed:  {Name: "ELAPSED", Side: RO, Kind: table.Double},
	ColExposure: {Name: "EXPOSURE", Side: RO, Kind: table.Double},
	ColRA:       {Name: "RA", Side: RO, Kind: table.Double},
	ColDec:      {Name: "DEC", Side: RO, Kind: table.Double},
	ColAz:       {Name: "AZ", Side: RO, Kind: table.Double},
	ColEl:       {Name: "EL", Side: RO, Kind: table.Double},
	ColNChan:    {Name: "NCHAN", Side: RO, Kind: table.Int},
	ColTsys:     {Name: "TSYS", Side: RO, Kind: table.Double},
	ColTarget:   {Name: "TARGET", Side: RO, Kind: table.String},
	ColAntenna:  {Name: "ANTENNA", Side: RO, Kind: table.Int},
	ColSrcType:  {Name: "SRCTYPE", Side: RO, Kind: table.Int},
	ColMS:       {Name: "MS", Side: RO, Kind: table.Int},

	ColStatistics:    {Name: "STATISTICS", Side: RW, Kind: table.DoubleVector, Shape: NumStatistics},
	ColFlag:          {Name: "FLAG", Side: RW, Kind: table.IntVector, Shape: NumStatistics},
	ColFlagPermanent: {Name: "FLAG_PERMANENT", Side: RW, Kind: table.IntVector, Shape: NumPermanentFlags},
	ColFlagSummary:   {Name: "FLAG_SUMMARY", Side: RW, Kind: table.Int},
	ColNMask:         {Name: "NMASK", Side: RW, Kind: table.Int},
	ColMaskList:      {Name: "MASKLIST", Side: RW, Kind: table.PairList, Codec: MaskListCodec},
	ColNoChange:      {Name: "NOCHANGE", Side: RW, Kind: table.Int, Codec: NoChangeCodec},
	ColPosGrp:        {Name: "POSGRP", Side: RW, Kind: table.Int},
	ColTimeGrpS:      {Name: "TIMEGRP_S", Side: RW, Kind: table.Int},
	ColTimeGrpL:      {Name: "TIMEGRP_L", Side: RW, Kind: table.Int},
}

var (
	byName   = make(map[string]Column, numColumns)
	roSchema table.Schema
	rwSchema table.Schema
)

func init() {
	for c := Column(0); c < numColumns; c++ {
		d := descriptors[c]
		if d.Name == "" {
			panic(fmt.Sprintf("datatable: column %d has no descriptor", c))
		}
		if _, ok := byName[d.Name]; ok {
			panic("datatable: duplicate column " + d.Name)
		}
		if d.Codec == NoChangeCodec && d.Kind != table.Int {
			panic("datatable: NoChange column " + d.Name + " must be Int")
		}
		if d.Codec == MaskListCodec && d.Kind != table.PairList {
			panic("datatable: MaskList column " + d.Name + " must be PairList")
		}
		byName[d.Name] = c

		spec := table.ColumnSpec{Name: d.Name, Kind: d.Kind, Shape: d.Shape}
		if d.Side == RO {
			roSchema = append(roSchema, spec)
		} else {
			rwSchema = append(rwSchema, spec)
		}
	}

	if err := roSchema.Validate(); err != nil {
		panic(err)
	}
	if err := rwSchema.Validate(); err != nil {
		panic(err)
	}
}

func (c Column) Descriptor() Descriptor {
	return descriptors[c]
}

func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return descriptors[c].Name
}

func (c Column) valid() bool {
	return c >= 0 && c < numColumns
}

// ColumnByName resolves a persisted column name
func ColumnByName(name string) (Column, error) {
	c, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return c, nil
}

// Columns lists every column in declaration order
func Columns() []Column {
	out := make([]Column, numColumns)
	for i := range out {
		out[i] = Column(i)
	}
	return out
}

// Schema returns the store schema of one side of the table
func Schema(side Side) table.Schema {
	if side == RO {
		return append(table.Schema(nil), roSchema...)
	}
	return append(table.Schema(nil), rwSchema...)
}
