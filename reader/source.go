package reader

import (
	"strings"
)

// Source type codes of the SRCTYPE column
const (
	PSON    = 0
	PSOFF   = 1
	NOD     = 2
	FSON    = 3
	FSOFF   = 4
	SKY     = 6
	HOT     = 7
	WARM    = 8
	COLD    = 9
	PONCAL  = 10
	POFFCAL = 11
)

var SrcTypes = []int{PSON, PSOFF, NOD, FSON, FSOFF, SKY, HOT, WARM, COLD, PONCAL, POFFCAL}

// SpectralWindow describes one spectral window of a dataset
type SpectralWindow struct {
	ID     int    `csv:"if"`
	NChan  int    `csv:"nchan"`
	Intent string `csv:"intent"`
}

// IsScience reports whether the window observes the science target.
// Windows used only for calibration (ATMOSPHERE, POINTING, WVR...) are excluded.
func (w SpectralWindow) IsScience() bool {
	return strings.Contains(strings.ToUpper(w.Intent), "TARGET")
}

// Record holds the scalar quantities of one source row
type Record struct {
	Row      int     `csv:"row"`
	Scan     int     `csv:"scan"`
	IF       int     `csv:"if"`
	Pol      int     `csv:"pol"`
	Beam     int     `csv:"beam"`
	Antenna  int     `csv:"antenna"`
	Time     float64 `csv:"time"` // MJD in days
	Exposure float64 `csv:"exposure"`
	Target   string  `csv:"target"`
	SrcType  int     `csv:"srctype"`
	// Non-zero when the online system flagged the whole row
	FlagRow int     `csv:"flagrow"`
	Tsys    float64 `csv:"tsys"`
}

// Direction is the pointing of one row. A source may provide
// either frame or both.
type Direction struct {
	RA, Dec       float64
	Az, El        float64
	HasEquatorial bool
	HasHorizontal bool
}

// Site is the observatory location in degrees, longitude positive east
type Site struct {
	Longitude float64
	Latitude  float64
}

// Source is a science dataset the Reader can import
type Source interface {
	Name() string
	SpectralWindows() ([]SpectralWindow, error)
	// All rows of the dataset, in dataset order
	Records() ([]Record, error)
	// Pointing of the row with the given Record.Row. Might be slow.
	Direction(row int) (Direction, error)
	Site() Site
	Close() error
}
