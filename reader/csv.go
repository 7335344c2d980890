package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
)

// Layout of a CSV dataset:
//
//	<base>.csv      one line per row (csvRecord)
//	<base>_spw.csv  one line per spectral window (SpectralWindow)
//	<base>_site.csv a single line with the observatory location (csvSite)
type CSV struct {
	name    string
	windows []SpectralWindow
	records []csvRecord
	rows    map[int]int
	site    Site
}

type csvRecord struct {
	Record
	RA  *float64 `csv:"ra,omitempty"`
	Dec *float64 `csv:"dec,omitempty"`
	Az  *float64 `csv:"az,omitempty"`
	El  *float64 `csv:"el,omitempty"`
}

type csvSite struct {
	Longitude float64 `csv:"longitude"`
	Latitude  float64 `csv:"latitude"`
}

// OpenCSV reads the dataset whose records are stored in path.
// The site file is optional and defaults to longitude and latitude 0.
func OpenCSV(path string) (*CSV, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	src := &CSV{name: filepath.Base(base)}

	if err := readCSV(path, &src.records); err != nil {
		return nil, err
	}
	if err := readCSV(base+"_spw.csv", &src.windows); err != nil {
		return nil, err
	}

	var sites []csvSite
	sitePath := base + "_site.csv"
	if _, err := os.Stat(sitePath); err == nil {
		if err := readCSV(sitePath, &sites); err != nil {
			return nil, err
		}
		if len(sites) > 0 {
			src.site = Site{Longitude: sites[0].Longitude, Latitude: sites[0].Latitude}
		}
	}

	src.rows = make(map[int]int, len(src.records))
	for i, rec := range src.records {
		src.rows[rec.Row] = i
	}
	return src, nil
}

func readCSV(path string, out any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := gocsv.UnmarshalFile(file, out); err != nil {
		return fmt.Errorf("could not parse %s: %w", path, err)
	}
	return nil
}

func (c *CSV) Name() string {
	return c.name
}

func (c *CSV) SpectralWindows() ([]SpectralWindow, error) {
	return c.windows, nil
}

func (c *CSV) Records() ([]Record, error) {
	out := make([]Record, len(c.records))
	for i, rec := range c.records {
		out[i] = rec.Record
	}
	return out, nil
}

func (c *CSV) Direction(row int) (Direction, error) {
	i, ok := c.rows[row]
	if !ok {
		return Direction{}, fmt.Errorf("no row %d in %s", row, c.name)
	}

	rec := c.records[i]
	var d Direction
	if rec.RA != nil && rec.Dec != nil {
		d.RA, d.Dec, d.HasEquatorial = *rec.RA, *rec.Dec, true
	}
	if rec.Az != nil && rec.El != nil {
		d.Az, d.El, d.HasHorizontal = *rec.Az, *rec.El, true
	}
	return d, nil
}

func (c *CSV) Site() Site {
	return c.site
}

func (c *CSV) Close() error {
	return nil
}
