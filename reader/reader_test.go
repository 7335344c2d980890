package reader

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/radio-astro/casa-sub011/datatable"
	"github.com/radio-astro/casa-sub011/utils"
)

// In-memory Source
type mockSource struct {
	name       string
	windows    []SpectralWindow
	records    []Record
	directions map[int]Direction
	site       Site
	calls      []int
}

func (m *mockSource) Name() string                               { return m.name }
func (m *mockSource) SpectralWindows() ([]SpectralWindow, error) { return m.windows, nil }
func (m *mockSource) Records() ([]Record, error)                 { return m.records, nil }
func (m *mockSource) Site() Site                                 { return m.site }
func (m *mockSource) Close() error                               { return nil }

func (m *mockSource) Direction(row int) (Direction, error) {
	m.calls = append(m.calls, row)
	return m.directions[row], nil
}

func newMockSource(name string) *mockSource {
	return &mockSource{
		name: name,
		windows: []SpectralWindow{
			{ID: 0, NChan: 4096, Intent: "OBSERVE_TARGET#ON_SOURCE"},
			{ID: 1, NChan: 4, Intent: "CALIBRATE_ATMOSPHERE#ON_SOURCE"},
		},
		records: []Record{
			{Row: 0, Antenna: 1, IF: 0, Time: 58000.0, SrcType: PSON},
			{Row: 1, Antenna: 0, IF: 0, Time: 58000.5, SrcType: PSON, FlagRow: 1},
			{Row: 2, Antenna: 0, IF: 1, Time: 58000.5, SrcType: PSON},
			{Row: 3, Antenna: 0, IF: 0, Time: 58000.5, SrcType: PSOFF},
			{Row: 4, Antenna: 1, IF: 0, Time: 58001.0, SrcType: PSON},
		},
		directions: map[int]Direction{
			0: {RA: 10, Dec: -20, HasEquatorial: true},
			1: {RA: 11, Dec: -21, HasEquatorial: true},
			4: {Az: 100, El: 45, HasHorizontal: true},
		},
		site: Site{Longitude: -67.75, Latitude: -23.02},
	}
}

func newTable(t *testing.T) *datatable.DataTable {
	t.Helper()
	dt, err := datatable.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { dt.Close() })
	return dt
}

func TestExecuteSelectsScienceRows(t *testing.T) {
	dt := newTable(t)
	src := newMockSource("uid___A002_X1")

	r := New(src, dt)
	r.Quiet = true
	n, err := r.Execute()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || dt.Len() != 3 {
		t.Fatalf("Got %v rows (table %v), wanted %v", n, dt.Len(), 3)
	}

	rows, _ := datatable.Col[int](dt, datatable.ColRow)
	if !slices.Equal(rows, []int{0, 1, 4}) {
		t.Errorf("Got %v, wanted %v", rows, []int{0, 1, 4})
	}

	nchan, _ := datatable.Col[int](dt, datatable.ColNChan)
	if !slices.Equal(nchan, []int{4096, 4096, 4096}) {
		t.Errorf("Got %v, wanted %v", nchan, []int{4096, 4096, 4096})
	}

	elapsed, _ := datatable.Col[float64](dt, datatable.ColElapsed)
	if !slices.Equal(elapsed, []float64{0, 43200, 86400}) {
		t.Errorf("Got %v, wanted %v", elapsed, []float64{0, 43200, 86400})
	}

	flags, _ := datatable.Col[[]int](dt, datatable.ColFlagPermanent)
	if flags[1][datatable.OnlineFlagIndex] != datatable.Flagged || flags[0][datatable.OnlineFlagIndex] != datatable.Valid {
		t.Errorf("Got %v, wanted only row 1 flagged online", flags)
	}
	summary, _ := datatable.Col[int](dt, datatable.ColFlagSummary)
	if !slices.Equal(summary, []int{1, 0, 1}) {
		t.Errorf("Got %v, wanted %v", summary, []int{1, 0, 1})
	}

	dates, _ := datatable.Col[string](dt, datatable.ColDate)
	if dates[1] != "2017/09/04/12:00:00.000" {
		t.Errorf("Got %v, wanted %v", dates[1], "2017/09/04/12:00:00.000")
	}

	// Antenna 0 first, then antenna 1 in row order
	if !slices.Equal(src.calls, []int{1, 0, 4}) {
		t.Errorf("Got %v, wanted %v", src.calls, []int{1, 0, 4})
	}

	ra, _ := datatable.Col[float64](dt, datatable.ColRA)
	el, _ := datatable.Col[float64](dt, datatable.ColEl)
	if ra[0] != 10 || ra[1] != 11 {
		t.Errorf("Got %v, wanted equatorial directions kept", ra)
	}
	if el[2] != 45 || el[0] == 0 {
		t.Errorf("Got %v, wanted both frames filled", el)
	}

	names, _ := dt.Filenames()
	if !slices.Equal(names, []string{"uid___A002_X1"}) {
		t.Errorf("Got %v, wanted %v", names, []string{"uid___A002_X1"})
	}
}

func TestExecuteTwiceIsNoOp(t *testing.T) {
	dt := newTable(t)

	for i, expected := range []int{3, 0} {
		r := New(newMockSource("same"), dt)
		r.Quiet = true
		n, err := r.Execute()
		if err != nil {
			t.Fatal(err)
		}
		if n != expected {
			t.Errorf("Call %d: got %v, wanted %v", i, n, expected)
		}
	}
	if dt.Len() != 3 {
		t.Errorf("Got %v, wanted %v", dt.Len(), 3)
	}
}

func TestExecuteSecondDatasetAppends(t *testing.T) {
	dt := newTable(t)

	for _, name := range []string{"a", "b"} {
		r := New(newMockSource(name), dt)
		r.Quiet = true
		if _, err := r.Execute(); err != nil {
			t.Fatal(err)
		}
	}

	ms, _ := datatable.Col[int](dt, datatable.ColMS)
	if !slices.Equal(ms, []int{0, 0, 0, 1, 1, 1}) {
		t.Errorf("Got %v, wanted %v", ms, []int{0, 0, 0, 1, 1, 1})
	}

	// Elapsed time restarts with each dataset
	elapsed, _ := datatable.Col[float64](dt, datatable.ColElapsed)
	if elapsed[3] != 0 {
		t.Errorf("Got %v, wanted %v", elapsed[3], 0)
	}
}

func TestExecuteWithoutScienceSpw(t *testing.T) {
	dt := newTable(t)
	src := newMockSource("calibration")
	src.windows = []SpectralWindow{{ID: 0, NChan: 4, Intent: "CALIBRATE_POINTING#ON_SOURCE"}}

	_, err := New(src, dt).Execute()
	if !errors.Is(err, ErrNoScienceSpw) {
		t.Errorf("Got %v, wanted ErrNoScienceSpw", err)
	}
	if names, _ := dt.Filenames(); len(names) != 0 {
		t.Errorf("Got %v, wanted nothing registered", names)
	}
}

// Source whose pointing table breaks at one row
type brokenPointing struct {
	*mockSource
	row int
}

func (b brokenPointing) Direction(row int) (Direction, error) {
	if row == b.row {
		return Direction{}, errors.New("pointing table unreadable")
	}
	return b.mockSource.Direction(row)
}

func TestExecuteFailureCanBeRetried(t *testing.T) {
	dt := newTable(t)

	r := New(brokenPointing{newMockSource("obs"), 1}, dt)
	r.Quiet = true
	if _, err := r.Execute(); err == nil {
		t.Fatal("Expected an error for an unreadable pointing table")
	}
	if dt.Len() != 0 {
		t.Errorf("Got %v rows, wanted %v", dt.Len(), 0)
	}
	if names, _ := dt.Filenames(); len(names) != 0 {
		t.Errorf("Got %v, wanted nothing registered", names)
	}

	r = New(newMockSource("obs"), dt)
	r.Quiet = true
	n, err := r.Execute()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || dt.Len() != 3 {
		t.Errorf("Got %v rows added and %v in table, wanted %v", n, dt.Len(), 3)
	}
	if names, _ := dt.Filenames(); !slices.Equal(names, []string{"obs"}) {
		t.Errorf("Got %v, wanted %v", names, []string{"obs"})
	}
}

func TestExecuteNothingSelected(t *testing.T) {
	dt := newTable(t)

	r := New(newMockSource("obs"), dt)
	r.Quiet = true
	r.SrcTypes = []int{}
	n, err := r.Execute()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || dt.Len() != 0 {
		t.Errorf("Got %v rows added and %v in table, wanted none", n, dt.Len())
	}

	// Corrected selection imports the dataset
	r.SrcTypes = []int{PSON}
	if n, _ := r.Execute(); n != 3 {
		t.Errorf("Got %v, wanted %v", n, 3)
	}
}

func TestExecuteTimeSpan(t *testing.T) {
	dt := newTable(t)

	from := MJDToTime(58000.25)
	r := New(newMockSource("span"), dt)
	r.Quiet = true
	r.TimeSpan = utils.TimeSpan{From: &from}

	n, err := r.Execute()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Got %v, wanted %v", n, 2)
	}
}

func writeCSVDataset(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"scenario.csv": strings.Join([]string{
			"row,scan,if,pol,beam,antenna,time,exposure,target,srctype,flagrow,tsys,ra,dec,az,el",
			"0,1,0,0,0,0,0.0,1.0,M100,0,0,150.0,185.7,15.8,,",
			"1,1,0,0,0,0,0.0001,1.0,M100,0,0,150.0,185.7,15.8,,",
			"2,1,0,0,0,1,10.0,1.0,M100,0,0,150.0,,,120.0,40.0",
		}, "\n"),
		"scenario_spw.csv": "if,nchan,intent\n0,128,OBSERVE_TARGET#ON_SOURCE\n",
		"scenario_site.csv": "longitude,latitude\n-67.75,-23.02\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "scenario.csv")
}

func TestCSVScenario(t *testing.T) {
	src, err := OpenCSV(writeCSVDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	dt := newTable(t)
	r := New(src, dt)
	r.Quiet = true
	if _, err := r.Execute(); err != nil {
		t.Fatal(err)
	}

	rows, err := dt.GetRowIndex(0, 0, datatable.AnyPol)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(rows, []int{0, 1}) {
		t.Errorf("Got %v, wanted %v", rows, []int{0, 1})
	}

	dec, _ := datatable.Col[float64](dt, datatable.ColDec)
	if dec[0] != 15.8 || dec[2] == 0 {
		t.Errorf("Got %v, wanted stored and converted declinations", dec)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	type testCase struct {
		ra, dec float64
	}

	frame := Frame{MJD: 58000.3, Site: Site{Longitude: -67.75, Latitude: -23.02}}
	cases := []testCase{{0, 0}, {185.7, 15.8}, {83.6, -5.4}, {300, -80}}

	for _, c := range cases {
		t.Log("Testing", c.ra, c.dec)

		az, el := frame.ToHorizontal(c.ra, c.dec)
		if az < 0 || az >= 360 || el < -90 || el > 90 {
			t.Errorf("Got az %v el %v out of range", az, el)
		}

		ra, dec := frame.ToEquatorial(az, el)
		if diff := angularDiff(ra, c.ra); diff > 1e-6 {
			t.Errorf("Got RA %v, wanted %v", ra, c.ra)
		}
		if diff := dec - c.dec; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("Got DEC %v, wanted %v", dec, c.dec)
		}
	}
}

func angularDiff(a, b float64) float64 {
	d := normalize(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func TestCelestialPoleElevation(t *testing.T) {
	// Seen from the southern hemisphere the south pole is as high as the site is far from the equator
	frame := Frame{MJD: 58000, Site: Site{Latitude: -23.02}}
	_, el := frame.ToHorizontal(0, -90)
	if d := el - 23.02; d > 1e-9 || d < -1e-9 {
		t.Errorf("Got %v, wanted %v", el, 23.02)
	}
}

func TestDates(t *testing.T) {
	type testCase struct {
		mjd      float64
		expected string
	}

	cases := []testCase{
		{0, "1858/11/17/00:00:00.000"},
		{51544.5, "2000/01/01/12:00:00.000"},
		{58000.25, "2017/09/04/06:00:00.000"},
	}
	for _, c := range cases {
		t.Log("Testing MJD", c.mjd)
		if got := FormatDate(c.mjd); got != c.expected {
			t.Errorf("Got %v, wanted %v", got, c.expected)
		}
	}

	now := time.Date(2024, 3, 1, 13, 14, 15, 0, time.UTC)
	if got := MJDToTime(TimeToMJD(now)); got.Sub(now).Abs() > time.Millisecond {
		t.Errorf("Got %v, wanted %v", got, now)
	}
}

func TestSpectralWindowIntent(t *testing.T) {
	for intent, expected := range map[string]bool{
		"OBSERVE_TARGET#ON_SOURCE":       true,
		"observe_target#on_source":       true,
		"CALIBRATE_ATMOSPHERE#OFF_SOURCE": false,
		"CALIBRATE_WVR#ON_SOURCE":        false,
		"":                               false,
	} {
		if got := (SpectralWindow{Intent: intent}).IsScience(); got != expected {
			t.Errorf("%q: got %v, wanted %v", intent, got, expected)
		}
	}
}
