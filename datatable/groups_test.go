package datatable

import (
	"errors"
	"reflect"
	"slices"
	"testing"
)

// Two antennas, one spw and pol. Antenna 0 has rows 0, 1, 3, 4 and antenna 1 has row 2.
func groupedTable(t *testing.T) *DataTable {
	t.Helper()

	dt := newTable(t, 5)
	err := errors.Join(
		dt.PutCol(ColRow, []int{100, 101, 102, 103, 104}, 0, -1, 1),
		dt.PutCol(ColAntenna, []int{0, 0, 1, 0, 0}, 0, -1, 1),
		dt.PutCol(ColPosGrp, []int{0, 1, 2, 0, 1}, 0, -1, 1),
		dt.PutCol(ColTimeGrpS, []int{0, 0, 2, 1, 1}, 0, -1, 1),
		dt.PutCol(ColTimeGrpL, []int{0, 0, 1, 0, 0}, 0, -1, 1),
		dt.SetPosGroups(
			map[int]int{0: 0, 1: 1, 2: 2},
			map[GroupKey][]int{{0, 0, 0}: {0, 1}, {1, 0, 0}: {2}},
		),
		dt.SetTimeGroups(map[GroupKey]TimeGroupIDs{
			{0, 0, 0}: {Small: []int{0, 1}, Large: []int{0}},
			{1, 0, 0}: {Small: []int{2}, Large: []int{1}},
		}),
		dt.SetTimeGaps(
			map[GroupKey][]int{{0, 0, 0}: {3}, {1, 0, 0}: {}},
			map[GroupKey][]int{{0, 0, 0}: {}, {1, 0, 0}: {}},
		),
	)
	if err != nil {
		t.Fatal(err)
	}
	return dt
}

func TestGetPosDict(t *testing.T) {
	dt := groupedTable(t)

	dict, err := dt.GetPosDict(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	expected := map[int][2][]int{
		0: {{100, 103}, {0, 3}},
		1: {{101, 104}, {1, 4}},
		3: {{-1, 100}, {3}},
		4: {{-1, 101}, {4}},
	}
	if len(dict) != len(expected) {
		t.Errorf("Got %v entries, wanted %v", len(dict), len(expected))
	}
	for index, want := range expected {
		if got := dict[index].Legacy(); !reflect.DeepEqual(got, want) {
			t.Errorf("Row %d: got %v, wanted %v", index, got, want)
		}
	}

	// Representative entries partition the rows of the key
	var members []int
	for _, entry := range dict {
		if entry.IsRepresentative() {
			members = append(members, entry.Indices...)
		}
	}
	slices.Sort(members)
	rows, _ := dt.GetRowIndex(0, 0, 0)
	if !slices.Equal(members, rows) {
		t.Errorf("Got %v, wanted %v", members, rows)
	}
}

// ROW restarts at 0 for every dataset
func TestGetPosDictRepeatedRow(t *testing.T) {
	dt := newTable(t, 4)
	err := errors.Join(
		dt.PutCol(ColRow, []int{0, 1, 0, 1}, 0, -1, 1),
		dt.PutCol(ColMS, []int{0, 0, 1, 1}, 0, -1, 1),
		dt.PutCol(ColPosGrp, []int{0, 0, 1, 1}, 0, -1, 1),
		dt.SetPosGroups(map[int]int{0: 0, 1: 2}, map[GroupKey][]int{{0, 0, 0}: {0, 1}}),
	)
	if err != nil {
		t.Fatal(err)
	}

	dict, err := dt.GetPosDict(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	type testCase struct {
		index    int
		expected [2][]int
	}
	cases := []testCase{
		{0, [2][]int{{0, 1}, {0, 1}}},
		{1, [2][]int{{-1, 0}, {1}}},
		{2, [2][]int{{0, 1}, {2, 3}}},
		{3, [2][]int{{-1, 0}, {3}}},
	}
	if len(dict) != len(cases) {
		t.Errorf("Got %v entries, wanted %v", len(dict), len(cases))
	}
	for _, c := range cases {
		t.Log("row", c.index)
		if got := dict[c.index].Legacy(); !reflect.DeepEqual(got, c.expected) {
			t.Errorf("Got %v, wanted %v", got, c.expected)
		}
	}
	if dict[3].RepIndex != 2 {
		t.Errorf("Got %v, wanted %v", dict[3].RepIndex, 2)
	}
}

func TestGetTimeTable(t *testing.T) {
	dt := groupedTable(t)

	timetable, err := dt.GetTimeTable(0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	small := []TimeGroup{
		{Rows: []int{100, 101}, Indices: []int{0, 1}},
		{Rows: []int{103, 104}, Indices: []int{3, 4}},
	}
	large := []TimeGroup{
		{Rows: []int{100, 101, 103, 104}, Indices: []int{0, 1, 3, 4}},
	}
	if !reflect.DeepEqual(timetable[0], small) {
		t.Errorf("Got %v, wanted %v", timetable[0], small)
	}
	if !reflect.DeepEqual(timetable[1], large) {
		t.Errorf("Got %v, wanted %v", timetable[1], large)
	}
}

func TestGetTimeGap(t *testing.T) {
	dt := groupedTable(t)

	type testCase struct {
		asRow    bool
		expected [2][]int
	}

	cases := []testCase{
		{true, [2][]int{{103}, {}}},
		{false, [2][]int{{3}, {}}},
	}
	for _, c := range cases {
		t.Log("asRow:", c.asRow)
		gaps, err := dt.GetTimeGap(0, 0, 0, c.asRow)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(gaps, c.expected) {
			t.Errorf("Got %v, wanted %v", gaps, c.expected)
		}
	}
}

func TestUnknownGroupKey(t *testing.T) {
	dt := groupedTable(t)

	_, err := dt.GetPosDict(5, 0, 0)
	if !errors.Is(err, ErrUnknownGroupKey) {
		t.Errorf("Got %v, wanted ErrUnknownGroupKey", err)
	}
	_, err = dt.GetTimeTable(0, 1, 0)
	if !errors.Is(err, ErrUnknownGroupKey) {
		t.Errorf("Got %v, wanted ErrUnknownGroupKey", err)
	}
	_, err = dt.GetTimeGap(0, 0, 1, true)
	if !errors.Is(err, ErrUnknownGroupKey) {
		t.Errorf("Got %v, wanted ErrUnknownGroupKey", err)
	}

	// Nothing grouped yet
	empty := newTable(t, 1)
	if _, err := empty.GetPosDict(0, 0, 0); !errors.Is(err, ErrUnknownGroupKey) {
		t.Errorf("Got %v, wanted ErrUnknownGroupKey", err)
	}
}
