package datatable

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/radio-astro/casa-sub011/table"
)

func TestNoChangeRoundTrip(t *testing.T) {
	type testCase struct {
		input    any
		stored   int
		expected NoChange
	}

	cases := []testCase{
		{false, -1, NoChange{}},
		{true, -1, NoChange{}},
		{5, 5, NoChangeSince(5)},
		{0, 0, NoChangeSince(0)},
		{int64(12), 12, NoChangeSince(12)},
		{-3, -3, NoChange{}},
		{NoChangeSince(7), 7, NoChangeSince(7)},
		{NoChange{}, -1, NoChange{}},
	}

	dt := newTable(t, 1)
	for _, c := range cases {
		t.Log("Testing NOCHANGE input:", c.input)

		if err := dt.PutCell(ColNoChange, 0, c.input); err != nil {
			t.Fatal(err)
		}

		stored, _ := dt.rw.GetCell("NOCHANGE", 0)
		if stored != c.stored {
			t.Errorf("Got stored %v, wanted %v", stored, c.stored)
		}

		got, err := Cell[NoChange](dt, ColNoChange, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.expected {
			t.Errorf("Got %v, wanted %v", got, c.expected)
		}
	}
}

func TestMaskListRoundTrip(t *testing.T) {
	type testCase struct {
		input    any
		stored   [][2]int
		expected MaskList
	}

	cases := []testCase{
		{MaskList{}, [][2]int{{-1, -1}}, MaskList{}},
		{nil, [][2]int{{-1, -1}}, MaskList{}},
		{MaskList{{2, 5}, {10, 12}}, [][2]int{{2, 5}, {10, 12}}, MaskList{{2, 5}, {10, 12}}},
		{[][2]int{{0, 3}}, [][2]int{{0, 3}}, MaskList{{0, 3}}},
		{[][2]int{{-1, -1}}, [][2]int{{-1, -1}}, MaskList{}},
	}

	dt := newTable(t, 1)
	for _, c := range cases {
		t.Log("Testing MASKLIST input:", c.input)

		if err := dt.PutCell(ColMaskList, 0, c.input); err != nil {
			t.Fatal(err)
		}

		stored, _ := dt.rw.GetCell("MASKLIST", 0)
		if !reflect.DeepEqual(stored, c.stored) {
			t.Errorf("Got stored %v, wanted %v", stored, c.stored)
		}

		got, err := Cell[MaskList](dt, ColMaskList, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(c.expected) {
			t.Errorf("Got %v, wanted %v", got, c.expected)
		}
	}
}

func TestMaskListColumnKeepsRowShape(t *testing.T) {
	dt := newTable(t, 3)

	masks := []MaskList{{}, {{1, 2}, {3, 4}, {5, 6}}, {{7, 8}}}
	if err := dt.PutCol(ColMaskList, masks, 0, -1, 1); err != nil {
		t.Fatal(err)
	}

	got, err := Col[MaskList](dt, ColMaskList)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("Got %v rows, wanted %v", len(got), 3)
	}
	for i := range masks {
		if !got[i].Equal(masks[i]) {
			t.Errorf("Row %d: got %v, wanted %v", i, got[i], masks[i])
		}
	}
}

func TestNoChangeColumn(t *testing.T) {
	dt := newTable(t, 3)

	if err := dt.PutCol(ColNoChange, []int{-1, 0, 4}, 0, -1, 1); err != nil {
		t.Fatal(err)
	}
	got, err := Col[NoChange](dt, ColNoChange)
	if err != nil {
		t.Fatal(err)
	}
	expected := []NoChange{{}, NoChangeSince(0), NoChangeSince(4)}
	if !slices.Equal(got, expected) {
		t.Errorf("Got %v, wanted %v", got, expected)
	}

	if err := dt.PutCol(ColNoChange, []bool{false, true, false}, 0, -1, 1); err != nil {
		t.Fatal(err)
	}
	got, _ = Col[NoChange](dt, ColNoChange)
	if !slices.Equal(got, []NoChange{{}, {}, {}}) {
		t.Errorf("Got %v, wanted every row unset", got)
	}
}

func TestGenericCoercion(t *testing.T) {
	type testCase struct {
		tag   string
		col   Column
		value any
		ok    bool
	}

	cases := []testCase{
		{"int", ColFlagSummary, 1, true},
		{"int32", ColFlagSummary, int32(1), true},
		{"bool", ColFlagSummary, true, true},
		{"string into int", ColFlagSummary, "1", false},
		{"float32 into double", ColTsys, float32(1.5), true},
		{"int into double", ColTsys, 3, true},
		{"int64 vector", ColFlagPermanent, []int64{1, 1, 1, 0}, true},
		{"wrong shape", ColFlagPermanent, []int{1, 1}, false},
		{"float32 vector", ColStatistics, []float32{1, 2, 3, 4, 5, 6, 7}, true},
		{"string", ColTarget, "M100", true},
	}

	dt := newTable(t, 1)
	for _, c := range cases {
		t.Log(c.tag)

		err := dt.PutCell(c.col, 0, c.value)
		if (err == nil) != c.ok {
			t.Errorf("Got %v, wanted ok=%v", err, c.ok)
		}
		if !c.ok && !errors.Is(err, ErrTypeMismatch) && !errors.Is(err, table.ErrWrongType) {
			t.Errorf("Got %v, wanted a type error", err)
		}
	}

	if _, err := Cell[string](dt, ColTsys, 0); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Got %v, wanted ErrTypeMismatch", err)
	}
}

func TestReadOnlyAccessor(t *testing.T) {
	m, err := table.NewMemory("ro", Schema(RO), 1)
	if err != nil {
		t.Fatal(err)
	}

	a := newAccessor(m, ColScan, true)
	if !a.ReadOnly() {
		t.Error("Accessor is not read-only")
	}
	if err := a.PutCell(0, 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Got %v, wanted ErrReadOnly", err)
	}
	if err := a.PutCol([]int{1}, 0, -1, 1); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Got %v, wanted ErrReadOnly", err)
	}
	if v, err := a.GetCell(0); err != nil || v != 0 {
		t.Errorf("Got %v (%v), wanted %v", v, err, 0)
	}
}
