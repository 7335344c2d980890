package datatable

import (
	"fmt"
	"slices"

	"github.com/radio-astro/casa-sub011/table"
)

// PosEntry is one entry of a position dictionary.
// The representative's entry lists every member of the group. Any other member
// points back to its representative.
type PosEntry struct {
	// ROW and row index of the group representative
	RepRow   int
	RepIndex int
	// Member ROWs and row indices, representative entries only
	Rows    []int
	Indices []int
	// Row index of a non-representative member
	Index int
}

func (e PosEntry) IsRepresentative() bool {
	return e.Rows != nil
}

// Legacy returns the entry in its list form:
// [[rows...], [indices...]] for a representative, [[-1, repRow], [index]] otherwise
func (e PosEntry) Legacy() [2][]int {
	if e.IsRepresentative() {
		return [2][]int{slices.Clone(e.Rows), slices.Clone(e.Indices)}
	}
	return [2][]int{{-1, e.RepRow}, {e.Index}}
}

// PosDict maps a row index to its position group entry.
// ROW values repeat across datasets, row indices do not.
type PosDict map[int]PosEntry

// TimeGroup lists the ROWs and row indices of one time group
type TimeGroup struct {
	Rows    []int
	Indices []int
}

// Row selection and identifiers used by the group lookups
type groupView struct {
	rows    []int
	members []int
}

func (dt *DataTable) groupView(key GroupKey) (groupView, error) {
	rows, err := Col[int](dt, ColRow)
	if err != nil {
		return groupView{}, err
	}
	members, err := dt.GetRowIndex(key.Antenna, key.Spw, key.Pol)
	if err != nil {
		return groupView{}, err
	}
	return groupView{rows: rows, members: members}, nil
}

// GetPosDict returns the position groups of one antenna, spectral window and polarization
func (dt *DataTable) GetPosDict(ant, spw, pol int) (PosDict, error) {
	key := GroupKey{ant, spw, pol}

	rep, list, err := dt.PosGroups()
	if err != nil {
		return nil, unknownGroup(key, KwPosGrpList)
	}
	ids, ok := list[key]
	if !ok {
		return nil, unknownGroup(key, KwPosGrpList)
	}

	view, err := dt.groupView(key)
	if err != nil {
		return nil, err
	}
	posgrp, err := Col[int](dt, ColPosGrp)
	if err != nil {
		return nil, err
	}

	dict := make(PosDict, len(ids))
	for _, id := range ids {
		r, ok := rep[id]
		if !ok || r < 0 || r >= len(view.rows) {
			return nil, fmt.Errorf("%w: no representative row for position group %d", table.ErrRowOutOfRange, id)
		}
		dict[r] = PosEntry{RepRow: view.rows[r], RepIndex: r, Rows: []int{}, Indices: []int{}}
	}

	for _, i := range view.members {
		id := posgrp[i]
		if !slices.Contains(ids, id) {
			continue
		}
		r := rep[id]

		entry := dict[r]
		entry.Rows = append(entry.Rows, view.rows[i])
		entry.Indices = append(entry.Indices, i)
		dict[r] = entry

		if i == r {
			continue
		}
		// Rows representing another group keep their own entry
		if existing, ok := dict[i]; ok && existing.IsRepresentative() {
			continue
		}
		dict[i] = PosEntry{RepRow: view.rows[r], RepIndex: r, Index: i}
	}
	return dict, nil
}

// GetTimeTable returns the small and large time groups of one antenna, spectral
// window and polarization, each ordered by first occurrence
func (dt *DataTable) GetTimeTable(ant, spw, pol int) ([2][]TimeGroup, error) {
	key := GroupKey{ant, spw, pol}

	groups, err := dt.TimeGroups()
	if err != nil {
		return [2][]TimeGroup{}, unknownGroup(key, KwTimeGrpList)
	}
	ids, ok := groups[key]
	if !ok {
		return [2][]TimeGroup{}, unknownGroup(key, KwTimeGrpList)
	}

	view, err := dt.groupView(key)
	if err != nil {
		return [2][]TimeGroup{}, err
	}

	var timetable [2][]TimeGroup
	for side, col := range [2]Column{ColTimeGrpS, ColTimeGrpL} {
		wanted := ids.Small
		if col == ColTimeGrpL {
			wanted = ids.Large
		}

		grp, err := Col[int](dt, col)
		if err != nil {
			return [2][]TimeGroup{}, err
		}

		position := make(map[int]int, len(wanted))
		timetable[side] = []TimeGroup{}
		for _, i := range view.members {
			id := grp[i]
			if !slices.Contains(wanted, id) {
				continue
			}
			p, ok := position[id]
			if !ok {
				p = len(timetable[side])
				position[id] = p
				timetable[side] = append(timetable[side], TimeGroup{Rows: []int{}, Indices: []int{}})
			}
			timetable[side][p].Rows = append(timetable[side][p].Rows, view.rows[i])
			timetable[side][p].Indices = append(timetable[side][p].Indices, i)
		}
	}
	return timetable, nil
}

// GetTimeGap returns the rows starting a new small and large time group,
// as ROW values when asRow is set and as row indices otherwise
func (dt *DataTable) GetTimeGap(ant, spw, pol int, asRow bool) ([2][]int, error) {
	key := GroupKey{ant, spw, pol}

	small, large, err := dt.TimeGaps()
	if err != nil {
		return [2][]int{}, unknownGroup(key, KwTimeGapS)
	}
	s, ok := small[key]
	if !ok {
		return [2][]int{}, unknownGroup(key, KwTimeGapS)
	}
	l, ok := large[key]
	if !ok {
		return [2][]int{}, unknownGroup(key, KwTimeGapL)
	}

	gaps := [2][]int{slices.Clone(s), slices.Clone(l)}
	if !asRow {
		return gaps, nil
	}

	rows, err := Col[int](dt, ColRow)
	if err != nil {
		return [2][]int{}, err
	}
	for side := range gaps {
		for i, idx := range gaps[side] {
			if idx < 0 || idx >= len(rows) {
				return [2][]int{}, fmt.Errorf("%w: time gap at row %d", table.ErrRowOutOfRange, idx)
			}
			gaps[side][i] = rows[idx]
		}
	}
	return gaps, nil
}
