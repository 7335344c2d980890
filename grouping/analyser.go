// Package grouping computes the position and time groups of a DataTable.
package grouping

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/radio-astro/casa-sub011/datatable"
	"github.com/radio-astro/casa-sub011/utils"
)

var ErrInvalidConfig = errors.New("invalid grouping configuration")

// Config holds the grouping thresholds. Every field is required.
type Config struct {
	// Maximum separation from a group representative, in degrees
	PositionTolerance float64
	// A time gap at least this long starts a new small or large time group
	SmallGap time.Duration
	LargeGap time.Duration
	Quiet    bool
}

func (c Config) Validate() error {
	if c.PositionTolerance <= 0 {
		return fmt.Errorf("%w: position tolerance must be positive, got %v", ErrInvalidConfig, c.PositionTolerance)
	}
	if c.SmallGap <= 0 || c.LargeGap <= 0 {
		return fmt.Errorf("%w: time gaps must be positive, got %v and %v", ErrInvalidConfig, c.SmallGap, c.LargeGap)
	}
	if c.LargeGap < c.SmallGap {
		return fmt.Errorf("%w: large gap %v is shorter than small gap %v", ErrInvalidConfig, c.LargeGap, c.SmallGap)
	}
	return nil
}

// Analyser writes POSGRP, TIMEGRP_S and TIMEGRP_L and their keywords
type Analyser struct {
	config Config
}

func New(config Config) (*Analyser, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Analyser{config: config}, nil
}

// Columns read by the analyser
type rows struct {
	ant, spw, pol []int
	ra, dec, time []float64
}

func readRows(dt *datatable.DataTable) (rows, error) {
	var r rows
	var errs [6]error
	r.ant, errs[0] = datatable.Col[int](dt, datatable.ColAntenna)
	r.spw, errs[1] = datatable.Col[int](dt, datatable.ColIF)
	r.pol, errs[2] = datatable.Col[int](dt, datatable.ColPol)
	r.ra, errs[3] = datatable.Col[float64](dt, datatable.ColRA)
	r.dec, errs[4] = datatable.Col[float64](dt, datatable.ColDec)
	r.time, errs[5] = datatable.Col[float64](dt, datatable.ColTime)
	return r, errors.Join(errs[:]...)
}

// Keys returns the row indices of every (antenna, spw, pol), keys sorted
func Keys(dt *datatable.DataTable) ([]datatable.GroupKey, map[datatable.GroupKey][]int, error) {
	r, err := readRows(dt)
	if err != nil {
		return nil, nil, err
	}
	return r.keys()
}

func (r rows) keys() ([]datatable.GroupKey, map[datatable.GroupKey][]int, error) {
	members := make(map[datatable.GroupKey][]int)
	for i := range r.ant {
		key := datatable.GroupKey{Antenna: r.ant[i], Spw: r.spw[i], Pol: r.pol[i]}
		members[key] = append(members[key], i)
	}

	keys := make([]datatable.GroupKey, 0, len(members))
	for key := range members {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		ka, kb := keys[a], keys[b]
		if ka.Antenna != kb.Antenna {
			return ka.Antenna < kb.Antenna
		}
		if ka.Spw != kb.Spw {
			return ka.Spw < kb.Spw
		}
		return ka.Pol < kb.Pol
	})
	return keys, members, nil
}

func (a *Analyser) Execute(dt *datatable.DataTable) error {
	r, err := readRows(dt)
	if err != nil {
		return err
	}
	keys, members, err := r.keys()
	if err != nil {
		return err
	}

	n := dt.Len()
	posgrp := filled(n, -1)
	timegrpS := filled(n, -1)
	timegrpL := filled(n, -1)

	posRep := make(map[int]int)
	posList := make(map[datatable.GroupKey][]int, len(keys))
	timeList := make(map[datatable.GroupKey]datatable.TimeGroupIDs, len(keys))
	gapsS := make(map[datatable.GroupKey][]int, len(keys))
	gapsL := make(map[datatable.GroupKey][]int, len(keys))

	var nextPos, nextSmall, nextLarge int
	bar := utils.NewBar(len(keys), "Grouping", a.config.Quiet)
	for _, key := range keys {
		idx := members[key]

		posList[key] = a.positionGroups(r, idx, posgrp, posRep, &nextPos)

		order := timeOrder(r.time, idx)
		small, gapS := a.timeGroups(r.time, order, a.config.SmallGap, timegrpS, &nextSmall)
		large, gapL := a.timeGroups(r.time, order, a.config.LargeGap, timegrpL, &nextLarge)
		timeList[key] = datatable.TimeGroupIDs{Small: small, Large: large}
		gapsS[key] = gapS
		gapsL[key] = gapL

		slog.Debug(fmt.Sprintf("[%v]: %d rows, %d position groups, %d/%d time groups",
			key, len(idx), len(posList[key]), len(small), len(large)))
		bar.Add(1)
	}

	err = errors.Join(
		dt.PutCol(datatable.ColPosGrp, posgrp, 0, -1, 1),
		dt.PutCol(datatable.ColTimeGrpS, timegrpS, 0, -1, 1),
		dt.PutCol(datatable.ColTimeGrpL, timegrpL, 0, -1, 1),
		dt.SetPosGroups(posRep, posList),
		dt.SetTimeGroups(timeList),
		dt.SetTimeGaps(gapsS, gapsL),
	)
	if err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("Grouped %d rows into %d position, %d small and %d large time groups", n, nextPos, nextSmall, nextLarge))
	return nil
}

// A row joins the first group whose representative is within tolerance,
// otherwise it represents a new group
func (a *Analyser) positionGroups(r rows, idx []int, posgrp []int, rep map[int]int, next *int) []int {
	ids := []int{}
	for _, i := range idx {
		for _, id := range ids {
			if Separation(r.ra[rep[id]], r.dec[rep[id]], r.ra[i], r.dec[i]) <= a.config.PositionTolerance {
				posgrp[i] = id
				break
			}
		}
		if posgrp[i] >= 0 {
			continue
		}

		id := *next
		*next++
		rep[id] = i
		posgrp[i] = id
		ids = append(ids, id)
	}
	return ids
}

// Separation is the planar distance in degrees between two nearby directions,
// with the RA offset scaled by the cosine of the reference declination
func Separation(ra0, dec0, ra, dec float64) float64 {
	dra := math.Mod(ra-ra0, 360)
	if dra > 180 {
		dra -= 360
	} else if dra < -180 {
		dra += 360
	}
	dra *= math.Cos(dec0 * math.Pi / 180)
	ddec := dec - dec0
	return math.Hypot(dra, ddec)
}

func timeOrder(times []float64, idx []int) []int {
	order := append([]int(nil), idx...)
	sort.SliceStable(order, func(a, b int) bool {
		return times[order[a]] < times[order[b]]
	})
	return order
}

// Splits rows ordered by time wherever two neighbours are at least gap apart.
// Returns the group ids and the first row index after each gap.
func (a *Analyser) timeGroups(times []float64, order []int, gap time.Duration, grp []int, next *int) (ids []int, gaps []int) {
	ids, gaps = []int{}, []int{}
	for k, i := range order {
		if k == 0 || mjdDiff(times[order[k-1]], times[i]) >= gap {
			if k > 0 {
				gaps = append(gaps, i)
			}
			ids = append(ids, *next)
			*next++
		}
		grp[i] = ids[len(ids)-1]
	}
	return ids, gaps
}

func mjdDiff(from, to float64) time.Duration {
	return time.Duration(math.Round((to - from) * 86400 * float64(time.Second)))
}

func filled(n, v int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}
