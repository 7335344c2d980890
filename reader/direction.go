package reader

import (
	"math"
	"time"
)

// Zero point of the Modified Julian Date
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

const (
	secondsPerDay = 86400
	// DATE column layout
	DateLayout = "2006/01/02/15:04:05.000"
)

// MJDToTime converts a Modified Julian Date in days to UTC
func MJDToTime(mjd float64) time.Time {
	// Whole days first, time.Duration overflows after ~292 years
	days := math.Floor(mjd)
	rest := time.Duration(math.Round((mjd - days) * secondsPerDay * float64(time.Second)))
	return mjdEpoch.AddDate(0, 0, int(days)).Add(rest)
}

// TimeToMJD is the inverse of MJDToTime
func TimeToMJD(t time.Time) float64 {
	days := math.Floor(t.Sub(mjdEpoch).Hours() / 24)
	start := mjdEpoch.AddDate(0, 0, int(days))
	return days + t.Sub(start).Seconds()/secondsPerDay
}

// FormatDate renders an MJD as YYYY/MM/DD/hh:mm:ss.sss
func FormatDate(mjd float64) string {
	return MJDToTime(mjd).Format(DateLayout)
}

// Frame is the epoch and location needed to convert between
// equatorial and horizontal coordinates
type Frame struct {
	MJD  float64
	Site Site
}

// Greenwich mean sidereal time in degrees
func gmst(mjd float64) float64 {
	d := mjd + 2400000.5 - 2451545.0
	return normalize(280.46061837 + 360.98564736629*d)
}

// Local sidereal time in degrees
func (f Frame) lst() float64 {
	return normalize(gmst(f.MJD) + f.Site.Longitude)
}

// ToHorizontal converts RA/DEC to AZ/EL, all in degrees.
// Azimuth is measured from north through east.
func (f Frame) ToHorizontal(ra, dec float64) (az, el float64) {
	h := rad(f.lst() - ra)
	lat := rad(f.Site.Latitude)
	d := rad(dec)

	el = math.Asin(math.Sin(d)*math.Sin(lat) + math.Cos(d)*math.Cos(lat)*math.Cos(h))
	az = math.Atan2(-math.Cos(d)*math.Sin(h), math.Sin(d)*math.Cos(lat)-math.Cos(d)*math.Sin(lat)*math.Cos(h))
	return normalize(deg(az)), deg(el)
}

// ToEquatorial converts AZ/EL to RA/DEC, all in degrees
func (f Frame) ToEquatorial(az, el float64) (ra, dec float64) {
	a := rad(az)
	e := rad(el)
	lat := rad(f.Site.Latitude)

	dec = math.Asin(math.Sin(e)*math.Sin(lat) + math.Cos(e)*math.Cos(lat)*math.Cos(a))
	h := math.Atan2(-math.Cos(e)*math.Sin(a), math.Sin(e)*math.Cos(lat)-math.Cos(e)*math.Sin(lat)*math.Cos(a))
	return normalize(f.lst() - deg(h)), deg(dec)
}

// Complete fills in whichever frame d is missing
func (f Frame) Complete(d Direction) Direction {
	switch {
	case d.HasEquatorial && !d.HasHorizontal:
		d.Az, d.El = f.ToHorizontal(d.RA, d.Dec)
		d.HasHorizontal = true
	case d.HasHorizontal && !d.HasEquatorial:
		d.RA, d.Dec = f.ToEquatorial(d.Az, d.El)
		d.HasEquatorial = true
	}
	return d
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }

func normalize(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
