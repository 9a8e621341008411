package pet

import (
	"math"
	"time"
)

// zenithAtHorizon is the solar zenith angle at sunrise and sunset, corrected
// for atmospheric refraction and the solar disc.
const zenithAtHorizon = 90.833

// SunriseSunset returns sunrise and sunset in minutes from midnight UTC for
// the calendar day of t at the given position. Polar day is reported as
// (0, 1440) and polar night as (720, 720).
func SunriseSunset(t time.Time, latitude, longitude float64) (sunrise, sunset float64) {
	daysInYear := 365.0
	if isLeap(t.Year()) {
		daysInYear = 366
	}
	gamma := 2 * math.Pi * float64(t.YearDay()-1) / daysInYear

	eqtime := 229.18 * (0.000075 + 0.001868*math.Cos(gamma) -
		0.032077*math.Sin(gamma) - 0.014615*math.Cos(2*gamma) -
		0.040849*math.Sin(2*gamma))

	decl := 0.006918 - 0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)

	lat := radians(latitude)
	cosHA := math.Cos(radians(zenithAtHorizon))/(math.Cos(lat)*math.Cos(decl)) - math.Tan(lat)*math.Tan(decl)
	switch {
	case cosHA <= -1:
		return 0, 24 * 60
	case cosHA >= 1:
		return 12 * 60, 12 * 60
	}
	hourAngle := degrees(math.Acos(cosHA))

	// 4 minutes of time per degree of longitude or hour angle
	sunrise = 720 - 4*(longitude+hourAngle) - eqtime
	sunset = 720 - 4*(longitude-hourAngle) - eqtime
	return sunrise, sunset
}

// DayLength returns the number of daylight hours on the day of t.
func DayLength(t time.Time, latitude, longitude float64) float64 {
	sunrise, sunset := SunriseSunset(t, latitude, longitude)
	return (sunset - sunrise) / 60
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
