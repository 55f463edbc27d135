package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar calculates trading sessions using scmhub/calendar.
// AlwaysOpen marks instruments quoted around the clock (FX, crypto, futures).
type TradingCalendar struct {
	MIC        string
	Calendar   *calendar.Calendar
	Fallback   bool
	AlwaysOpen bool
	Timezone   *time.Location
}

// Yahoo suffix to MIC code (ISO 10383). See scmhub/calendar for supported MICs.
var suffixMIC = map[string]string{
	".L":  "xlon",
	".PA": "xpar",
	".DE": "xfra",
	".AS": "xams",
	".MI": "xmil",
	".SW": "xswx",
	".TO": "xtse",
	".T":  "xtks",
	".HK": "xhkg",
	".AX": "xasx",
	".KS": "xkrx",
	".TW": "xtai",
	".SS": "xshg",
	".SZ": "xshe",
}

var alwaysOpenCalendar = &TradingCalendar{MIC: "24x7", AlwaysOpen: true}

// -----------------------------------------------------------------------------

// MICForSymbol maps a Yahoo-style symbol to an exchange. The empty string
// means the instrument trades around the clock.
func MICForSymbol(symbol string) string {
	switch {
	case strings.HasSuffix(symbol, "=X"), strings.HasSuffix(symbol, "=F"), strings.HasSuffix(symbol, "-USD"):
		return ""
	}
	for suffix, mic := range suffixMIC {
		if strings.HasSuffix(symbol, suffix) {
			return mic
		}
	}
	// US listings and ^ indices
	return "xnys"
}

// -----------------------------------------------------------------------------

func GetCalendar(symbol string) *TradingCalendar {
	mic := MICForSymbol(symbol)
	if mic == "" {
		return alwaysOpenCalendar
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		// Simple fallback: Mon-Fri 09:30-16:00 New York
		nyLoc, err := time.LoadLocation("America/New_York")
		if err != nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.AlwaysOpen {
		return true
	}
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.AlwaysOpen {
		return true
	}
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		hour, minute := t.Hour(), t.Minute()
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return tc.Calendar.IsOpen(t)
}
