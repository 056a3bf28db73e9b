package column

import (
	"strings"
	"time"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
)

var mondayLocales = map[string]monday.Locale{
	"en":    monday.LocaleEnUS,
	"en_us": monday.LocaleEnUS,
	"en_gb": monday.LocaleEnGB,
	"de":    monday.LocaleDeDE,
	"fr":    monday.LocaleFrFR,
	"fr_ca": monday.LocaleFrCA,
	"es":    monday.LocaleEsES,
	"it":    monday.LocaleItIT,
	"pt":    monday.LocalePtPT,
	"pt_br": monday.LocalePtBR,
	"nl":    monday.LocaleNlNL,
	"nl_be": monday.LocaleNlBE,
	"ru":    monday.LocaleRuRU,
	"sv":    monday.LocaleSvSE,
	"ja":    monday.LocaleJaJP,
	"zh":    monday.LocaleZhCN,
	"zh_tw": monday.LocaleZhTW,
	"ko":    monday.LocaleKoKR,
}

// MondayLocale maps a BCP 47 tag such as "en-GB" onto a monday locale.
// Unknown or malformed tags fall back to en_US.
func MondayLocale(tag string) monday.Locale {
	t, err := language.Parse(tag)
	if err != nil {
		return monday.LocaleEnUS
	}
	base, _ := t.Base()
	region, conf := t.Region()

	key := strings.ToLower(base.String())
	if conf == language.Exact {
		if loc, ok := mondayLocales[key+"_"+strings.ToLower(region.String())]; ok {
			return loc
		}
	}
	if loc, ok := mondayLocales[key]; ok {
		return loc
	}
	return monday.LocaleEnUS
}

// mediumLayout returns a medium date plus time layout in the locale's field order.
func mediumLayout(loc monday.Locale) string {
	switch loc {
	case monday.LocaleEnUS:
		return "Jan 2, 2006, 3:04:05 PM"
	case monday.LocaleDeDE:
		return "02.01.2006, 15:04:05"
	case monday.LocaleJaJP, monday.LocaleZhCN, monday.LocaleZhTW:
		return "2006/01/02 15:04:05"
	case monday.LocaleKoKR:
		return "2006. 1. 2. 15:04:05"
	default:
		return "2 Jan 2006, 15:04:05"
	}
}

// DefaultDateFormatter renders dates in the locale's medium date/time style.
func DefaultDateFormatter(tag string) func(time.Time) string {
	loc := MondayLocale(tag)
	layout := mediumLayout(loc)
	return func(t time.Time) string {
		return monday.Format(t, layout, loc)
	}
}
