package format

import (
    "fmt"
    "strings"
    "time"
)

// FmtCurrency formats amount in minor units for the currencies the
// storefront sells in. Example: FmtCurrency(12345, "GHS", "en") => "GH₵123.45"
func FmtCurrency(minor int64, currency, lang string) string {
    currency = strings.ToUpper(currency)
    switch currency {
    case "GHS":
        return twoDecimal(minor, "GH₵")
    case "USD":
        return twoDecimal(minor, "$")
    default:
        // generic minor units
        return fmt.Sprintf("%s %s", currency, thousandSep(minor))
    }
}

// FmtPrice formats a major-unit price (as the catalog stores it) in the
// storefront's home currency.
func FmtPrice(amount float64, lang string) string {
    return FmtCurrency(int64(amount*100 + 0.5), "GHS", lang)
}

func twoDecimal(minor int64, symbol string) string {
    neg := minor < 0
    if neg {
        minor = -minor
    }
    major := minor / 100
    cents := minor % 100
    out := symbol + thousandSep(major) + fmt.Sprintf(".%02d", cents)
    if neg {
        return "-" + out
    }
    return out
}

func thousandSep(n int64) string {
    s := fmt.Sprintf("%d", n)
    neg := false
    if strings.HasPrefix(s, "-") { neg = true; s = s[1:] }
    out := ""
    for i, c := range s {
        if i != 0 && (len(s)-i)%3 == 0 { out += "," }
        out += string(c)
    }
    if neg { return "-" + out }
    return out
}

// FmtDate formats time in a locale-friendly short form.
func FmtDate(t time.Time, lang string) string {
    switch strings.ToLower(lang) {
    case "fr":
        return t.Format("02/01/2006")
    default:
        return t.Format("Jan 2, 2006")
    }
}
