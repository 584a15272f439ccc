package market

import (
	"fmt"
	"strings"
	"time"
)

// ParseTimeframe accepts the "M15", "H1", "D1" notation or a Go duration
// such as "15m" or "4h".
func ParseTimeframe(tf string) (time.Duration, error) {
	tf = strings.ToUpper(strings.TrimSpace(tf))
	switch tf {
	case "M1":
		return time.Minute, nil
	case "M5":
		return 5 * time.Minute, nil
	case "M15":
		return 15 * time.Minute, nil
	case "M30":
		return 30 * time.Minute, nil
	case "H1":
		return time.Hour, nil
	case "H4":
		return 4 * time.Hour, nil
	case "D1":
		return 24 * time.Hour, nil
	case "W1":
		return 7 * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(strings.ToLower(tf))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("unsupported timeframe: %q", tf)
	}
	return d, nil
}

// TimeframeString is the inverse of ParseTimeframe for whole minutes,
// hours, days and weeks.
func TimeframeString(d time.Duration) (string, error) {
	sec := int64(d / time.Second)
	switch {
	case sec <= 0:
		return "", fmt.Errorf("invalid timeframe: %s", d)
	case sec < 3600 && sec%60 == 0:
		return fmt.Sprintf("M%d", sec/60), nil
	case sec < 86400 && sec%3600 == 0:
		return fmt.Sprintf("H%d", sec/3600), nil
	case sec%86400 == 0:
		if sec == 7*86400 {
			return "W1", nil
		}
		return fmt.Sprintf("D%d", sec/86400), nil
	}
	return "", fmt.Errorf("cannot map timeframe: %s", d)
}

// PeriodsPerYear is the number of bars of spacing d in a calendar year.
func PeriodsPerYear(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(365*24*time.Hour) / float64(d)
}
