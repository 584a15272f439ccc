package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads bar rows from path:
//
//	time,open,high,low,close[,volume]
//
// where time is RFC3339, RFC3339Nano or unix seconds.
//
// Bars are filtered to [from, to) when either bound is non-zero.
// A single header row ("time,...") is allowed and empty rows are skipped.
// The result is not validated; call Validate before simulating.
func LoadCSV(path string, from, to time.Time) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f, from, to)
}

// ReadCSV is LoadCSV over an arbitrary reader.
func ReadCSV(rd io.Reader, from, to time.Time) ([]Bar, error) {
	r := csv.NewReader(rd)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		bars     []Bar
		sawFirst bool
		line     int
	)
	for {
		row, err := r.Read()
		if err == io.EOF {
			return bars, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		b, err := parseBarRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !inRange(b.Time, from, to) {
			continue
		}
		bars = append(bars, b)
	}
}

func parseBarRow(row []string) (Bar, error) {
	if len(row) < 5 {
		return Bar{}, fmt.Errorf("%w: need at least 5 columns (time,open,high,low,close), got %d",
			ErrInvalidData, len(row))
	}

	t, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return Bar{}, err
	}

	var px [5]float64
	n := 4
	if len(row) > 5 {
		n = 5
	}
	names := [5]string{"open", "high", "low", "close", "volume"}
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return Bar{}, fmt.Errorf("%w: bad %s %q", ErrInvalidData, names[i], row[i+1])
		}
		px[i] = v
	}

	return Bar{
		Time:   t,
		Open:   px[0],
		High:   px[1],
		Low:    px[2],
		Close:  px[3],
		Volume: px[4],
	}, nil
}

func parseTime(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, fmt.Errorf("%w: empty time", ErrInvalidData)
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UTC(), nil
	}
	if sec, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: bad time %q", ErrInvalidData, ts)
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
