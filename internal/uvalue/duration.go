package uvalue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/replicore/syncengine/internal/errs"
)

// EncodeDuration renders d as the canonical ISO-8601 "PT<secs>[.<nanos>]S"
// form used on the wire by every sink (spec §3.1, §4.1). This is the only
// interchange form: no sink ever receives a Go time.Duration directly.
func EncodeDuration(d time.Duration) string {
	total := d.Nanoseconds()
	neg := total < 0
	if neg {
		total = -total
	}
	secs := total / int64(time.Second)
	nanos := total % int64(time.Second)

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteString("PT")
	sb.WriteString(strconv.FormatInt(secs, 10))
	if nanos != 0 {
		frac := strconv.FormatInt(nanos, 10)
		for len(frac) < 9 {
			frac = "0" + frac
		}
		frac = strings.TrimRight(frac, "0")
		sb.WriteByte('.')
		sb.WriteString(frac)
	}
	sb.WriteByte('S')
	return sb.String()
}

// ParseDuration parses the canonical "PT<secs>[.<nanos>]S" form back into
// a time.Duration. ParseDuration(EncodeDuration(d)) == d for every d
// representable in nanoseconds (spec §8, invariant 7 analogue for
// Duration).
func ParseDuration(s string) (time.Duration, error) {
	orig := s
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if !strings.HasPrefix(s, "PT") || !strings.HasSuffix(s, "S") {
		return 0, fmt.Errorf("duration %q: expected PT<secs>[.<nanos>]S form: %w", orig, errs.ErrTypeMismatch)
	}
	body := s[2 : len(s)-1]
	if body == "" {
		return 0, fmt.Errorf("duration %q: empty body: %w", orig, errs.ErrTypeMismatch)
	}

	secPart, fracPart, hasFrac := strings.Cut(body, ".")
	secs, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("duration %q: invalid seconds: %w", orig, errs.ErrTypeMismatch)
	}

	var nanos int64
	if hasFrac {
		for len(fracPart) < 9 {
			fracPart += "0"
		}
		fracPart = fracPart[:9]
		nanos, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("duration %q: invalid fraction: %w", orig, errs.ErrTypeMismatch)
		}
	}

	total := secs*int64(time.Second) + nanos
	if neg {
		total = -total
	}
	return time.Duration(total), nil
}
