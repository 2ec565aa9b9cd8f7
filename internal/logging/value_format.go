package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// consoleTime renders record times in local time without zone or fraction.
func consoleTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(time.DateTime)
}

// consoleValue renders an attribute value for the console line. Bare values
// (component, item id) are never quoted; key=value pairs quote anything that
// would break splitting on spaces.
func consoleValue(v slog.Value, bare bool) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return consoleTime(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if bare {
		return s
	}
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
