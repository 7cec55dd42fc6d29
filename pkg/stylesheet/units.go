package stylesheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var keywordSizes = map[string]string{
	"xx-small": "9px",
	"x-small":  "10px",
	"small":    "13px",
	"medium":   "16px",
	"large":    "18px",
	"x-large":  "24px",
	"xx-large": "32px",
	"smaller":  "0.8em",
	"larger":   "1.2em",
}

// em per unit, assuming a 16px/12pt base.
var unitMultipliers = map[string]float64{
	"pt": 1.0 / 12,
	"px": 1.0 / 16,
	"em": 1,
	"%":  1.0 / 100,
}

var (
	measureRe  = regexp.MustCompile(`^(-?\d*\.?\d+)(pt|px|em|%)$`)
	sizePropRe = regexp.MustCompile(`^(\s*)(font-size|line-height|letter-spacing|word-spacing|margin(?:-[a-z]+)?|padding(?:-[a-z]+)?)\s*:\s*(.+)$`)
)

// ToEm converts a single CSS length to em with two decimals. Keywords go
// through the keyword table first. Values with any other unit, and
// values that are not lengths at all, are returned unchanged.
func ToEm(value string) string {
	v := strings.TrimSpace(value)
	if k, ok := keywordSizes[strings.ToLower(v)]; ok {
		v = k
	}
	m := measureRe.FindStringSubmatch(strings.ToLower(v))
	if m == nil {
		return value
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return value
	}
	return fmt.Sprintf("%.2fem", n*unitMultipliers[m[2]])
}

// ConvertSizes rewrites the lengths of sizing declarations in the
// indented form to em.
func ConvertSizes(indented string) string {
	lines := strings.Split(indented, "\n")
	for i, line := range lines {
		m := sizePropRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, important := cutImportant(m[3])
		fields := strings.Fields(value)
		for j, f := range fields {
			fields[j] = ToEm(f)
		}
		if important {
			fields = append(fields, "!important")
		}
		lines[i] = m[1] + m[2] + ": " + strings.Join(fields, " ")
	}
	return strings.Join(lines, "\n")
}

// cutImportant strips a trailing "!important", with or without a space
// before the "!".
func cutImportant(value string) (string, bool) {
	v := strings.TrimSpace(value)
	i := strings.LastIndexByte(v, '!')
	if i < 0 || !strings.EqualFold(strings.TrimSpace(v[i+1:]), "important") {
		return value, false
	}
	return v[:i], true
}
