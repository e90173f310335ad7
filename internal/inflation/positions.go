package inflation

import "strings"

// Positions is the canonical position set. Every computed state carries a rate for each.
var Positions = []string{"C", "1B", "2B", "3B", "SS", "OF", "DH", "SP", "RP"}

var aliases = map[string]string{
	"C":  "C",
	"1B": "1B",
	"2B": "2B",
	"3B": "3B",
	"SS": "SS",
	"OF": "OF",
	"LF": "OF",
	"CF": "OF",
	"RF": "OF",
	"DH": "DH",
	"SP": "SP",
	"RP": "RP",
}

// Canonical maps a raw position label to its canonical form.
func Canonical(pos string) (string, bool) {
	c, ok := aliases[strings.ToUpper(strings.TrimSpace(pos))]
	return c, ok
}

// eligible returns the distinct canonical positions in raw, in first-seen order.
// Unrecognized labels are dropped.
func eligible(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		c, ok := Canonical(p)
		if !ok {
			continue
		}
		dup := false
		for _, existing := range out {
			if existing == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}
