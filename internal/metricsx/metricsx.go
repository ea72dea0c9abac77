// Package metricsx extends github.com/VictoriaMetrics/metrics with a few
// label-aware helpers used by the probe layer to build labeled (e.g.
// per-kind) metric names.
package metricsx

import "strings"

// splitName splits name into its base and curly-brace label argument, e.g.
// `stabping_ticks_total{kind="tcpping"}` -> (`stabping_ticks_total`,
// `kind="tcpping"`).
func splitName(name string) (base, arg string) {
	if n := len(name); n != 0 {
		base = name
		for i, r := range base {
			if r == '{' {
				if j := len(base) - 1; j > i && base[j] == '}' {
					base, arg = base[:i], base[i+1:j]
					break
				}
			}
		}
	}
	return
}

// formatName rebuilds a metric name from base plus an existing label
// argument (arg, possibly empty) and any number of extra key/value pairs.
func formatName(base, arg string, args ...string) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteByte('{')
	if arg != "" {
		b.WriteString(arg)
	}
	for i := 1; i < len(args); i += 2 {
		if arg != "" || i > 1 {
			b.WriteByte(',')
		}
		b.WriteString(args[i-1])
		b.WriteString("=\"")
		b.WriteString(args[i])
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// WithLabel appends a key/value label to name, e.g.
// WithLabel(`stabping_ticks_total`, "kind", "tcpping") ->
// `stabping_ticks_total{kind="tcpping"}`.
func WithLabel(name, key, value string) string {
	base, arg := splitName(name)
	return formatName(base, arg, key, value)
}
