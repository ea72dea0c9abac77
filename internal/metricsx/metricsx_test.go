package metricsx

import "testing"

func TestSplitName(t *testing.T) {
	for _, c := range [][3]string{
		{`test`, `test`, ``},
		{`test{}`, `test`, ``},
		{`test{kind="tcpping"}`, `test`, `kind="tcpping"`},
		{`test{test="{}"}`, `test`, `test="{}"`},
		{``, ``, ``},
		{`test{`, `test{`, ``},
		{`test}`, `test}`, ``},
	} {
		name, xbase, xarg := c[0], c[1], c[2]
		if base, arg := splitName(name); base != xbase || arg != xarg {
			t.Errorf("split %#q: expected (%#q, %#q), got (%#q, %#q)", name, xbase, xarg, base, arg)
		}
	}
}

func TestFormatName(t *testing.T) {
	for _, c := range [][]string{
		{`test{}`, `test`, ``},
		{`test{kind="tcpping"}`, `test`, `kind="tcpping"`},
		{`test{kind="tcpping",addr="google.com:80"}`, `test`, `kind="tcpping"`, `addr`, `google.com:80`},
	} {
		exp, base, arg, args := c[0], c[1], c[2], c[3:]
		if act := formatName(base, arg, args...); act != exp {
			t.Errorf("format (%#q, %#q, %#q): expected %#q, got %#q", base, arg, args, exp, act)
		}
	}
}

func TestWithLabel(t *testing.T) {
	got := WithLabel(`stabping_ticks_total`, "kind", "tcpping")
	want := `stabping_ticks_total{kind="tcpping"}`
	if got != want {
		t.Errorf("WithLabel = %q, want %q", got, want)
	}

	got = WithLabel(`stabping_ticks_total{kind="tcpping"}`, "addr", "a:1")
	want = `stabping_ticks_total{kind="tcpping",addr="a:1"}`
	if got != want {
		t.Errorf("WithLabel (existing arg) = %q, want %q", got, want)
	}
}
