package fonts

import "testing"

func TestStandard(t *testing.T) {
	tests := []struct {
		ft   StandardType
		name string
	}{
		{Helvetica, "Helvetica"},
		{HelveticaBold, "Helvetica-Bold"},
		{Courier, "Courier"},
		{StandardType(42), "Helvetica"},
	}
	for _, tt := range tests {
		f := Standard(tt.ft)
		if f.Name != tt.name {
			t.Errorf("Standard(%d).Name = %q, want %q", tt.ft, f.Name, tt.name)
		}
		if f.Metrics == nil || f.Metrics.UnitsPerEm == 0 {
			t.Errorf("Standard(%d) has no metrics", tt.ft)
		}
	}
}

func TestStringWidth(t *testing.T) {
	f := Standard(Helvetica)

	short := f.StringWidth("Fecha", 10)
	long := f.StringWidth("Firmado digitalmente por:", 10)
	if short <= 0 || long <= short {
		t.Errorf("widths: short %.2f, long %.2f", short, long)
	}
	if double := f.StringWidth("Fecha", 20); double < 2*short-0.01 || double > 2*short+0.01 {
		t.Errorf("width does not scale with size: %.2f vs %.2f", double, short)
	}

	mono := Standard(Courier)
	if a, b := mono.StringWidth("iiii", 10), mono.StringWidth("WWWW", 10); a != b {
		t.Errorf("monospace widths differ: %.2f vs %.2f", a, b)
	}
}

func TestStringWidthFallback(t *testing.T) {
	var m *Metrics
	if got := m.StringWidth("Razón", 10); got != 25 {
		t.Errorf("fallback width = %.2f, want 25", got)
	}
}
