package models

import "testing"

func TestReportTypeFor(t *testing.T) {
	tests := map[string]string{
		"annual":    ReportAnnual,
		"quarterly": ReportQuarterly,
		"":          ReportQuarterly,
		"monthly":   ReportQuarterly,
		"ANNUAL":    ReportQuarterly,
	}
	for in, want := range tests {
		if got := ReportTypeFor(in); got != want {
			t.Errorf("ReportTypeFor(%q) = %q, want %q", in, got, want)
		}
	}
}
