package main

import (
	"testing"

	"github.com/suPer8Hu/assessment-client/internal/config"
)

func TestEventStore(t *testing.T) {
	cases := []struct {
		name       string
		cfg        config.Config
		wantDriver string
		wantDSN    string
	}{
		{"no mirror", config.Config{MirrorBackend: "none"}, "sqlite", defaultEventDSN},
		{"redis mirror", config.Config{MirrorBackend: "redis", MirrorDSN: "ignored"}, "sqlite", defaultEventDSN},
		{"mysql mirror", config.Config{MirrorBackend: "mysql", MirrorDSN: "u:p@tcp(db)/a"}, "mysql", "u:p@tcp(db)/a"},
		{"sqlite without dsn", config.Config{MirrorBackend: "sqlite"}, "sqlite", defaultEventDSN},
	}
	for _, tc := range cases {
		driver, dsn := eventStore(tc.cfg)
		if driver != tc.wantDriver || dsn != tc.wantDSN {
			t.Fatalf("%s: got (%s, %s), want (%s, %s)", tc.name, driver, dsn, tc.wantDriver, tc.wantDSN)
		}
	}
}
