package main

import "testing"

func TestResolveMode(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		daemon bool
		once   bool
		test   bool
		want   string
	}{
		{name: "default", mode: "once", want: "once"},
		{name: "mode flag alone", mode: "stats", want: "stats"},
		{name: "daemon shorthand", mode: "once", daemon: true, want: "daemon"},
		{name: "test shorthand", mode: "once", test: true, want: "test"},
		{name: "daemon beats once", mode: "once", daemon: true, once: true, want: "daemon"},
		{name: "daemon beats test", mode: "once", daemon: true, test: true, want: "daemon"},
		{name: "once beats test", mode: "cleanup", once: true, test: true, want: "once"},
		{name: "shorthand overrides mode flag", mode: "stats", once: true, want: "once"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := resolveMode(tc.mode, tc.daemon, tc.once, tc.test); got != tc.want {
				t.Fatalf("resolveMode(%q, %v, %v, %v) = %q, want %q",
					tc.mode, tc.daemon, tc.once, tc.test, got, tc.want)
			}
		})
	}
}
