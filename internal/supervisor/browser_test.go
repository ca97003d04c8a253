package supervisor

import "testing"

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos string
		name string
	}{
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
		{"darwin", "open"},
		{"windows", "rundll32"},
	}
	for _, tc := range tests {
		name, args := browserCommand(tc.goos, "http://127.0.0.1:1")
		if name != tc.name {
			t.Errorf("%s: got %q want %q", tc.goos, name, tc.name)
		}
		if args[len(args)-1] != "http://127.0.0.1:1" {
			t.Errorf("%s: url not last argument: %v", tc.goos, args)
		}
	}
}
