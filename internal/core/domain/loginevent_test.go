package domain

import "testing"

func TestMaskNetwork(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"203.0.113.45", "203.0.113.0/24"},
		{"203.0.113.45:52114", "203.0.113.0/24"},
		{"2001:db8:85a3::8a2e:370:7334", "2001:db8:85a3::/64"},
		{"[2001:db8:85a3::8a2e:370:7334]:443", "2001:db8:85a3::/64"},
		{"not-an-address", "unknown"},
		{"", "unknown"},
	}
	for _, tc := range cases {
		if got := MaskNetwork(tc.in); got != tc.want {
			t.Errorf("MaskNetwork(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDeviceFamily(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", "mobile"},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8)", "mobile"},
		{"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)", "tablet"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "desktop"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)", "desktop"},
		{"curl/8.4.0", "api_client"},
		{"PostmanRuntime/7.36.0", "api_client"},
		{"SmartFridge/1.0", "other"},
		{"", "unknown"},
	}
	for _, tc := range cases {
		if got := DeviceFamily(tc.in); got != tc.want {
			t.Errorf("DeviceFamily(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
