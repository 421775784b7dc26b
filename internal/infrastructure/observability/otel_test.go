package observability

import "testing"

func TestSplitEndpoint(t *testing.T) {
	cases := []struct {
		raw      string
		endpoint string
		insecure bool
	}{
		{"otel-collector:4318", "otel-collector:4318", true},
		{"http://otel-collector:4318", "otel-collector:4318", true},
		{"https://otlp.example.com", "otlp.example.com", false},
	}

	for _, tc := range cases {
		endpoint, insecure := splitEndpoint(tc.raw)
		if endpoint != tc.endpoint || insecure != tc.insecure {
			t.Errorf("splitEndpoint(%q) = %q, %v; want %q, %v", tc.raw, endpoint, insecure, tc.endpoint, tc.insecure)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders("authorization=Bearer abc, x-tenant = prod ,malformed,=empty")
	if len(headers) != 2 {
		t.Fatalf("parsed %d headers, want 2: %v", len(headers), headers)
	}
	if headers["authorization"] != "Bearer abc" {
		t.Errorf("authorization = %q", headers["authorization"])
	}
	if headers["x-tenant"] != "prod" {
		t.Errorf("x-tenant = %q", headers["x-tenant"])
	}
}
