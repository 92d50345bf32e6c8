package httpapi

import "testing"

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "standard", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "padded", header: "  Bearer abc.def.ghi  ", want: "abc.def.ghi"},
		{name: "empty", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "scheme only", header: "Bearer ", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractBearerToken(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got token %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsPublicPath(t *testing.T) {
	public := []string{"/v1/auth/login", "/healthz", "/openapi.yaml", "/"}
	for _, p := range public {
		if !isPublicPath(p) {
			t.Errorf("%s should be public", p)
		}
	}
	private := []string{"/v1/users", "/v1/roles/1", "/docs", "/v1/auth/login/extra"}
	for _, p := range private {
		if isPublicPath(p) {
			t.Errorf("%s should require a token", p)
		}
	}
}
