package endpoint

import "testing"

func TestNewEndpointTable(t *testing.T) {
	cases := []struct {
		arg      string
		wantType Type
		wantErr  string
	}{
		{"/foo", PathType, ""},
		{"https://example.org/path", URLType, ""},
		{"http://192.168.253.200/path", URLType, ""},
		{"", 0, "empty or root endpoint is not supported"},
		{"/", 0, "empty or root endpoint is not supported"},
		{`\`, 0, "empty or root endpoint is not supported"},
		{"ftp://foo", 0, "invalid URL endpoint format"},
		{"http://server/path?location", 0, "invalid URL endpoint format"},
		{"http://:/path", 0, "invalid URL endpoint format: empty host name"},
		{"http://:8080/path", 0, "invalid URL endpoint format: empty host name"},
		{"http://server:/path", URLType, ""},
		{"https://93.184.216.34:808080/path", 0, "invalid URL endpoint format: port number must be between 1 to 65535"},
		{"http://server:8080//", 0, "empty or root path is not supported in URL endpoint"},
		{"http://server:8080/", 0, "empty or root path is not supported in URL endpoint"},
		{"192.168.1.210:9000", 0, "invalid URL endpoint format: missing scheme http or https"},
	}

	for _, tc := range cases {
		ep, err := New(tc.arg)
		if tc.wantErr != "" {
			if err == nil {
				t.Errorf("%q: expected error %q, got none", tc.arg, tc.wantErr)
				continue
			}
			if err.Error() != tc.wantErr && !contains(err.Error(), tc.wantErr) {
				t.Errorf("%q: expected error containing %q, got %q", tc.arg, tc.wantErr, err.Error())
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.arg, err)
			continue
		}
		if ep.Type() != tc.wantType {
			t.Errorf("%q: type = %v, want %v", tc.arg, ep.Type(), tc.wantType)
		}
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || (len(substr) > 0 && indexOf(s, substr) >= 0))
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestEndpointDisplay(t *testing.T) {
	fileEp, err := New("/tmp/data")
	if err != nil {
		t.Fatal(err)
	}
	if fileEp.String() != "/tmp/data" {
		t.Fatalf("got %q", fileEp.String())
	}

	urlEp, err := New("http://example.com:9000/path")
	if err != nil {
		t.Fatal(err)
	}
	if urlEp.String() != "http://example.com:9000/path" {
		t.Fatalf("got %q", urlEp.String())
	}
}

func TestEndpointIndexesDefaultAndSet(t *testing.T) {
	ep, err := New("/tmp/data")
	if err != nil {
		t.Fatal(err)
	}
	if ep.PoolIdx != -1 || ep.SetIdx != -1 || ep.DiskIdx != -1 {
		t.Fatalf("expected -1 defaults, got %d %d %d", ep.PoolIdx, ep.SetIdx, ep.DiskIdx)
	}
	ep.SetPoolIndex(2)
	ep.SetSetIndex(3)
	ep.SetDiskIndex(4)
	if ep.PoolIdx != 2 || ep.SetIdx != 3 || ep.DiskIdx != 4 {
		t.Fatalf("got %d %d %d", ep.PoolIdx, ep.SetIdx, ep.DiskIdx)
	}
}

func TestEndpointGridHostAndHostPort(t *testing.T) {
	ep, _ := New("http://example.com:9000/path")
	if ep.GridHost() != "http://example.com:9000" {
		t.Fatalf("got %q", ep.GridHost())
	}
	if ep.HostPort() != "example.com:9000" {
		t.Fatalf("got %q", ep.HostPort())
	}

	noPort, _ := New("https://example.com/path")
	if noPort.GridHost() != "https://example.com" {
		t.Fatalf("got %q", noPort.GridHost())
	}

	fileEp, _ := New("/tmp/data")
	if fileEp.GridHost() != "" || fileEp.HostPort() != "" {
		t.Fatalf("expected empty grid host/port for path endpoint")
	}
}

func TestEndpointCloneAndEquality(t *testing.T) {
	ep1, _ := New("/tmp/data")
	ep2 := ep1.Clone()
	if !Equal(ep1, ep2) {
		t.Fatalf("expected clone to be equal")
	}
	ep2.SetPoolIndex(9)
	if Equal(ep1, ep2) {
		t.Fatalf("mutating clone must not affect original equality")
	}
}

func TestCheckPathLengthRejectsDotsAndRoot(t *testing.T) {
	for _, p := range []string{".", "..", "/"} {
		if CheckPathLength(p) == nil {
			t.Fatalf("expected rejection for %q", p)
		}
	}
}

func TestCheckPathLengthRejectsLongSegment(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	if CheckPathLength("bucket/" + string(long)) == nil {
		t.Fatalf("expected FileNameTooLong for 256-byte segment")
	}
}

func TestIsDirPath(t *testing.T) {
	if !IsDirPath("a/b/") {
		t.Fatalf("expected trailing slash to be a dir path")
	}
	if IsDirPath("a/b") {
		t.Fatalf("expected no trailing slash to not be a dir path")
	}
}
