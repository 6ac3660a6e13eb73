package safeurl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateAccepts(t *testing.T) {
	for _, raw := range []string{
		"https://example.com",
		"http://example.com/path?x=1",
		"https://hashspace.example.org/api/v1/events",
		"https://8.8.8.8/listing",
	} {
		require.NoError(t, Validate(raw), raw)
	}
}

func TestValidateRejects(t *testing.T) {
	for _, raw := range []string{
		"file:///etc/passwd",
		"ftp://example.com/a",
		"gopher://example.com",
		"http://localhost/admin",
		"http://sub.localhost:8080/",
		"http://127.0.0.1:9090/metrics",
		"http://0.0.0.0/",
		"http://10.1.2.3/internal",
		"http://172.16.0.10/",
		"http://192.168.1.1/router",
		"http://169.254.169.254/latest/meta-data",
		"http://[::1]/",
		"http://",
	} {
		require.Error(t, Validate(raw), raw)
	}
}
