package prereq

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExecutor struct {
	stdout string
	stderr string
	err    error
}

func (f *fakeExecutor) ExecuteCommand(name string, args []string, env []string) (string, string, error) {
	return f.stdout, f.stderr, f.err
}

type fakeHTTPClient struct {
	response *http.Response
	err      error
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return f.response, f.err
}

func httpStatus(code int) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func TestChecker_ToolVersion(t *testing.T) {
	tests := []struct {
		name       string
		stdout     string
		stderr     string
		err        error
		wantOK     bool
		wantDetail string
	}{
		{
			name:   "version above minimum",
			stdout: "preflight version 1.9.7 <commit: abc123>\n",
			wantOK: true,
		},
		{
			name:   "version equal to minimum",
			stdout: "preflight version 1.6.11\n",
			wantOK: true,
		},
		{
			name:       "version below minimum",
			stdout:     "preflight version 1.6.2\n",
			wantOK:     false,
			wantDetail: "need at least 1.6.11",
		},
		{
			name:   "version printed on stderr",
			stderr: "preflight version 2.0.0\n",
			wantOK: true,
		},
		{
			name:       "no version in output",
			stdout:     "something unexpected\n",
			wantOK:     false,
			wantDetail: "could not determine",
		},
		{
			name:       "command error",
			err:        errors.New("boom"),
			wantOK:     false,
			wantDetail: "error checking version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Checker{commandExecutor: &fakeExecutor{stdout: tt.stdout, stderr: tt.stderr, err: tt.err}}
			res := c.toolVersion()
			assert.Equal(t, tt.wantOK, res.OK)
			if tt.wantDetail != "" {
				assert.Contains(t, res.Detail, tt.wantDetail)
			}
		})
	}
}

func TestChecker_ToolInstalled(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		c := &Checker{lookPath: func(string) (string, error) { return "/usr/local/bin/preflight", nil }}
		res := c.toolInstalled()
		assert.True(t, res.OK)
		assert.Equal(t, "/usr/local/bin/preflight", res.Detail)
	})
	t.Run("missing", func(t *testing.T) {
		c := &Checker{lookPath: func(string) (string, error) { return "", errors.New("not found") }}
		res := c.toolInstalled()
		assert.False(t, res.OK)
	})
}

func TestChecker_RegistryReachable(t *testing.T) {
	t.Run("any response is reachable", func(t *testing.T) {
		c := &Checker{client: &fakeHTTPClient{response: httpStatus(http.StatusUnauthorized)}}
		res := c.registryReachable(context.Background(), "quay.io")
		assert.True(t, res.OK)
	})
	t.Run("transport error is not", func(t *testing.T) {
		c := &Checker{client: &fakeHTTPClient{err: errors.New("no route to host")}}
		res := c.registryReachable(context.Background(), "quay.io")
		assert.False(t, res.OK)
	})
}

func TestChecker_RegistryAuth(t *testing.T) {
	t.Run("200 accepted", func(t *testing.T) {
		c := &Checker{client: &fakeHTTPClient{response: httpStatus(http.StatusOK)}}
		res := c.registryAuth(context.Background(), "quay.io", "ns", "token")
		assert.True(t, res.OK)
	})
	t.Run("401 rejected", func(t *testing.T) {
		c := &Checker{client: &fakeHTTPClient{response: httpStatus(http.StatusUnauthorized)}}
		res := c.registryAuth(context.Background(), "quay.io", "ns", "token")
		assert.False(t, res.OK)
	})
}

func TestChecker_Run(t *testing.T) {
	c := &Checker{
		commandExecutor: &fakeExecutor{stdout: "preflight version 1.7.0\n"},
		client:          &fakeHTTPClient{response: httpStatus(http.StatusOK)},
		lookPath:        func(string) (string, error) { return "/usr/bin/preflight", nil },
	}

	results, ok := c.Run(context.Background(), Options{FQDN: "quay.io", Namespace: "ns", Token: "token"})
	assert.True(t, ok)
	assert.Len(t, results, 4)

	// without fqdn and token only the tool checks run
	results, ok = c.Run(context.Background(), Options{})
	assert.True(t, ok)
	assert.Len(t, results, 2)
}
