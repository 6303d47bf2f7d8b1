package prereq

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/avareg/quickscan/internal/executor"
	"github.com/avareg/quickscan/pkg/types"
)

// minPreflightVersion is the oldest tool version whose output this
// program knows how to parse.
const minPreflightVersion = "1.6.11"

var versionRe = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// Result is the outcome of one prerequisite check. Printing is the
// caller's job.
type Result struct {
	Name   string
	OK     bool
	Detail string
}

// Options selects which environment checks to run.
type Options struct {
	// FQDN of the registry to probe; empty skips the connectivity check.
	FQDN string
	// Namespace and Token enable the authenticated API probe.
	Namespace string
	Token     string
}

// Checker verifies the environment before a run: tool present, tool
// recent enough, registry reachable, credentials accepted.
type Checker struct {
	commandExecutor types.CommandExecutor
	client          types.HTTPClientInterface
	lookPath        func(string) (string, error)
}

// NewChecker creates a Checker backed by the real executor and HTTP client.
func NewChecker(ctx context.Context) *Checker {
	return &Checker{
		commandExecutor: executor.NewCommandExecutor(ctx),
		client:          types.NewRealHTTPClient(),
		lookPath:        exec.LookPath,
	}
}

// Run executes every applicable check and reports whether all passed.
func (c *Checker) Run(ctx context.Context, opts Options) ([]Result, bool) {
	results := []Result{
		c.toolInstalled(),
		c.toolVersion(),
	}
	if opts.FQDN != "" {
		results = append(results, c.registryReachable(ctx, opts.FQDN))
	}
	if opts.Token != "" {
		results = append(results, c.registryAuth(ctx, opts.FQDN, opts.Namespace, opts.Token))
	}

	allOK := true
	for _, r := range results {
		allOK = allOK && r.OK
	}
	return results, allOK
}

func (c *Checker) toolInstalled() Result {
	res := Result{Name: "preflight installed"}
	path, err := c.lookPath("preflight")
	if err != nil {
		res.Detail = "preflight not found in PATH"
		return res
	}
	res.OK = true
	res.Detail = path
	return res
}

func (c *Checker) toolVersion() Result {
	res := Result{Name: fmt.Sprintf("preflight version (>=%s)", minPreflightVersion)}

	stdout, stderr, err := c.commandExecutor.ExecuteCommand("preflight", []string{"--version"}, os.Environ())
	if err != nil {
		res.Detail = fmt.Sprintf("error checking version: %v", err)
		return res
	}

	match := versionRe.FindStringSubmatch(stdout + stderr)
	if match == nil {
		res.Detail = "could not determine preflight version"
		return res
	}

	current, err := semver.NewVersion(match[1])
	if err != nil {
		res.Detail = fmt.Sprintf("unparsable version %q", match[1])
		return res
	}

	res.Detail = current.String()
	res.OK = !current.LessThan(semver.MustParse(minPreflightVersion))
	if !res.OK {
		res.Detail = fmt.Sprintf("found %s, need at least %s", current, minPreflightVersion)
	}
	return res
}

// registryReachable probes the registry over HTTPS. Any HTTP response at
// all proves the host is reachable; only transport errors fail the check.
func (c *Checker) registryReachable(ctx context.Context, fqdn string) Result {
	res := Result{Name: fqdn + " connection"}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "https://"+fqdn+"/", nil)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	resp, err := c.client.Do(req)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	resp.Body.Close()

	res.OK = true
	res.Detail = resp.Status
	return res
}

func (c *Checker) registryAuth(ctx context.Context, fqdn, namespace, token string) Result {
	res := Result{Name: "registry auth (bearer token)"}

	url := fmt.Sprintf("https://%s/api/v1/repository?namespace=%s", fqdn, namespace)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		res.Detail = err.Error()
		return res
	}
	resp.Body.Close()

	res.OK = resp.StatusCode == http.StatusOK
	res.Detail = resp.Status
	return res
}
