package resolve

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/avareg/quickscan/internal/registry"
	"github.com/avareg/quickscan/pkg/types"
)

// Tag selection modes for registry-resolved tasks.
const (
	TagTypeName   = "name"
	TagTypeDigest = "digest"
)

// RegistryOptions configures API-based task resolution against a
// Quay-compatible registry.
type RegistryOptions struct {
	Token     string
	FQDN      string
	Namespace string
	// Prefix is a |-separated list of substrings; a repository is
	// included when its name contains any of them. Empty includes all.
	Prefix string
	// Exclude is a |-separated list of substrings; a repository is
	// dropped when its name contains any of them.
	Exclude string
	// TagType selects TagTypeName (default) or TagTypeDigest.
	TagType string
}

// FromFile reads image references from a text file, one per line, and
// resolves each into a ScanTask. Blank lines are skipped. Every returned
// task has a non-empty pull target; a reference that cannot be parsed
// fails the whole resolution, since unscannable entries in a hand-written
// list are worth stopping for.
func FromFile(path string) ([]types.ScanTask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening image list %s: %w", path, err)
	}
	defer f.Close()

	var tasks []types.ScanTask
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		task, err := taskFromReference(line)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading image list %s: %w", path, err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no images found in %s", path)
	}
	return tasks, nil
}

// taskFromReference derives a task's identity from one raw reference.
// The reference is used verbatim as the pull target; the short name is
// the last path component and the tag is whatever follows the colon, or
// empty when the reference carries none.
func taskFromReference(raw string) (types.ScanTask, error) {
	if _, err := name.ParseReference(raw); err != nil {
		return types.ScanTask{}, fmt.Errorf("invalid image reference %q: %w", raw, err)
	}

	repoImgTag := raw
	if _, after, found := strings.Cut(raw, "/"); found {
		repoImgTag = after
	}
	lastSegment := repoImgTag[strings.LastIndex(repoImgTag, "/")+1:]
	imageName, _, _ := strings.Cut(lastSegment, ":")
	imageName, _, _ = strings.Cut(imageName, "@")

	tag := ""
	if _, after, found := strings.Cut(lastSegment, ":"); found {
		tag = after
	}

	return types.ScanTask{
		RawReference: raw,
		ImageName:    imageName,
		Tag:          tag,
		PullTarget:   raw,
	}, nil
}

// FromRegistry lists repositories under opts.Namespace, filters them by
// prefix/exclude, and resolves each survivor's newest tag into a
// fully-qualified pull target. Repositories without any tag cannot be
// scanned and are skipped with a warning — they never reach a worker.
func FromRegistry(ctx context.Context, logger types.Logger, client types.HTTPClientInterface,
	opts RegistryOptions) ([]types.ScanTask, error) {
	repos, err := registry.ListRepositories(ctx, client, opts.Token, opts.FQDN, opts.Namespace)
	if err != nil {
		return nil, fmt.Errorf("error listing repositories: %w", err)
	}

	var tasks []types.ScanTask
	for _, repo := range repos {
		if !matchesAny(repo.Name, opts.Prefix, true) || matchesAny(repo.Name, opts.Exclude, false) {
			continue
		}

		detail, err := registry.GetRepository(ctx, client, opts.Token, opts.FQDN, opts.Namespace, repo.Name)
		if err != nil {
			return nil, fmt.Errorf("error fetching repository %s: %w", repo.Name, err)
		}
		if len(detail.Tags) == 0 {
			logger.Warn("skipping repository with no tags: " + repo.Name)
			continue
		}

		imageName := repo.Name[strings.LastIndex(repo.Name, "/")+1:]
		var tag, pullTarget string
		if opts.TagType == TagTypeDigest {
			tag = detail.Tags[0].ManifestDigest
			pullTarget = fmt.Sprintf("%s/%s/%s@%s", opts.FQDN, opts.Namespace, repo.Name, tag)
		} else {
			tag = detail.Tags[0].Name
			pullTarget = fmt.Sprintf("%s/%s/%s:%s", opts.FQDN, opts.Namespace, repo.Name, tag)
		}

		if _, err := name.ParseReference(pullTarget); err != nil {
			return nil, fmt.Errorf("resolved invalid reference %q for %s: %w", pullTarget, repo.Name, err)
		}

		tasks = append(tasks, types.ScanTask{
			RawReference: repo.Name,
			ImageName:    imageName,
			Tag:          tag,
			PullTarget:   pullTarget,
		})
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no images matched in namespace %s", opts.Namespace)
	}
	return tasks, nil
}

// matchesAny reports whether s contains any of the |-separated needles.
// emptyMeans is returned when needles is empty.
func matchesAny(s, needles string, emptyMeans bool) bool {
	if needles == "" {
		return emptyMeans
	}
	for _, needle := range strings.Split(needles, "|") {
		if needle != "" && strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
