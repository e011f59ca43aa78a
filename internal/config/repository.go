package config

import (
	"fmt"
	"net/url"
	"strings"

	ggit "github.com/go-git/go-git/v5"
)

// DiscoverRepositoryURL returns the browsable URL of the "origin" remote of the
// git repository containing dir.
func DiscoverRepositoryURL(dir string) (string, error) {
	repo, err := ggit.PlainOpenWithOptions(dir, &ggit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open git repository: %w", err)
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URL")
	}
	return NormalizeRemoteURL(urls[0])
}

// NormalizeRemoteURL turns clone URLs (scp-like, ssh://, https://) into the
// https form used for blob links.
func NormalizeRemoteURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty remote URL")
	}

	// scp-like syntax: git@github.com:owner/repo.git
	if !strings.Contains(raw, "://") {
		at := strings.Index(raw, "@")
		colon := strings.Index(raw, ":")
		if colon < 0 || colon < at {
			return "", fmt.Errorf("unrecognised remote URL: %s", raw)
		}
		host := raw[at+1 : colon]
		path := raw[colon+1:]
		return "https://" + host + "/" + trimRepoPath(path), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse remote URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git":
	default:
		return "", fmt.Errorf("unsupported remote scheme %q", u.Scheme)
	}
	return "https://" + u.Hostname() + "/" + trimRepoPath(u.Path), nil
}

func trimRepoPath(p string) string {
	p = strings.Trim(p, "/")
	return strings.TrimSuffix(p, ".git")
}
