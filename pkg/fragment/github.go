package fragment

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/notemuse/internal/logger"
	"github.com/jmylchreest/notemuse/internal/version"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

// GitHubOptions configures a GitHub source.
type GitHubOptions struct {
	Owner  string
	Repo   string
	Folder string // Folder inside the repository, "" for the root
	Ref    string // Branch, tag or commit; "" for the default branch
	Token  string

	// MaxFileSize skips larger notes. Zero disables the check.
	MaxFileSize int64

	// Concurrency bounds parallel downloads (default 4).
	Concurrency int

	BaseURL    string
	HTTPClient *http.Client

	// Rand drives note selection. Nil uses a randomly seeded source.
	Rand *rand.Rand
}

// Entry is one item of a GitHub contents listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	SHA  string `json:"sha"`
}

// GitHub reads notes from a folder of a GitHub repository through the
// contents API.
type GitHub struct {
	opts   GitHubOptions
	client *http.Client

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGitHub creates a GitHub source.
func NewGitHub(opts GitHubOptions) (*GitHub, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	opts.Folder = strings.Trim(opts.Folder, "/")
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &GitHub{opts: opts, client: client, rnd: rnd}, nil
}

// List returns the raw listing of the configured folder.
func (g *GitHub) List(ctx context.Context) ([]Entry, error) {
	body, err := g.get(ctx, g.contentsURL(g.opts.Folder), "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode listing of %q: %v", ErrFetch, g.opts.Folder, err)
	}
	return entries, nil
}

// Filter keeps markdown files within the size limit. Directories, symlinks,
// submodules and empty files are dropped.
func (g *GitHub) Filter(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Type != "file" || !IsMarkdown(e.Name) || e.Size <= 0 {
			continue
		}
		if g.opts.MaxFileSize > 0 && e.Size > g.opts.MaxFileSize {
			logger.Debug("skipping oversized note", "path", e.Path, "size", humanize.Bytes(uint64(e.Size)))
			continue
		}
		out = append(out, e)
	}
	return out
}

// Fetch lists the folder, picks up to n notes at random and downloads them
// in parallel. Notes are normalized; those that are not valid UTF-8 or end
// up blank are skipped.
func (g *GitHub) Fetch(ctx context.Context, n int) ([]Fragment, error) {
	entries, err := g.List(ctx)
	if err != nil {
		return nil, err
	}
	candidates := g.Filter(entries)
	if len(candidates) == 0 || n <= 0 {
		return nil, ErrNoFragments
	}
	picked := g.sample(candidates, n)

	log := logger.Component("fragment")
	log.Debug("notes selected", "listed", len(entries), "candidates", len(candidates), "picked", len(picked))

	results := make([]*Fragment, len(picked))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)
	for i, e := range picked {
		eg.Go(func() error {
			body, err := g.get(egCtx, g.contentsURL(e.Path), "application/vnd.github.raw+json")
			if err != nil {
				return err
			}
			if !utf8.Valid(body) {
				log.Warn("skipping note that is not UTF-8", "path", e.Path)
				return nil
			}
			content, fm := Normalize(string(body))
			if content == "" {
				return nil
			}
			title := fm.Title
			if title == "" {
				title = Title(e.Name)
			}
			results[i] = &Fragment{
				Path:    e.Path,
				Title:   title,
				Content: content,
				Tags:    fm.Tags,
				Size:    int64(len(body)),
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	frags := make([]Fragment, 0, len(results))
	var total int64
	for _, f := range results {
		if f != nil {
			frags = append(frags, *f)
			total += f.Size
		}
	}
	if len(frags) == 0 {
		return nil, ErrNoFragments
	}

	log.Info("notes fetched", "count", len(frags), "bytes", humanize.Bytes(uint64(total)))
	return frags, nil
}

// sample returns up to n entries in random order.
func (g *GitHub) sample(entries []Entry, n int) []Entry {
	g.mu.Lock()
	perm := g.rnd.Perm(len(entries))
	g.mu.Unlock()

	if n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, n)
	for i := range out {
		out[i] = entries[perm[i]]
	}
	return out
}

func (g *GitHub) contentsURL(p string) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		g.opts.BaseURL, url.PathEscape(g.opts.Owner), url.PathEscape(g.opts.Repo), escapePath(p))
	if g.opts.Ref != "" {
		u += "?ref=" + url.QueryEscape(g.opts.Ref)
	}
	return u
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

func (g *GitHub) get(ctx context.Context, u, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", version.UserAgent())
	if g.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.opts.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrFetch, u, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned %d: %s", ErrFetch, req.URL.Path, resp.StatusCode, snippet(body))
	}
	return body, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}

var _ Source = (*GitHub)(nil)
