package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/logfields"
)

// envRef matches ${NAME} references; bare $ text such as $x^2$ is not a reference.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${NAME} with the value of the environment variable NAME.
func expandEnv(text string) string {
	return envRef.ReplaceAllStringFunc(text, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

// BuildKey is the reserved top-level key holding generator settings. It is the
// only key not passed through to templates.
const BuildKey = "build"

// Site is the loaded configuration: the template context plus the ordered post list.
type Site struct {
	// Path is the configuration file the site was loaded from.
	Path string
	// Dir is the directory relative paths are resolved against.
	Dir string

	// Context holds every top-level key except BuildKey, verbatim. Context["posts"]
	// is backed by the same maps as Posts[i].Fields.
	Context map[string]any
	Posts   []*Post
	Build   BuildConfig
}

// Post describes one article: where its source lives and which file it renders to.
type Post struct {
	Src    string
	URL    string
	Fields map[string]any
}

// Set attaches a derived field; templates see it under the same key.
func (p *Post) Set(key string, value any) {
	p.Fields[key] = value
}

// SetDefault sets key only when the configuration did not.
func (p *Post) SetDefault(key string, value any) {
	if _, ok := p.Fields[key]; !ok {
		p.Fields[key] = value
	}
}

// BuildConfig represents the reserved build section.
type BuildConfig struct {
	PublishDir       string          `yaml:"publish_dir"`
	TemplateDir      string          `yaml:"template_dir"`
	Preserve         []string        `yaml:"preserve"`
	RepositoryURL    string          `yaml:"repository_url"`
	RepositoryBranch string          `yaml:"repository_branch"`
	Backends         BackendsConfig  `yaml:"backends"`
	Pandoc           PandocConfig    `yaml:"pandoc"`
	Nbconvert        NbconvertConfig `yaml:"nbconvert"`
	ConvertTimeout   time.Duration   `yaml:"convert_timeout"`
	StaticDirs       []string        `yaml:"static_dirs"`
	Feed             FeedConfig      `yaml:"feed"`
	CheckLinks       bool            `yaml:"check_links"`
	StrictLinks      bool            `yaml:"strict_links"`
	History          string          `yaml:"history"`
	Notify           NotifyConfig    `yaml:"notify"`
}

// BackendsConfig selects the conversion backend per source kind.
type BackendsConfig struct {
	Markdown string `yaml:"markdown"`
	Notebook string `yaml:"notebook"`
}

// PandocConfig configures the pandoc subprocess backend.
type PandocConfig struct {
	Binary   string `yaml:"binary"`
	Template string `yaml:"template"`
}

// NbconvertConfig configures the jupyter nbconvert subprocess backend.
type NbconvertConfig struct {
	Binary   string `yaml:"binary"`
	Template string `yaml:"template"`
	// TempDir stages synthetic notebooks for markdown sources.
	TempDir string `yaml:"temp_dir"`
}

// FeedConfig configures the optional atom feed.
type FeedConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
	BaseURL string `yaml:"base_url"`
	Author  string `yaml:"author"`
	File    string `yaml:"file"`
}

// NotifyConfig configures build notifications over NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Site, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		slog.Debug("No .env file loaded", logfields.Error(err))
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, berrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, berrors.FileSystem("read", configPath, err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, berrors.FileSystem("resolve", configPath, err)
	}

	site, err := Parse(expandEnv(string(data)), filepath.Dir(absPath))
	if err != nil {
		if be, ok := berrors.As(err); ok {
			be.WithContext("path", configPath)
		}
		return nil, err
	}
	site.Path = absPath

	if site.Build.RepositoryURL == "" {
		if url, err := DiscoverRepositoryURL(site.Dir); err == nil {
			site.Build.RepositoryURL = url
		}
	}

	return site, nil
}

// Parse decodes configuration text. Relative paths in the build section are
// resolved against baseDir.
func Parse(text, baseDir string) (*Site, error) {
	var root map[string]any
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, berrors.ConfigParse("", err)
	}
	if root == nil {
		return nil, berrors.ConfigRequired("posts")
	}

	var raw struct {
		Build BuildConfig `yaml:"build"`
	}
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, berrors.ConfigParse("", err)
	}

	site := &Site{
		Dir:     baseDir,
		Context: make(map[string]any, len(root)),
		Build:   raw.Build,
	}
	for k, v := range root {
		if k == BuildKey {
			continue
		}
		site.Context[k] = v
	}

	posts, err := parsePosts(root)
	if err != nil {
		return nil, err
	}
	site.Posts = posts

	// Normalise to a list of the very maps held by Posts so that fields attached
	// during the build are visible to the index template.
	list := make([]any, len(posts))
	for i, p := range posts {
		list[i] = p.Fields
	}
	site.Context["posts"] = list

	applyDefaults(&site.Build)
	site.Build.resolvePaths(baseDir)

	return site, nil
}

func parsePosts(root map[string]any) ([]*Post, error) {
	rawPosts, ok := root["posts"]
	if !ok {
		return nil, berrors.ConfigRequired("posts")
	}
	if rawPosts == nil {
		return []*Post{}, nil
	}
	items, ok := rawPosts.([]any)
	if !ok {
		return nil, berrors.ValidationFailed("posts", fmt.Sprintf("expected a list, got %T", rawPosts))
	}

	posts := make([]*Post, 0, len(items))
	seen := make(map[string]int, len(items))
	for i, item := range items {
		field := fmt.Sprintf("posts[%d]", i)
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, berrors.ValidationFailed(field, fmt.Sprintf("expected a mapping, got %T", item))
		}
		src, err := requiredString(fields, field, "src")
		if err != nil {
			return nil, err
		}
		url, err := requiredString(fields, field, "url")
		if err != nil {
			return nil, err
		}
		if !filepath.IsLocal(filepath.FromSlash(url)) {
			return nil, berrors.ValidationFailed(field+".url", "must be a relative path inside the publish directory: "+url)
		}
		key := filepath.ToSlash(filepath.Clean(filepath.FromSlash(url)))
		if key == "index.html" {
			return nil, berrors.ValidationFailed(field+".url", "index.html is reserved for the landing page")
		}
		if prev, dup := seen[key]; dup {
			return nil, berrors.ValidationFailed(field+".url", fmt.Sprintf("duplicate of posts[%d]: %s", prev, url))
		}
		seen[key] = i

		posts = append(posts, &Post{Src: src, URL: url, Fields: fields})
	}
	return posts, nil
}

func requiredString(fields map[string]any, prefix, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", berrors.ConfigRequired(prefix + "." + key)
	}
	s, ok := v.(string)
	if !ok {
		return "", berrors.ValidationFailed(prefix+"."+key, fmt.Sprintf("expected a string, got %T", v))
	}
	if strings.TrimSpace(s) == "" {
		return "", berrors.ConfigRequired(prefix + "." + key)
	}
	return s, nil
}

// SourcePath resolves a post's source against the configuration directory.
func (s *Site) SourcePath(p *Post) string {
	return resolve(s.Dir, filepath.FromSlash(p.Src))
}

// OutputPath is where a post's page is written.
func (s *Site) OutputPath(p *Post) string {
	return filepath.Join(s.Build.PublishDir, filepath.FromSlash(p.URL))
}

// SourceLink returns the repository link for a post, or "" without a repository URL.
func (s *Site) SourceLink(p *Post) string {
	if s.Build.RepositoryURL == "" {
		return ""
	}
	base := strings.TrimSuffix(s.Build.RepositoryURL, "/")
	src := strings.TrimPrefix(filepath.ToSlash(p.Src), "./")
	return fmt.Sprintf("%s/blob/%s/%s", base, s.Build.RepositoryBranch, src)
}

func (b *BuildConfig) resolvePaths(baseDir string) {
	b.PublishDir = resolve(baseDir, b.PublishDir)
	b.TemplateDir = resolve(baseDir, b.TemplateDir)
	b.Pandoc.Template = resolve(baseDir, b.Pandoc.Template)
	b.Nbconvert.TempDir = resolve(baseDir, b.Nbconvert.TempDir)
	if b.History != "" {
		b.History = resolve(baseDir, b.History)
	}
	for i, d := range b.StaticDirs {
		b.StaticDirs[i] = resolve(baseDir, d)
	}
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
