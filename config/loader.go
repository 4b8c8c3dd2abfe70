package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/logger"
)

// FileSystem is the file access the loader needs. Tests swap it out.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	Getwd() (string, error)
}

// RealFileSystem reads the local disk.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads a .env file without overriding variables already set.
func (RealFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

func (RealFileSystem) Getwd() (string, error) { return os.Getwd() }

// LoaderConfig holds the loader's file system and optional overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	// ConfigFile skips the config.yml search.
	ConfigFile string
	// EnvFile skips the .env search.
	EnvFile string
	// EnvPrefix limits env binding to variables named PREFIX_*, with the
	// prefix removed. Empty binds every variable.
	EnvPrefix string
}

// LoaderOption customizes LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the local disk.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile reads the given file instead of searching for config.yml.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile loads the given file instead of searching for a .env file.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix only binds environment variables starting with prefix
// and an underscore, so LIBRARY_HTTP_TIMEOUT overrides http.timeout.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = strings.ToUpper(strings.TrimSuffix(prefix, "_")) }
}

// ResolvedFiles are the files LoadConfig reads. Empty means none found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver searches the usual project locations for a service's files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles returns the explicit paths in opts, searching for the
// missing ones.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = r.first(configCandidates(serviceName))
	}
	if files.EnvFile == "" {
		files.EnvFile = r.first(envCandidates(serviceName))
	}
	return files
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// serviceNames returns the service name and, for "org-library", the short
// form "library".
func serviceNames(serviceName string) []string {
	if i := strings.LastIndex(serviceName, "-"); i >= 0 && i < len(serviceName)-1 {
		return []string{serviceName, serviceName[i+1:]}
	}
	return []string{serviceName}
}

var parentDirs = []string{"./", "../", "../../"}

func configCandidates(serviceName string) []string {
	var paths []string
	for _, up := range parentDirs {
		for _, name := range serviceNames(serviceName) {
			paths = append(paths, up+"cmd/"+name+"/config.yml")
		}
	}
	return append(paths, "./config/config.yml", "../config/config.yml", "./config.yml")
}

func envCandidates(serviceName string) []string {
	var dirs []string
	for _, name := range serviceNames(serviceName) {
		for _, sub := range []string{"cmd/" + name, "config/" + name} {
			for _, up := range parentDirs {
				dirs = append(dirs, up+sub+"/")
			}
		}
	}
	for _, up := range parentDirs {
		dirs = append(dirs, up+"config/")
	}
	dirs = append(dirs, "./", "../", "../../", "")

	var paths []string
	for _, file := range []string{".env." + serviceName, ".env"} {
		for _, dir := range dirs {
			paths = append(paths, dir+file)
		}
	}
	return paths
}

// LoadConfig fills cfg from the service's config.yml, its .env file and
// the environment, in increasing precedence. Missing files are not an
// error; a file that fails to parse is logged and skipped.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)
	log := logger.Get("config")

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			log.Warn("failed to load config file", logger.Fields("file", files.ConfigFile, logger.FieldError, err.Error()))
		}
	}
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load env file", logger.Fields("file", files.EnvFile, logger.FieldError, err.Error()))
		}
	}
	v.AutomaticEnv()
	bindEnv(v, lc.EnvPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return errors.InvalidConfig(fmt.Sprintf("unable to decode config for %s", serviceName)).WithCause(err)
	}
	return nil
}

// bindEnv sets every key an environment variable could stand for, since
// an underscore in HTTP_RETRY_MAX_ATTEMPTS may be a nesting level or part
// of a key name.
func bindEnv(v *viper.Viper, prefix string) {
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			if key, ok = strings.CutPrefix(key, prefix+"_"); !ok {
				continue
			}
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// maxSplitWords bounds the full expansion; longer names only get the
// flat, fully nested and single-split forms.
const maxSplitWords = 6

// envKeyVariants lists the viper keys for an environment variable name:
//
//	AUTH_JWT_SECRET -> auth_jwt_secret, auth.jwt_secret, auth_jwt.secret, auth.jwt.secret
func envKeyVariants(envKey string) []string {
	words := strings.Split(strings.ToLower(envKey), "_")
	if len(words) == 1 {
		return words
	}
	if len(words) > maxSplitWords {
		out := []string{strings.Join(words, "_"), strings.Join(words, ".")}
		for i := 1; i < len(words); i++ {
			out = append(out, strings.Join(words[:i], ".")+"."+strings.Join(words[i:], "_"))
		}
		return dedupe(out)
	}

	// Each gap between two words is either "_" or ".".
	gaps := len(words) - 1
	out := make([]string, 0, 1<<gaps)
	for mask := 0; mask < 1<<gaps; mask++ {
		var b strings.Builder
		b.WriteString(words[0])
		for i := 1; i < len(words); i++ {
			if mask&(1<<(i-1)) != 0 {
				b.WriteByte('.')
			} else {
				b.WriteByte('_')
			}
			b.WriteString(words[i])
		}
		out = append(out, b.String())
	}
	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; !ok {
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
