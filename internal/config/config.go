package config

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	// Register the digest algorithms accepted in release metadata.
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// Config describes the upstream project and the manifest documents kept in sync with it.
// Values come from an optional YAML file and may be overridden by PKGSYNC_* environment variables.
type Config struct {
	// Repository is the upstream GitHub repository in "owner/name" form.
	Repository string `yaml:"repository" env:"PKGSYNC_REPOSITORY,overwrite"`
	// APIBase is the GitHub REST API base URL.
	APIBase string `yaml:"api_base" env:"PKGSYNC_API_BASE,overwrite"`
	// DownloadBase is the base URL used to rebuild the .SRCINFO source line.
	DownloadBase string `yaml:"download_base" env:"PKGSYNC_DOWNLOAD_BASE,overwrite"`
	// PKGBUILD is the path to the primary manifest document.
	PKGBUILD string `yaml:"pkgbuild" env:"PKGSYNC_PKGBUILD,overwrite"`
	// SRCINFO is the path to the generated secondary manifest document.
	SRCINFO string `yaml:"srcinfo" env:"PKGSYNC_SRCINFO,overwrite"`
	// PackageName is the name used by the "provides = <name>=<version>" line.
	PackageName string `yaml:"package_name" env:"PKGSYNC_PACKAGE_NAME,overwrite"`
	// SourceName is the local file name prefix of the "source = " line.
	SourceName string `yaml:"source_name" env:"PKGSYNC_SOURCE_NAME,overwrite"`
	// RuntimePackage is the dependency name the runtime major version is appended to.
	RuntimePackage string `yaml:"runtime_package" env:"PKGSYNC_RUNTIME_PACKAGE,overwrite"`
	// AssetPrefix is removed from the asset file name to derive the asset version.
	AssetPrefix string `yaml:"asset_prefix" env:"PKGSYNC_ASSET_PREFIX,overwrite"`
	// AssetSuffix selects the release asset and is removed to derive the asset version.
	AssetSuffix string `yaml:"asset_suffix" env:"PKGSYNC_ASSET_SUFFIX,overwrite"`
	// DigestAlgorithm is the hash algorithm release digests must declare.
	DigestAlgorithm string `yaml:"digest_algorithm" env:"PKGSYNC_DIGEST_ALGORITHM,overwrite"`
	// CompanionChecksum is the fixed checksum of the bundled companion resource.
	CompanionChecksum string `yaml:"companion_checksum" env:"PKGSYNC_COMPANION_CHECKSUM,overwrite"`
	// InnerArchivePrefix selects the payload member of the outer package container.
	InnerArchivePrefix string `yaml:"inner_archive_prefix" env:"PKGSYNC_INNER_ARCHIVE_PREFIX,overwrite"`
	// BinaryPaths are the candidate install paths of the application executable.
	BinaryPaths []string `yaml:"binary_paths" env:"PKGSYNC_BINARY_PATHS,overwrite"`
	// EngineToken is the browser engine token preceding the runtime token in the binary.
	EngineToken string `yaml:"engine_token" env:"PKGSYNC_ENGINE_TOKEN,overwrite"`
	// RuntimeToken is the runtime framework token whose major version is captured.
	RuntimeToken string `yaml:"runtime_token" env:"PKGSYNC_RUNTIME_TOKEN,overwrite"`
	// Extractors lists archive extractors in priority order.
	Extractors []string `yaml:"extractors" env:"PKGSYNC_EXTRACTORS,overwrite"`
	// Timeout bounds every HTTP request, including the asset download.
	Timeout time.Duration `yaml:"timeout" env:"PKGSYNC_TIMEOUT,overwrite"`
	// MetricsFile is an optional Prometheus textfile written after each run.
	MetricsFile string `yaml:"metrics_file" env:"PKGSYNC_METRICS_FILE,overwrite"`
	// EnvFile is the key/value side channel the run outcome is appended to.
	// It is taken from the environment only and never persisted.
	EnvFile string `yaml:"-" env:"GITHUB_ENV"`
}

const (
	// DefaultConfigFilename is the default filename for sync settings.
	DefaultConfigFilename = "pkgbuild-sync.yaml"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 10 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o644

	// ExtractorBsdtar names the libarchive command line extractor.
	ExtractorBsdtar = "bsdtar"
	// ExtractorTar names the GNU/BSD tar command line extractor.
	ExtractorTar = "tar"
	// ExtractorNative names the in-process extractor.
	ExtractorNative = "native"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBadRepository is returned when the repository is not in owner/name form.
	errBadRepository = errors.New("repository must be in owner/name form")
	// errUnsupportedAlgorithm is returned for digest algorithms other than sha256/sha512.
	errUnsupportedAlgorithm = errors.New("unsupported digest algorithm")
	// errBadCompanionChecksum is returned when the companion checksum is not a hex digest.
	errBadCompanionChecksum = errors.New("companion checksum must be a lowercase hex digest")
	// errUnknownExtractor is returned for extractor names that have no implementation.
	errUnknownExtractor = errors.New("unknown extractor")
	// errEmptyField is returned when a required setting is blank after defaults.
	errEmptyField = errors.New("setting must not be empty")
)

// Default returns the settings for the FreeShow AUR package.
func Default() *Config {
	return &Config{
		Repository:         "ChurchApps/FreeShow",
		APIBase:            "https://api.github.com",
		DownloadBase:       "https://github.com",
		PKGBUILD:           "PKGBUILD",
		SRCINFO:            ".SRCINFO",
		PackageName:        "freeshow",
		SourceName:         "freeshow-electron",
		RuntimePackage:     "electron",
		AssetPrefix:        "FreeShow-",
		AssetSuffix:        "-amd64.deb",
		DigestAlgorithm:    "sha256",
		CompanionChecksum:  "e08b8699c47bfa38365f7194d2dce675b3f36ef36235be993579db8647a8b307",
		InnerArchivePrefix: "data.tar.",
		BinaryPaths:        []string{"opt/FreeShow/FreeShow", "opt/FreeShow/freeshow"},
		EngineToken:        "Chrome",
		RuntimeToken:       "Electron",
		Extractors:         []string{ExtractorBsdtar, ExtractorTar, ExtractorNative},
		Timeout:            DefaultTimeout,
	}
}

// Load reads settings from path, applies environment overrides and validates the result.
// A missing file at the default location is not an error: defaults are used instead.
// A nil lookuper reads the process environment.
func Load(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultConfigFilename:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills blank settings with defaults and checks the result for consistency.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	owner, name, found := strings.Cut(cfg.Repository, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%q: %w", cfg.Repository, errBadRepository)
	}

	for key, raw := range map[string]string{"api_base": cfg.APIBase, "download_base": cfg.DownloadBase} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	hash, ok := HashFor(cfg.DigestAlgorithm)
	if !ok {
		return fmt.Errorf("%q: %w", cfg.DigestAlgorithm, errUnsupportedAlgorithm)
	}

	if !IsHexDigest(cfg.CompanionChecksum, hash) {
		return fmt.Errorf("%q: %w", cfg.CompanionChecksum, errBadCompanionChecksum)
	}

	for _, name := range cfg.Extractors {
		switch name {
		case ExtractorBsdtar, ExtractorTar, ExtractorNative:
		default:
			return fmt.Errorf("%q: %w", name, errUnknownExtractor)
		}
	}

	required := map[string]string{
		"asset_suffix":         cfg.AssetSuffix,
		"inner_archive_prefix": cfg.InnerArchivePrefix,
		"engine_token":         cfg.EngineToken,
		"runtime_token":        cfg.RuntimeToken,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: %w", key, errEmptyField)
		}
	}

	return nil
}

// ChecksumKey returns the manifest key holding checksums, e.g. "sha256sums".
func (c *Config) ChecksumKey() string {
	return c.DigestAlgorithm + "sums"
}

// HashFor maps a digest algorithm name to its crypto.Hash.
func HashFor(algorithm string) (crypto.Hash, bool) {
	switch strings.ToLower(algorithm) {
	case "sha256":
		return crypto.SHA256, true
	case "sha512":
		return crypto.SHA512, true
	default:
		return 0, false
	}
}

// IsHexDigest reports whether value is a lowercase hex digest of hash's size.
func IsHexDigest(value string, hash crypto.Hash) bool {
	if len(value) != hash.Size()*2 || strings.ToLower(value) != value {
		return false
	}

	_, err := hex.DecodeString(value)

	return err == nil
}

// applyDefaults copies defaults into every blank field.
func applyDefaults(cfg *Config) {
	def := Default()

	setString := func(target *string, fallback string) {
		if strings.TrimSpace(*target) == "" {
			*target = fallback
		}
	}

	setString(&cfg.Repository, def.Repository)
	setString(&cfg.APIBase, def.APIBase)
	setString(&cfg.DownloadBase, def.DownloadBase)
	setString(&cfg.PKGBUILD, def.PKGBUILD)
	setString(&cfg.SRCINFO, def.SRCINFO)
	setString(&cfg.PackageName, def.PackageName)
	setString(&cfg.SourceName, def.SourceName)
	setString(&cfg.RuntimePackage, def.RuntimePackage)
	setString(&cfg.AssetPrefix, def.AssetPrefix)
	setString(&cfg.AssetSuffix, def.AssetSuffix)
	setString(&cfg.DigestAlgorithm, def.DigestAlgorithm)
	setString(&cfg.CompanionChecksum, def.CompanionChecksum)
	setString(&cfg.InnerArchivePrefix, def.InnerArchivePrefix)
	setString(&cfg.EngineToken, def.EngineToken)
	setString(&cfg.RuntimeToken, def.RuntimeToken)

	cfg.DigestAlgorithm = strings.ToLower(cfg.DigestAlgorithm)

	if len(cfg.BinaryPaths) == 0 {
		cfg.BinaryPaths = def.BinaryPaths
	}

	if len(cfg.Extractors) == 0 {
		cfg.Extractors = def.Extractors
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
}
