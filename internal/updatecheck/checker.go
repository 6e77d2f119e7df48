// Package updatecheck asks the release registry whether a newer
// version exists. Every failure mode degrades to "no update
// information available"; nothing here is ever fatal.
package updatecheck

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	version "github.com/hashicorp/go-version"
	"github.com/rs/zerolog"

	"github.com/secretlens/secretlens/internal/config"
)

// Result describes the outcome of a successful registry query.
type Result struct {
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	UpdateAvailable bool
}

type releaseInfo struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker queries the configured release endpoint and compares the
// published tag against the running version.
type Checker struct {
	cfg     config.UpdateCheckConfig
	client  *http.Client
	logger  zerolog.Logger
	current string
}

// NewChecker builds a Checker for the given running version string.
func NewChecker(cfg config.UpdateCheckConfig, currentVersion string, logger zerolog.Logger) *Checker {
	timeoutSeconds := cfg.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = config.DefaultUpdateCheckTimeoutSeconds
	}
	return &Checker{
		cfg:     cfg,
		client:  &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		logger:  logger.With().Str("component", "UpdateChecker").Logger(),
		current: currentVersion,
	}
}

// Check fetches the latest release tag and reports whether it is newer
// than the running version. Returns nil when checking is disabled or
// when anything goes wrong; a nil result means "no update information".
//
// Version comparison is by dotted numeric components left to right,
// with missing trailing components treated as zero, so "1.2" and
// "1.2.0" are the same version.
func (c *Checker) Check(ctx context.Context) *Result {
	if !c.cfg.Enabled {
		return nil
	}

	endpoint := c.cfg.ReleaseEndpoint
	if endpoint == "" {
		endpoint = config.DefaultUpdateCheckEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to build update check request")
		return nil
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Update check request failed")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("Update check returned non-OK status")
		return nil
	}

	var release releaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to decode release info")
		return nil
	}

	latest := strings.TrimPrefix(strings.TrimSpace(release.TagName), "v")
	if latest == "" {
		c.logger.Warn().Msg("Release info carried no tag name")
		return nil
	}

	result := &Result{
		CurrentVersion: c.current,
		LatestVersion:  latest,
		ReleaseURL:     release.HTMLURL,
	}

	currentVer, err := version.NewVersion(strings.TrimPrefix(c.current, "v"))
	if err != nil {
		// Dev builds have no comparable version; still report what the
		// registry published.
		c.logger.Debug().Str("current", c.current).Msg("Running version is not comparable")
		return result
	}
	latestVer, err := version.NewVersion(latest)
	if err != nil {
		c.logger.Warn().Err(err).Str("tag", latest).Msg("Release tag is not a valid version")
		return result
	}

	result.UpdateAvailable = latestVer.GreaterThan(currentVer)
	if result.UpdateAvailable {
		c.logger.Info().
			Str("current", c.current).
			Str("latest", latest).
			Msg("Update available")
	}
	return result
}
