package coupon

import (
	"context"

	"github.com/rs/zerolog"
)

// fallbackLoader reads rule files from S3 and falls back to local copies.
type fallbackLoader struct {
	remote Loader
	local  Loader
	prefix string
	logger zerolog.Logger
}

// NewFallbackLoader returns a loader that tries remote at prefix+path before
// reading path from local. A nil remote or remoteEnabled=false uses local only.
func NewFallbackLoader(remote, local Loader, prefix string, remoteEnabled bool, logger zerolog.Logger) Loader {
	if !remoteEnabled {
		remote = nil
	}
	return &fallbackLoader{
		remote: remote,
		local:  local,
		prefix: prefix,
		logger: logger.With().Str("component", "fallback-loader").Logger(),
	}
}

// Load implements Loader.
func (l *fallbackLoader) Load(ctx context.Context, filePath string) (RuleSet, error) {
	if l.remote == nil {
		return l.local.Load(ctx, filePath)
	}

	key := l.prefix + filePath
	set, err := l.remote.Load(ctx, key)
	if err == nil {
		return set, nil
	}

	l.logger.Warn().
		Err(err).
		Str("s3_key", key).
		Str("local_path", filePath).
		Msg("remote coupon file unavailable, using local copy")

	return l.local.Load(ctx, filePath)
}
