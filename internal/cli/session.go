package cli

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/ngenohkevin/hivedeck-drive/config"
	"github.com/ngenohkevin/hivedeck-drive/internal/dragmove"
	"github.com/ngenohkevin/hivedeck-drive/internal/drive"
	"github.com/ngenohkevin/hivedeck-drive/internal/logging"
	"github.com/ngenohkevin/hivedeck-drive/internal/navigator"
	"github.com/ngenohkevin/hivedeck-drive/internal/notify"
	"github.com/ngenohkevin/hivedeck-drive/internal/server"
	"github.com/ngenohkevin/hivedeck-drive/internal/thumbnail"
)

// maxNotices bounds the in-memory notice history of a session.
const maxNotices = 100

// newClient builds the drive client from configuration.
func newClient(cfg *config.Config, log *logging.Logger) (*drive.Client, error) {
	client, err := drive.NewFromConfig(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return client, nil
}

// localeOf returns the collation locale, falling back to neutral
// collation for tags that do not parse.
func localeOf(cfg *config.Config, log *logging.Logger) language.Tag {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		log.Warn().Str("locale", cfg.Locale).Msg("unknown locale, using neutral collation")
		return language.Und
	}
	return tag
}

// newSession wires one browsing session: client, navigator, drag-move
// controller, thumbnail loader and notice queue.
func newSession(cfg *config.Config, log *logging.Logger) (*server.Session, *drive.Client, error) {
	client, err := newClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	notices := notify.NewQueue(maxNotices, drive.UserMessage)
	nav := navigator.New(client, navigator.Options{
		RootLabel:     cfg.RootLabel,
		Locale:        localeOf(cfg, log),
		UsageCacheTTL: cfg.UsageCacheTTL,
		Notices:       notices,
		Logger:        log,
	})

	sess := &server.Session{
		Nav:     nav,
		Drag:    dragmove.New(client, nav, notices, log),
		Thumbs:  thumbnail.NewLoader(client, cfg.ThumbnailConcurrency, cfg.ThumbnailMaxBytes, 0, log),
		Notices: notices,
	}
	return sess, client, nil
}
