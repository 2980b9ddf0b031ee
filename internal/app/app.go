// Package app wires every engine package into one running core: config,
// store, archive, eventbus, contact, reservation, search, and mail. Both
// the MCP server binary and the CLI binary share this construction so
// they never drift out of sync with each other's defaults.
package app

import (
	"fmt"
	"path/filepath"

	"github.com/dicklesworth/agentmail/internal/archive"
	"github.com/dicklesworth/agentmail/internal/config"
	"github.com/dicklesworth/agentmail/internal/contact"
	"github.com/dicklesworth/agentmail/internal/eventbus"
	"github.com/dicklesworth/agentmail/internal/mail"
	"github.com/dicklesworth/agentmail/internal/reservation"
	"github.com/dicklesworth/agentmail/internal/search"
	"github.com/dicklesworth/agentmail/internal/store"
)

// attachmentArchiveSlug names the shared archive queue attachments are
// content-addressed into. Attachments hash-dedupe regardless of which
// project referenced them, so one shared queue under the data root
// avoids needing a per-project pipeline rebuilt at send time.
const attachmentArchiveSlug = "_attachments"

// Core bundles every constructed engine plus the resources (store,
// archive manager, event bus) that need an explicit Close/Stop at
// shutdown.
type Core struct {
	Config      config.Config
	Store       *store.Store
	Archive     *archive.Manager
	Bus         *eventbus.Bus
	Contact     *contact.Engine
	Reservation *reservation.Engine
	Search      *search.Engine
	Mail        *mail.Engine
}

// Build loads configuration from configPath (empty for defaults-only)
// and constructs every engine against it. The returned Core owns the
// store and archive manager; callers must call Close when done.
func Build(configPath string) (*Core, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := filepath.Join(cfg.DataRoot, "agentmail.db")
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", dbPath, err)
	}

	archiveMgr := archive.NewManager(
		filepath.Join(cfg.DataRoot, "archive"),
		cfg.DiskPressureCriticalPercent,
		cfg.DiskPressureFatalPercent,
		s,
	)

	bus := eventbus.New(256)
	contactEngine := contact.New(s, cfg.ContactTTL, cfg.RecentThreadWindow)
	reservationEngine := reservation.New(s, archiveMgr)
	searchEngine := search.New(s)

	attachments := mail.NewAttachmentPipeline(
		cfg.DataRoot,
		cfg.AttachmentMaxDimension,
		cfg.WebPQuality,
		archiveMgr.For(attachmentArchiveSlug),
	)

	mailEngine := mail.New(s, contactEngine, reservationEngine, archiveMgr, bus, attachments, cfg)

	return &Core{
		Config:      cfg,
		Store:       s,
		Archive:     archiveMgr,
		Bus:         bus,
		Contact:     contactEngine,
		Reservation: reservationEngine,
		Search:      searchEngine,
		Mail:        mailEngine,
	}, nil
}

// Close stops every background queue and closes the database handle.
// Best-effort: the archive manager's Stop drains pending writes, so
// callers should invoke this during an orderly shutdown, not as a
// deferred afterthought on a crash path.
func (c *Core) Close() error {
	c.Archive.StopAll()
	return c.Store.Close()
}
