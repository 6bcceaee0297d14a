// Package project turns an upload into a hosted project.
//
// Publishing resolves the project name, takes the per-name lock, wipes any
// previous directory and hands the upload to the matching materializer.
// The lock is held until materialization finishes, so two uploads of the
// same name never interleave; the last one to finish wins.
package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MalithGihan/sitehost-service/internal/materialize"
	"github.com/MalithGihan/sitehost-service/internal/metrics"
	"github.com/MalithGihan/sitehost-service/internal/sanitize"
	"github.com/MalithGihan/sitehost-service/internal/store"
	"github.com/MalithGihan/sitehost-service/pkg/types"
)

var ErrUnknownKind = errors.New("unknown upload kind")

// URL is the path a project is served under.
func URL(name string) string { return "/sites/" + name }

// Handle is a resolved, empty, locked project directory.
type Handle struct {
	types.Project
	release func()
}

// Release unlocks the project name. Safe to call more than once.
func (h *Handle) Release() { h.release() }

type Publisher struct {
	store   *store.FS
	tree    *materialize.Tree
	archive *materialize.Archive
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewPublisher(st *store.FS, workers int, m *metrics.Metrics, logger *zap.Logger) (*Publisher, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Publisher{
		store:   st,
		tree:    materialize.NewTree(workers, logger),
		archive: materialize.NewArchive(logger),
		metrics: m,
		logger:  logger,
	}, nil
}

// Resolve sanitizes rawName, locks it and leaves an empty directory at the
// project path. Callers must Release the handle.
func (p *Publisher) Resolve(rawName string) (*Handle, error) {
	name := sanitize.ProjectName(sanitize.FirstSegment(rawName))
	if name == "" {
		return nil, sanitize.ErrEmptyProjectName
	}

	unlock := p.store.Lock(name)
	dir, err := p.store.Reset(name)
	if err != nil {
		unlock()
		return nil, err
	}
	return &Handle{
		Project: types.Project{Name: name, Dir: dir, URL: URL(name)},
		release: unlock,
	}, nil
}

// Publish replaces the project named by the upload with its contents.
func (p *Publisher) Publish(ctx context.Context, up types.Upload) (types.Result, error) {
	start := time.Now()
	res, err := p.publish(ctx, up)
	p.metrics.ObserveUpload(string(up.Kind), err, time.Since(start))
	return res, err
}

func (p *Publisher) publish(ctx context.Context, up types.Upload) (types.Result, error) {
	res := types.Result{Kind: up.Kind}
	switch up.Kind {
	case types.KindFolder, types.KindArchive, types.KindSingleFile:
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownKind, up.Kind)
	}
	if len(up.Files) == 0 {
		return res, fmt.Errorf("%s upload carries no files", up.Kind)
	}

	name, err := nameFor(up)
	if err != nil {
		return res, err
	}
	h, err := p.Resolve(name)
	if err != nil {
		return res, err
	}
	defer h.Release()
	res.Project = h.Project

	log := p.logger.With(
		zap.String("project", h.Name),
		zap.String("kind", string(up.Kind)),
	)

	switch up.Kind {
	case types.KindFolder:
		rep, err := p.tree.Materialize(ctx, up.Files, h.Dir)
		res.Written, res.Failed = rep.Written, rep.Failed
		p.metrics.AddFiles(rep.Written, rep.Failed)
		if err != nil {
			return res, err
		}
		if rep.Failed > 0 {
			log.Warn("folder upload partially written",
				zap.Int("written", rep.Written),
				zap.Int("failed", rep.Failed),
			)
		}

	case types.KindArchive:
		src, err := up.Files[0].Open()
		if err != nil {
			return res, fmt.Errorf("open archive: %w", err)
		}
		defer src.Close()
		n, err := p.archive.Materialize(ctx, src, h.Dir)
		res.Written = n
		if err != nil {
			return res, err
		}

	case types.KindSingleFile:
		if err := materialize.Single(ctx, up.Files[0], h.Dir); err != nil {
			return res, err
		}
		res.Written = 1
	}

	log.Info("project published", zap.Int("files", res.Written))
	return res, nil
}

// nameFor picks the project name. Archives drop their .zip extension.
func nameFor(up types.Upload) (string, error) {
	if up.Kind == types.KindArchive {
		return sanitize.ArchiveName(up.RootName())
	}
	return sanitize.Resolve(up.RootName())
}
