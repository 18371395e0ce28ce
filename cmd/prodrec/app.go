package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/rushteam/prodrec/config"
	"github.com/rushteam/prodrec/config/builders"
	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/dataset"
	"github.com/rushteam/prodrec/embedding"
	"github.com/rushteam/prodrec/event"
	"github.com/rushteam/prodrec/logging"
	"github.com/rushteam/prodrec/metrics"
	"github.com/rushteam/prodrec/rank"
	"github.com/rushteam/prodrec/recommend"
	"github.com/rushteam/prodrec/store"
)

// app 持有一次命令执行所需的全部依赖。
type app struct {
	settings *config.Settings
	store    core.Store
	repo     *dataset.Repo
	events   core.EventStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	closers []func() error
}

func newApp(ctx context.Context, s *config.Settings) (*app, error) {
	st, err := store.Open(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	a := &app{
		settings: s,
		store:    st,
		repo:     dataset.New(st, s.Keys),
		metrics:  metrics.New(),
		logger:   logging.With("cli"),
		closers:  []func() error{st.Close},
	}

	switch s.Events.Backend {
	case config.EventBackendSQLite:
		log, err := event.OpenSQLiteLog(ctx, s.Events.DSN)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.events = log
		a.closers = append(a.closers, log.Close)
	default:
		a.events = event.NewKVLog(st, a.repo.Keys.Events)
	}

	builders.UseStore(st)
	return a, nil
}

func (a *app) scorer() (*rank.Scorer, error) {
	sc := rank.NewScorer()
	sc.RelevanceThreshold = a.settings.Scoring.RelevanceThreshold
	sc.Dimension = a.settings.Embedding.Dimension
	sc.Logger = logging.With("rank")
	sc.Metrics = a.metrics

	nodes, err := config.LoadPipeline(a.settings.Scoring.Pipeline)
	if err != nil {
		return nil, err
	}
	return sc.WithPipeline(nodes)
}

func (a *app) embedder() (core.Embedder, error) {
	return embedding.New(a.settings.Embedding,
		embedding.WithLogger(logging.With("embedding")),
		embedding.WithMetrics(a.metrics),
	)
}

// service 组装在线推荐服务；withEmbedder 为 false 时不创建 embedding 客户端。
func (a *app) service(withEmbedder bool) (*recommend.Service, error) {
	sc, err := a.scorer()
	if err != nil {
		return nil, err
	}
	svc := &recommend.Service{
		Repo:          a.repo,
		Scorer:        sc,
		Events:        a.events,
		TopN:          a.settings.Scoring.TopN,
		CategoryBoost: a.settings.Scoring.CategoryBoost,
		Logger:        logging.With("recommend"),
	}
	if withEmbedder {
		emb, err := a.embedder()
		if err != nil {
			return nil, err
		}
		svc.Embedder = emb
	}
	return svc, nil
}

// Close 导出指标并释放资源，按打开的逆序关闭。
func (a *app) Close() error {
	var errs []error
	if a.settings.Metrics.File != "" {
		if err := a.metrics.WriteTextfile(a.settings.Metrics.File); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	builders.UseStore(nil)
	return errors.Join(errs...)
}

// withApp 为命令打开 app，结束后关闭。
func withApp(ctx context.Context, fn func(*app) error) (err error) {
	a, err := newApp(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
