// Package prodrec 是基于 embedding 的商品推荐核心。
//
// 设计要点：
// - Pipeline-first: 打分通过 Node 串联（recall.Catalog → filter → rank.similarity → rank.explain → rerank）
// - Labels-first: 解释信号以 Label 形式在 Item 上累积，最终合并为可读的 explanation
// - 先更新、后清空: 行为事件只有在用户 embedding 成功写回后才会被清空
//
// 入口：rank.Scorer（单次打分）、batch.Job（批量快照）、profile.Updater（画像更新）、
// recommend.Service（在线推荐）、cmd/prodrec（命令行）。
package prodrec

import (
	"github.com/rushteam/prodrec/pipeline"
	"github.com/rushteam/prodrec/rank"
)

// 轻量 facade：便于直接 import "prodrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind
type Scorer = rank.Scorer
type ScoreRequest = rank.Request

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)

// NewScorer 返回使用默认阈值的打分器。
func NewScorer() *Scorer { return rank.NewScorer() }
