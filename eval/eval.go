// Package eval 离线评估推荐快照：Precision@K 与命中率。
package eval

import (
	"github.com/rushteam/prodrec/core"
)

// DefaultK 是 Precision@K 的默认 K。
const DefaultK = 10

// PrecisionAtK 返回 recommended 前 K 个中命中 relevant 的比例（分母固定为 K）。
func PrecisionAtK(recommended []string, relevant map[string]struct{}, k int) float64 {
	if k <= 0 {
		return 0
	}
	if len(recommended) > k {
		recommended = recommended[:k]
	}
	hits := 0
	for _, id := range recommended {
		if _, ok := relevant[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// Hit 判断整个推荐列表中是否至少命中一个。
func Hit(recommended []string, relevant map[string]struct{}) bool {
	for _, id := range recommended {
		if _, ok := relevant[id]; ok {
			return true
		}
	}
	return false
}

// UserScore 是单个用户的评估结果。
type UserScore struct {
	UserID    string
	Precision float64
	Hit       bool
}

// Report 是评估汇总。
type Report struct {
	K int
	// Users 是参与评估的用户数（没有购买记录的用户被跳过）
	Users        int
	Skipped      []string
	AvgPrecision float64
	HitRate      float64
	PerUser      []UserScore
}

// Evaluate 以购买记录为 ground truth 评估快照。
func Evaluate(snap core.Snapshot, purchases []core.PurchaseRecord, k int) Report {
	if k <= 0 {
		k = DefaultK
	}
	relevant := make(map[string]map[string]struct{}, len(purchases))
	for _, p := range purchases {
		if len(p.PurchasedProductIDs) == 0 {
			continue
		}
		set, ok := relevant[p.UserID]
		if !ok {
			set = make(map[string]struct{}, len(p.PurchasedProductIDs))
			relevant[p.UserID] = set
		}
		for _, id := range p.PurchasedProductIDs {
			set[id] = struct{}{}
		}
	}

	report := Report{K: k}
	var precisionSum float64
	hits := 0
	for _, res := range snap.Results {
		rel, ok := relevant[res.UserID]
		if !ok {
			report.Skipped = append(report.Skipped, res.UserID)
			continue
		}
		ids := make([]string, len(res.Recommendations))
		for i, r := range res.Recommendations {
			ids[i] = r.ID
		}
		score := UserScore{UserID: res.UserID, Precision: PrecisionAtK(ids, rel, k), Hit: Hit(ids, rel)}
		report.PerUser = append(report.PerUser, score)
		precisionSum += score.Precision
		if score.Hit {
			hits++
		}
	}

	report.Users = len(report.PerUser)
	if report.Users > 0 {
		report.AvgPrecision = precisionSum / float64(report.Users)
		report.HitRate = float64(hits) / float64(report.Users)
	}
	return report
}
