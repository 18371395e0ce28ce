// Package vector 提供定长 embedding 向量的基础运算：余弦相似度、均值、混合。
//
// 所有函数都不会把零向量或维度不一致的输入静默地变成 0 / NaN，
// 而是返回 core 中定义的领域错误，由调用方决定跳过哪个实体。
package vector

import (
	"math"

	"github.com/rushteam/prodrec/core"
)

// Dot 计算内积。调用方保证维度一致。
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm 计算 L2 范数。先按最大绝对分量缩放再求平方和，分量很大或很小时不会溢出。
func Norm(v []float64) float64 {
	m := maxAbs(v)
	if m == 0 || math.IsInf(m, 0) || math.IsNaN(m) {
		return m
	}
	var sum float64
	for _, x := range v {
		s := x / m
		sum += s * s
	}
	return m * math.Sqrt(sum)
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if math.IsNaN(x) {
			return x
		}
		if ax := math.Abs(x); ax > m {
			m = ax
		}
	}
	return m
}

// Validate 检查向量存在、维度为 dim 且每个分量有限。dim <= 0 时不检查维度。
func Validate(v []float64, dim int) error {
	if len(v) == 0 {
		return core.ErrMissingEmbedding("vector")
	}
	if dim > 0 && len(v) != dim {
		return core.ErrDimensionMismatch(dim, len(v))
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return core.ErrInvalidInput(core.ModuleVector, "vector: non-finite component")
		}
	}
	return nil
}

// Cosine 计算余弦相似度 dot(a,b) / (|a|·|b|)，结果截断到 [-1, 1]。
//
// 任一向量范数为 0 时返回 DEGENERATE_VECTOR，维度不一致时返回 DIMENSION_MISMATCH，
// 含非有限分量时返回 INVALID_INPUT。两个向量各自按最大绝对分量缩放后再计算。
func Cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, core.ErrMissingEmbedding("vector")
	}
	if len(a) != len(b) {
		return 0, core.ErrDimensionMismatch(len(a), len(b))
	}

	ma, mb := maxAbs(a), maxAbs(b)
	if math.IsNaN(ma) || math.IsNaN(mb) || math.IsInf(ma, 0) || math.IsInf(mb, 0) {
		return 0, core.ErrInvalidInput(core.ModuleVector, "vector: non-finite component")
	}
	if ma == 0 || mb == 0 {
		return 0, core.ErrDegenerateVector()
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := a[i]/ma, b[i]/mb
		dot += x * y
		normA += x * x
		normB += y * y
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, core.ErrInvalidInput(core.ModuleVector, "vector: similarity is not finite")
	}
	// 浮点误差可能让 cos(a,a) 略大于 1
	return math.Max(-1, math.Min(1, sim)), nil
}

// Mean 计算一组同维向量的算术平均（与顺序无关）。
func Mean(vs [][]float64) ([]float64, error) {
	if len(vs) == 0 {
		return nil, core.ErrInvalidInput(core.ModuleVector, "vector: mean of empty set")
	}
	dim := len(vs[0])
	if dim == 0 {
		return nil, core.ErrMissingEmbedding("vector")
	}
	out := make([]float64, dim)
	for _, v := range vs {
		if len(v) != dim {
			return nil, core.ErrDimensionMismatch(dim, len(v))
		}
		for i, x := range v {
			out[i] += x
		}
	}
	n := float64(len(vs))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}

// Blend 返回 w*old + (1-w)*next。w 必须在 (0,1) 内。
func Blend(old, next []float64, w float64) ([]float64, error) {
	if !(w > 0 && w < 1) {
		return nil, core.ErrInvalidInput(core.ModuleVector, "vector: blend weight must be in (0,1)")
	}
	if len(old) != len(next) {
		return nil, core.ErrDimensionMismatch(len(old), len(next))
	}
	out := make([]float64, len(old))
	for i := range old {
		out[i] = w*old[i] + (1-w)*next[i]
	}
	return out, nil
}

// FromFloat32 把 embedding 服务返回的 float32 向量转为 float64。
func FromFloat32(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
