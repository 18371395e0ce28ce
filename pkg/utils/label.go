package utils

// Label 是打分链路中的一等公民：可解释、可追踪、可透传。
// Value 与 Source 的语义由节点自定义；这里只提供标准化的合并规则。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rank / explain ...
}

// MergeLabel 用于合并同名 Label，遵循“保留历史、可追踪”的默认策略。
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	return MergeLabelWith(existing, incoming, "|")
}

// MergeLabelWith 与 MergeLabel 相同，但 Value 使用自定义分隔符累积。
// 解释文本用 " & " 连接各个信号。
func MergeLabelWith(existing Label, incoming Label, sep string) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + sep + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "":
		merged.Source = existing.Source
	case existing.Source == incoming.Source:
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
