package ingest

import "strings"

// Normalize 把原始文本拆成卡密候选序列。
// 只按换行拆分，卡密内容里的逗号等其他分隔符原样保留；
// 逐行去除首尾空白后丢弃空行；不去重，重复行按原顺序保留。
func Normalize(raw string) []string {
	lines := strings.Split(raw, "\n")
	keys := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		keys = append(keys, trimmed)
	}
	return keys
}
