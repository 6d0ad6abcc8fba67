package concept

import "strings"

// Dedupe 去除空白项并按大小写不敏感去重，保留首次出现的顺序
func Dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// MergeTags 合并两组字符串，已有项优先
func MergeTags(existing, incoming []string) []string {
	all := make([]string, 0, len(existing)+len(incoming))
	all = append(all, existing...)
	all = append(all, incoming...)
	return Dedupe(all)
}
