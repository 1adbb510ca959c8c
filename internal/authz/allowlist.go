// Package authz 提供基于注入式白名单的管理员鉴权。
// 白名单在进程启动时从配置解析一次，之后只做纯内存的成员判定，
// 不读环境变量，也不依赖任何可变全局状态。
package authz

import "strings"

// AllowList 管理员账号白名单，句柄比较忽略大小写。
type AllowList struct {
	handles map[string]struct{}
}

// ParseAllowList 解析逗号分隔的账号白名单。
// 各项去除首尾空白并统一小写，空项忽略；重复项只保留一份。
func ParseAllowList(raw string) *AllowList {
	handles := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		handle := strings.ToLower(strings.TrimSpace(part))
		if handle == "" {
			continue
		}
		handles[handle] = struct{}{}
	}
	return &AllowList{handles: handles}
}

// Allowed 判断句柄是否在白名单内；空句柄一律拒绝。
func (l *AllowList) Allowed(handle string) bool {
	if l == nil {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(handle))
	if normalized == "" {
		return false
	}
	_, ok := l.handles[normalized]
	return ok
}

// Size 白名单内的账号数量
func (l *AllowList) Size() int {
	if l == nil {
		return 0
	}
	return len(l.handles)
}
