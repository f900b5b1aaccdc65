package protocol

import "strings"

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", " ",
	"\t", " ",
)

// EscapeString 转义属性值
// 只处理反斜杠、双引号、换行和制表符四种情况，不是完整的 JSON 转义
func EscapeString(s string) string {
	return escaper.Replace(s)
}
