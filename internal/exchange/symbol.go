package exchange

import "strings"

// NativeSymbol 把 URL 中的 BTC-USDT 转为 ccxt 统一格式 BTC/USDT。
// 已经是斜杠格式的输入原样返回，只替换第一个连字符，大小写保持不变。
func NativeSymbol(symbol string) string {
	s := strings.TrimSpace(symbol)
	if strings.Contains(s, "/") {
		return s
	}
	return strings.Replace(s, "-", "/", 1)
}
