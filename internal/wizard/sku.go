package wizard

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SKUNameLimit 名称片段的最大长度
const SKUNameLimit = 15

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	skuIllegal    = regexp.MustCompile(`[^A-Z0-9-]`)
)

// Normalize 转大写、去重音、空白折叠为连字符、去除非 [A-Z0-9-] 字符
func Normalize(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	out := strings.ToUpper(strings.TrimSpace(folded))
	out = whitespaceRun.ReplaceAllString(out, "-")
	return skuIllegal.ReplaceAllString(out, "")
}

// SKU 由商品名、颜色、尺码推导 SKU
//
//	SKU("Camisa", "Azul", SizeL) == "CAMISA-AZUL-L"
func SKU(name, color string, size Size) string {
	prefix := Normalize(name)
	if len(prefix) > SKUNameLimit {
		prefix = prefix[:SKUNameLimit]
	}
	return prefix + "-" + Normalize(color) + "-" + string(size)
}
