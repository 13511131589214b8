package renderer

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// encode переводит UTF-8 в байты Windows-1252 для стандартных шрифтов PDF.
// Символы вне кодовой страницы печатаются как '?'.
func encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// oneLine сводит сообщение об ошибке к одной строке не длиннее n рун.
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		s = string(r[:n-3]) + "..."
	}
	return s
}
