package oracle

import "strings"

// ExtractJSON вырезает JSON-документ из ответа модели: снимает
// обрамляющие код-фенсы и окружающую прозу, возвращая подстроку от
// первой открывающей скобки до парной последней. Если JSON не найден,
// возвращает пустую строку.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Снимаем код-фенсы: берём содержимое первого fenced-блока.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		// Язык после фенса (json, JSON и т.п.) на первой строке.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			first := strings.TrimSpace(rest[:nl])
			if first != "" && !strings.ContainsAny(first, "{[") {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}

	open := s[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}

	// Ищем парную скобку с учётом вложенности и строк.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}
