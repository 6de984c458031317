package services

import (
	"strings"
	"unicode"

	"raffle-admin/internal/models"
	"raffle-admin/internal/raffle"
)

// MaskEntries hides personal values for public listings: 김**, kim***@gmail.com,
// 010-****-5678, 0x1234…abcd.
func MaskEntries(schema raffle.FieldSchema, entries []raffle.Entry) []models.MaskedEntry {
	formats := make(map[string]raffle.FieldFormat, schema.Len())
	for _, f := range schema.Fields() {
		formats[f.Name] = f.Format
	}

	out := make([]models.MaskedEntry, len(entries))
	for i, e := range entries {
		values := make(map[string]string, len(e.Values))
		for name, v := range e.Values {
			values[name] = MaskValue(formats[name], v)
		}
		out[i] = models.MaskedEntry{ID: e.ID, Values: values}
	}
	return out
}

func MaskValue(format raffle.FieldFormat, v string) string {
	switch format {
	case raffle.FormatEmail:
		return maskEmail(v)
	case raffle.FormatPhone:
		return maskPhone(v)
	case raffle.FormatETHAddress, raffle.FormatSOLAddress:
		return maskAddress(v)
	}
	return maskText(v)
}

func maskText(v string) string {
	runes := []rune(v)
	if len(runes) == 0 {
		return ""
	}
	return string(runes[0]) + strings.Repeat("*", max(len(runes)-1, 2))
}

func maskEmail(v string) string {
	at := strings.LastIndex(v, "@")
	if at <= 0 {
		return maskText(v)
	}
	local := []rune(v[:at])
	keep := min(3, len(local))
	if len(local) <= 3 {
		keep = 1
	}
	return string(local[:keep]) + "***" + v[at:]
}

func maskPhone(v string) string {
	total := 0
	for _, r := range v {
		if unicode.IsDigit(r) {
			total++
		}
	}
	var b strings.Builder
	seen := 0
	for _, r := range v {
		if !unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		seen++
		if seen <= 3 || seen > total-4 {
			b.WriteRune(r)
		} else {
			b.WriteRune('*')
		}
	}
	return b.String()
}

func maskAddress(v string) string {
	if len(v) <= 10 {
		return maskText(v)
	}
	return v[:6] + "…" + v[len(v)-4:]
}
