package app

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deriveOutputPath returns "<slug>.pptx" next to the template when no
// output path was configured.
func deriveOutputPath(cfg Config, topic string) string {
	if p := strings.TrimSpace(cfg.OutputPath); p != "" {
		return p
	}
	dir := filepath.Dir(cfg.TemplatePath)
	return filepath.Join(dir, slugify(topic)+".pptx")
}

// slugify folds accents, lowercases and keeps [a-z0-9] joined by single
// dashes.
func slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "deck"
	}
	return out
}

func deriveManifestSidecarPath(outputPath string) string {
	return outputPath + ".manifest.json"
}

func deriveDryRunPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".dry-run.md"
}
