package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/easytalk/internal/model"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildStyledRunes renders text with every simple word from replacements
// highlighted.
func buildStyledRunes(text string, replacements []model.Replacement) []styledRune {
	runes := []rune(text)
	marked := highlightMask(runes, replacements)

	out := make([]styledRune, 0, len(runes))
	for i, r := range runes {
		style := resultStyle
		if marked[i] {
			style = highlightStyle
		}
		out = append(out, styledRune{
			s:       style.Render(string(r)),
			width:   runewidth.RuneWidth(r),
			isSpace: r == ' ',
		})
	}
	return out
}

func highlightMask(runes []rune, replacements []model.Replacement) []bool {
	marked := make([]bool, len(runes))
	for _, rep := range replacements {
		word := []rune(rep.Simple)
		if len(word) == 0 {
			continue
		}
		for _, r := range findAll(runes, word) {
			for i := r.start; i < r.end; i++ {
				marked[i] = true
			}
		}
	}
	return marked
}

type wordRange struct {
	start int
	end   int
}

func findAll(haystack, needle []rune) []wordRange {
	var found []wordRange
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			found = append(found, wordRange{start: i, end: i + len(needle)})
			i += len(needle) - 1
		}
	}
	return found
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapStyledRunes breaks at the last space that fits, or mid-word when a
// single word is wider than the line.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}

// wrapPlain wraps unstyled text with the same rules.
func wrapPlain(text string, width int, style lipgloss.Style) string {
	runes := []rune(text)
	out := make([]styledRune, 0, len(runes))
	for _, r := range runes {
		out = append(out, styledRune{s: style.Render(string(r)), width: runewidth.RuneWidth(r), isSpace: r == ' '})
	}
	return wrapStyledRunes(out, width)
}
