package telegram

import "regexp"

// Theme slot names, matching the host's themeParams keys.
const (
	SlotBG                 = "bg_color"
	SlotText               = "text_color"
	SlotHint               = "hint_color"
	SlotLink               = "link_color"
	SlotButton             = "button_color"
	SlotButtonText         = "button_text_color"
	SlotSecondaryBG        = "secondary_bg_color"
	SlotHeaderBG           = "header_bg_color"
	SlotBottomBarBG        = "bottom_bar_bg_color"
	SlotAccentText         = "accent_text_color"
	SlotSectionBG          = "section_bg_color"
	SlotSectionHeaderText  = "section_header_text_color"
	SlotSectionSeparator   = "section_separator_color"
	SlotSubtitleText       = "subtitle_text_color"
	SlotDestructiveText    = "destructive_text_color"
)

// themeFallbacks documents the color used for every slot when the host
// provides none or a malformed one.
var themeFallbacks = map[string]string{
	SlotBG:                "#f5f7fa",
	SlotText:              "#22223b",
	SlotHint:              "#6366f1",
	SlotLink:              "#16a34a",
	SlotButton:            "#6366f1",
	SlotButtonText:        "#ffffff",
	SlotSecondaryBG:       "#ffffff",
	SlotHeaderBG:          "#f5f7fa",
	SlotBottomBarBG:       "#f5f7fa",
	SlotAccentText:        "#4f46e5",
	SlotSectionBG:         "#ffffff",
	SlotSectionHeaderText: "#6366f1",
	SlotSectionSeparator:  "#e0e7ff",
	SlotSubtitleText:      "#6b7280",
	SlotDestructiveText:   "#ef4444",
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Theme resolves named color slots against the host-provided params.
type Theme struct {
	params map[string]string
}

func NewTheme(params map[string]string) Theme {
	return Theme{params: params}
}

// Color returns the host color for the slot when it is a syntactically valid
// six-digit hex color; otherwise the documented fallback for that slot.
func (t Theme) Color(slot string) string {
	if v, ok := t.params[slot]; ok && hexColor.MatchString(v) {
		return v
	}
	return themeFallbacks[slot]
}
