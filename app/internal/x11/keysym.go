// SPDX-License-Identifier: Unlicense OR MIT

package x11

import (
	"unicode"

	"github.com/BurntSushi/xgb/xproto"

	"xevloop.org/io/key"
)

// Keysyms from X11/keysymdef.h.
const (
	xkBackSpace   = 0xff08
	xkTab         = 0xff09
	xkReturn      = 0xff0d
	xkPause       = 0xff13
	xkScrollLock  = 0xff14
	xkEscape      = 0xff1b
	xkHome        = 0xff50
	xkLeft        = 0xff51
	xkUp          = 0xff52
	xkRight       = 0xff53
	xkDown        = 0xff54
	xkPageUp      = 0xff55
	xkPageDown    = 0xff56
	xkEnd         = 0xff57
	xkPrint       = 0xff61
	xkInsert      = 0xff63
	xkMenu        = 0xff67
	xkNumLock     = 0xff7f
	xkKPSpace     = 0xff80
	xkKPTab       = 0xff89
	xkKPEnter     = 0xff8d
	xkKPHome      = 0xff95
	xkKPLeft      = 0xff96
	xkKPUp        = 0xff97
	xkKPRight     = 0xff98
	xkKPDown      = 0xff99
	xkKPPageUp    = 0xff9a
	xkKPPageDown  = 0xff9b
	xkKPEnd       = 0xff9c
	xkKPInsert    = 0xff9e
	xkKPDelete    = 0xff9f
	xkKP0         = 0xffb0
	xkKP9         = 0xffb9
	xkF1          = 0xffbe
	xkF12         = 0xffc9
	xkShiftL      = 0xffe1
	xkShiftR      = 0xffe2
	xkControlL    = 0xffe3
	xkControlR    = 0xffe4
	xkCapsLock    = 0xffe5
	xkAltL        = 0xffe9
	xkAltR        = 0xffea
	xkSuperL      = 0xffeb
	xkSuperR      = 0xffec
	xkDelete      = 0xffff
	xkISOLeftTab  = 0xfe20
	xkLatin1First = 0x0021
	xkLatin1Last  = 0x00ff
)

var keysymNames = map[xproto.Keysym]key.Name{
	xkBackSpace:  key.NameDeleteBackward,
	xkTab:        key.NameTab,
	xkKPTab:      key.NameTab,
	xkISOLeftTab: key.NameTab,
	xkReturn:     key.NameReturn,
	xkKPEnter:    key.NameEnter,
	xkPause:      key.NamePause,
	xkScrollLock: key.NameScrollLock,
	xkEscape:     key.NameEscape,
	xkHome:       key.NameHome,
	xkKPHome:     key.NameHome,
	xkLeft:       key.NameLeftArrow,
	xkKPLeft:     key.NameLeftArrow,
	xkUp:         key.NameUpArrow,
	xkKPUp:       key.NameUpArrow,
	xkRight:      key.NameRightArrow,
	xkKPRight:    key.NameRightArrow,
	xkDown:       key.NameDownArrow,
	xkKPDown:     key.NameDownArrow,
	xkPageUp:     key.NamePageUp,
	xkKPPageUp:   key.NamePageUp,
	xkPageDown:   key.NamePageDown,
	xkKPPageDown: key.NamePageDown,
	xkEnd:        key.NameEnd,
	xkKPEnd:      key.NameEnd,
	xkPrint:      key.NamePrint,
	xkInsert:     key.NameInsert,
	xkKPInsert:   key.NameInsert,
	xkMenu:       key.NameMenu,
	xkNumLock:    key.NameNumLock,
	xkKPSpace:    key.NameSpace,
	' ':          key.NameSpace,
	xkDelete:     key.NameDeleteForward,
	xkKPDelete:   key.NameDeleteForward,
	xkShiftL:     key.NameShift,
	xkShiftR:     key.NameShift,
	xkControlL:   key.NameCtrl,
	xkControlR:   key.NameCtrl,
	xkCapsLock:   key.NameCapsLock,
	xkAltL:       key.NameAlt,
	xkAltR:       key.NameAlt,
	xkSuperL:     key.NameSuper,
	xkSuperR:     key.NameSuper,
}

var functionKeys = [...]key.Name{
	key.NameF1, key.NameF2, key.NameF3, key.NameF4, key.NameF5, key.NameF6,
	key.NameF7, key.NameF8, key.NameF9, key.NameF10, key.NameF11, key.NameF12,
}

// keysymName returns the key name of keysym s. Letters are reported in
// upper case.
func keysymName(s xproto.Keysym) (key.Name, bool) {
	if n, ok := keysymNames[s]; ok {
		return n, true
	}
	switch {
	case xkF1 <= s && s <= xkF12:
		return functionKeys[s-xkF1], true
	case xkKP0 <= s && s <= xkKP9:
		return key.Name(rune('0' + s - xkKP0)), true
	case xkLatin1First <= s && s <= xkLatin1Last:
		r := rune(s)
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return "", false
		}
		return key.Name(unicode.ToUpper(r)), true
	}
	return "", false
}
