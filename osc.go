package vtcore

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

func (t *Terminal) oscDispatch(data []byte) {
	str := string(data)
	selector, rest, _ := strings.Cut(str, ";")

	switch selector {
	case "0", "2":
		t.setTitle(rest)
	case "1":
		// icon name, not retained
	case "4":
		t.oscSetPalette(rest)
	case "7":
		t.cwd = strings.TrimPrefix(rest, "file://")
	case "8":
		t.oscHyperlink(rest)
	case "10":
		t.oscDynamicColor(10, rest)
	case "11":
		t.oscDynamicColor(11, rest)
	case "12":
		t.oscDynamicColor(12, rest)
	case "52":
		t.oscClipboard(rest)
	case "104":
		if rest == "" {
			t.palette.reset()
			break
		}
		var indexes []int
		for _, s := range strings.Split(rest, ";") {
			if i, err := strconv.Atoi(s); err == nil {
				indexes = append(indexes, i)
			}
		}
		t.palette.reset(indexes...)
	case "110":
		t.palette.hasFg = false
	case "111":
		t.palette.hasBg = false
	case "112":
		t.palette.hasCursor = false
	case "133":
		t.oscShellIntegration(rest)
	default:
		tlog.Printf("unhandled OSC %q", selector)
	}
}

// oscSetPalette handles OSC 4: alternating index;spec pairs. A spec of "?"
// answers with the current color instead of setting one.
func (t *Terminal) oscSetPalette(rest string) {
	parts := strings.Split(rest, ";")
	for i := 0; i+1 < len(parts); i += 2 {
		index, err := strconv.Atoi(parts[i])
		if err != nil || index < 0 || index > 255 {
			continue
		}
		spec := parts[i+1]
		if spec == "?" {
			resp := fmt.Sprintf("\x1b]4;%d;%s\x1b\\", index, formatColorResponse(t.palette.indexed(index)))
			t.writeToPty([]byte(resp))
			continue
		}
		if c, ok := parseColorSpec(spec); ok {
			t.palette.setIndexed(index, c)
		}
	}
}

// oscDynamicColor handles OSC 10/11/12 set and query for the default
// foreground, background and cursor colors.
func (t *Terminal) oscDynamicColor(code int, rest string) {
	if rest == "?" {
		var resp string
		switch code {
		case 10:
			resp = fmt.Sprintf("\x1b]10;%s\x1b\\", formatColorResponse(t.palette.foreground()))
		case 11:
			resp = fmt.Sprintf("\x1b]11;%s\x1b\\", formatColorResponse(t.palette.background()))
		case 12:
			resp = fmt.Sprintf("\x1b]12;%s\x1b\\", formatColorResponse(t.palette.cursorColor()))
		}
		t.writeToPty([]byte(resp))
		return
	}

	c, ok := parseColorSpec(rest)
	if !ok {
		return
	}
	switch code {
	case 10:
		t.palette.fg = c
		t.palette.hasFg = true
	case 11:
		t.palette.bg = c
		t.palette.hasBg = true
	case 12:
		t.palette.cursor = c
		t.palette.hasCursor = true
	}
}

// oscHyperlink handles OSC 8. The URI itself may contain semicolons, so only
// the first separator after the parameter list is structural.
func (t *Terminal) oscHyperlink(rest string) {
	params, uri, ok := strings.Cut(rest, ";")
	if !ok {
		return
	}

	attr := t.activeBuffer().getCursorAttr()
	if uri == "" {
		// end of the hyperlink range
		*attr = attr.Url("").UrlId("")
		return
	}

	var id string
	for _, kv := range strings.Split(params, ":") {
		if v, ok := strings.CutPrefix(kv, "id="); ok {
			id = v
		}
	}
	*attr = attr.Url(uri).UrlId(id)
}

// oscClipboard handles OSC 52 clipboard writes and queries through the
// clipboard collaborator.
func (t *Terminal) oscClipboard(rest string) {
	target, payload, ok := strings.Cut(rest, ";")
	if !ok {
		return
	}
	if target == "" {
		target = "c"
	}

	if payload == "?" {
		var content string
		if t.clipboard != nil {
			content, _ = t.clipboard.Read()
		}
		enc := base64.StdEncoding.EncodeToString([]byte(content))
		t.writeToPty([]byte(fmt.Sprintf("\x1b]52;%s;%s\x1b\\", target, enc)))
		return
	}

	text, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		tlog.Printf("OSC 52 payload is not valid base64: %v", err)
		return
	}
	if t.clipboard != nil {
		_ = t.clipboard.Write(string(text))
	}
	t.queueEvent(&EventClipboard{
		EventTerminal: newEventTerminal(t),
		text:          string(text),
	})
}

// oscShellIntegration records OSC 133 prompt marks on the current line.
func (t *Terminal) oscShellIntegration(rest string) {
	if rest == "" {
		return
	}
	switch rest[0] {
	case markPromptStart, markPromptEnd, markOutputStart, markOutputEnd:
		t.activeBuffer().getCurrentLine().mark = rest[0]
	}
}

func (t *Terminal) setTitle(title string) {
	t.title = title
	t.queueEvent(&EventTitle{
		EventTerminal: newEventTerminal(t),
		title:         title,
	})
}
