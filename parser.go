package vtcore

import (
	"unicode/utf8"
)

type parserState uint8

const (
	stateGround parserState = iota
	stateEscape
	stateEscapeIntermediate
	stateCsiEntry
	stateCsiParam
	stateCsiIntermediate
	stateCsiIgnore
	stateOscString
	stateDcsEntry
	stateDcsParam
	stateDcsIntermediate
	stateDcsIgnore
	stateDcsPassthrough
	stateApcString
	stateSosPmIgnore
)

const (
	// caps keep a hostile or broken writer from growing parser state
	// without bound; overflow drops data but never kills the session
	maxParams        = 16
	maxParamLength   = 64
	maxIntermediates = 2
	maxStringLength  = 4 * 1024 * 1024
)

// performer receives the actions classified out of the byte stream. Terminal
// is the only implementation; the interface keeps the state machine testable
// in isolation.
type performer interface {
	print(run []rune)
	execute(b byte)
	escDispatch(intermediates []byte, final byte)
	csiDispatch(private byte, params []string, intermediates []byte, final byte)
	oscDispatch(data []byte)
	dcsHook(private byte, params []string, intermediates []byte, final byte)
	dcsPut(b byte)
	dcsUnhook(aborted bool)
	apcDispatch(data []byte)
}

// parser is a byte-at-a-time DEC ANSI state machine. It is resumable at any
// byte boundary: partial escape sequences and split UTF-8 runes carry over
// between calls to advance.
type parser struct {
	perform performer
	state   parserState

	params        []string
	curParam      []byte
	paramOverflow bool
	private       byte
	intermediates []byte

	str         []byte
	strOverflow bool
	escInString bool

	utf8Buf       []byte
	utf8Remaining int

	run []rune
}

func newParser(perform performer) *parser {
	return &parser{perform: perform}
}

// advance feeds a chunk of bytes through the state machine. Printable runs
// are flushed as a single action at run boundaries and at the end of the
// chunk.
func (p *parser) advance(data []byte) {
	for _, b := range data {
		p.step(b)
	}
	p.flushRun()
}

func (p *parser) step(b byte) {
	switch p.state {
	case stateGround:
		p.ground(b)
		return
	case stateOscString, stateApcString, stateDcsPassthrough, stateSosPmIgnore:
		p.stringState(b)
		return
	}

	// transient states share the C0 recovery rules: ESC restarts the
	// escape, CAN and SUB abandon the sequence, other C0 bytes execute
	// without disturbing the accumulated sequence
	switch {
	case b == 0x1b:
		p.enterEscape()
		return
	case b == 0x18 || b == 0x1a:
		p.state = stateGround
		return
	case b < 0x20:
		p.perform.execute(b)
		return
	case b == 0x7f:
		return
	}

	switch p.state {
	case stateEscape:
		p.escape(b)
	case stateEscapeIntermediate:
		p.escapeIntermediate(b)
	case stateCsiEntry:
		p.csiEntry(b)
	case stateCsiParam:
		p.csiParam(b)
	case stateCsiIntermediate:
		p.csiIntermediate(b)
	case stateCsiIgnore:
		if b >= 0x40 && b <= 0x7e {
			p.state = stateGround
		}
	case stateDcsEntry:
		p.dcsEntry(b)
	case stateDcsParam:
		p.dcsParam(b)
	case stateDcsIntermediate:
		p.dcsIntermediate(b)
	case stateDcsIgnore:
		if b >= 0x40 && b <= 0x7e {
			p.state = stateGround
		}
	}
}

func (p *parser) ground(b byte) {
	if p.utf8Remaining > 0 {
		if b&0xc0 == 0x80 {
			p.utf8Buf = append(p.utf8Buf, b)
			p.utf8Remaining--
			if p.utf8Remaining == 0 {
				r, _ := utf8.DecodeRune(p.utf8Buf)
				p.run = append(p.run, r)
				p.utf8Buf = p.utf8Buf[:0]
			}
			return
		}
		// truncated rune: drop it and reprocess the byte
		p.utf8Remaining = 0
		p.utf8Buf = p.utf8Buf[:0]
		p.run = append(p.run, utf8.RuneError)
	}

	switch {
	case b == 0x1b:
		p.flushRun()
		p.enterEscape()
	case b == 0x18 || b == 0x1a:
		// already in ground
	case b < 0x20:
		p.flushRun()
		p.perform.execute(b)
	case b == 0x7f:
		p.flushRun()
		p.perform.execute(b)
	case b < 0x80:
		p.run = append(p.run, rune(b))
	case b <= 0x9f:
		p.flushRun()
		p.c1(b)
	case b >= 0xc2 && b <= 0xf4:
		p.utf8Buf = append(p.utf8Buf[:0], b)
		switch {
		case b < 0xe0:
			p.utf8Remaining = 1
		case b < 0xf0:
			p.utf8Remaining = 2
		default:
			p.utf8Remaining = 3
		}
	default:
		p.run = append(p.run, utf8.RuneError)
	}
}

// c1 handles an 8-bit C1 control byte arriving directly; it behaves exactly
// like the 7-bit ESC pair it abbreviates.
func (p *parser) c1(b byte) {
	switch b {
	case 0x84: // IND
		p.perform.escDispatch(nil, 'D')
	case 0x85: // NEL
		p.perform.escDispatch(nil, 'E')
	case 0x88: // HTS
		p.perform.escDispatch(nil, 'H')
	case 0x8d: // RI
		p.perform.escDispatch(nil, 'M')
	case 0x90: // DCS
		p.enterDcs()
	case 0x98, 0x9e: // SOS, PM
		p.enterString(stateSosPmIgnore)
	case 0x9b: // CSI
		p.enterCsi()
	case 0x9d: // OSC
		p.enterString(stateOscString)
	case 0x9f: // APC
		p.enterString(stateApcString)
	}
}

func (p *parser) enterEscape() {
	p.state = stateEscape
	p.intermediates = nil
}

func (p *parser) enterCsi() {
	p.state = stateCsiEntry
	p.clearSequence()
}

func (p *parser) enterDcs() {
	p.state = stateDcsEntry
	p.clearSequence()
}

func (p *parser) enterString(s parserState) {
	p.state = s
	p.str = nil
	p.strOverflow = false
	p.escInString = false
}

func (p *parser) clearSequence() {
	p.params = nil
	p.curParam = p.curParam[:0]
	p.paramOverflow = false
	p.private = 0
	p.intermediates = nil
}

func (p *parser) escape(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2f:
		p.collect(b)
		p.state = stateEscapeIntermediate
	case b == '[':
		p.enterCsi()
	case b == ']':
		p.enterString(stateOscString)
	case b == 'P':
		p.enterDcs()
	case b == '_':
		p.enterString(stateApcString)
	case b == 'X', b == '^':
		p.enterString(stateSosPmIgnore)
	default:
		p.perform.escDispatch(p.intermediates, b)
		p.state = stateGround
	}
}

func (p *parser) escapeIntermediate(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2f:
		p.collect(b)
	default:
		p.perform.escDispatch(p.intermediates, b)
		p.state = stateGround
	}
}

func (p *parser) csiEntry(b byte) {
	switch {
	case b >= '0' && b <= '9', b == ':':
		p.param(b)
		p.state = stateCsiParam
	case b == ';':
		p.pushParam()
		p.state = stateCsiParam
	case b >= 0x3c && b <= 0x3f:
		p.private = b
		p.state = stateCsiParam
	case b >= 0x20 && b <= 0x2f:
		p.collect(b)
		p.state = stateCsiIntermediate
	case b >= 0x40 && b <= 0x7e:
		p.dispatchCsi(b)
	default:
		p.state = stateCsiIgnore
	}
}

func (p *parser) csiParam(b byte) {
	switch {
	case b >= '0' && b <= '9', b == ':':
		p.param(b)
	case b == ';':
		p.pushParam()
	case b >= 0x3c && b <= 0x3f:
		// private markers are only valid before any parameter
		p.state = stateCsiIgnore
	case b >= 0x20 && b <= 0x2f:
		p.collect(b)
		p.state = stateCsiIntermediate
	case b >= 0x40 && b <= 0x7e:
		p.dispatchCsi(b)
	default:
		p.state = stateCsiIgnore
	}
}

func (p *parser) csiIntermediate(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2f:
		p.collect(b)
	case b >= 0x40 && b <= 0x7e:
		p.dispatchCsi(b)
	default:
		p.state = stateCsiIgnore
	}
}

func (p *parser) dcsEntry(b byte) {
	switch {
	case b >= '0' && b <= '9', b == ':':
		p.param(b)
		p.state = stateDcsParam
	case b == ';':
		p.pushParam()
		p.state = stateDcsParam
	case b >= 0x3c && b <= 0x3f:
		p.private = b
		p.state = stateDcsParam
	case b >= 0x20 && b <= 0x2f:
		p.collect(b)
		p.state = stateDcsIntermediate
	case b >= 0x40 && b <= 0x7e:
		p.hookDcs(b)
	default:
		p.state = stateDcsIgnore
	}
}

func (p *parser) dcsParam(b byte) {
	switch {
	case b >= '0' && b <= '9', b == ':':
		p.param(b)
	case b == ';':
		p.pushParam()
	case b >= 0x20 && b <= 0x2f:
		p.collect(b)
		p.state = stateDcsIntermediate
	case b >= 0x40 && b <= 0x7e:
		p.hookDcs(b)
	default:
		p.state = stateDcsIgnore
	}
}

func (p *parser) dcsIntermediate(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2f:
		p.collect(b)
	case b >= 0x40 && b <= 0x7e:
		p.hookDcs(b)
	default:
		p.state = stateDcsIgnore
	}
}

func (p *parser) stringState(b byte) {
	if p.escInString {
		p.escInString = false
		if b == '\\' {
			p.finishString(false)
			p.state = stateGround
			return
		}
		// a lone ESC aborts the string and starts a fresh sequence
		p.finishString(true)
		p.enterEscape()
		p.step(b)
		return
	}

	switch {
	case b == 0x1b:
		p.escInString = true
	case b == 0x18 || b == 0x1a:
		p.finishString(true)
		p.state = stateGround
	case b == 0x07 && p.state == stateOscString:
		p.finishString(false)
		p.state = stateGround
	default:
		switch p.state {
		case stateOscString, stateApcString:
			p.collectString(b)
		case stateDcsPassthrough:
			p.perform.dcsPut(b)
		case stateSosPmIgnore:
			// swallowed
		}
	}
}

func (p *parser) finishString(aborted bool) {
	switch p.state {
	case stateOscString:
		if !aborted {
			p.perform.oscDispatch(p.str)
		}
	case stateApcString:
		if !aborted {
			p.perform.apcDispatch(p.str)
		}
	case stateDcsPassthrough:
		p.perform.dcsUnhook(aborted)
	}
	p.str = nil
	p.strOverflow = false
	p.escInString = false
}

func (p *parser) collect(b byte) {
	if len(p.intermediates) < maxIntermediates {
		p.intermediates = append(p.intermediates, b)
	}
}

func (p *parser) param(b byte) {
	if p.paramOverflow {
		return
	}
	if len(p.curParam) < maxParamLength {
		p.curParam = append(p.curParam, b)
	}
}

func (p *parser) pushParam() {
	if len(p.params) >= maxParams {
		if !p.paramOverflow {
			p.paramOverflow = true
			tlog.Printf("parameter cap reached, discarding extra parameters")
		}
		p.curParam = p.curParam[:0]
		return
	}
	p.params = append(p.params, string(p.curParam))
	p.curParam = p.curParam[:0]
}

func (p *parser) takeParams() []string {
	if len(p.curParam) > 0 || len(p.params) > 0 {
		p.pushParam()
	}
	return p.params
}

func (p *parser) dispatchCsi(final byte) {
	p.perform.csiDispatch(p.private, p.takeParams(), p.intermediates, final)
	p.state = stateGround
}

func (p *parser) hookDcs(final byte) {
	p.perform.dcsHook(p.private, p.takeParams(), p.intermediates, final)
	p.state = stateDcsPassthrough
	p.escInString = false
}

func (p *parser) collectString(b byte) {
	if len(p.str) < maxStringLength {
		p.str = append(p.str, b)
		return
	}
	if !p.strOverflow {
		p.strOverflow = true
		tlog.Printf("string payload exceeded %d bytes, truncating", maxStringLength)
	}
}

func (p *parser) flushRun() {
	if len(p.run) == 0 {
		return
	}
	p.perform.print(p.run)
	p.run = p.run[:0]
}
