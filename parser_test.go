package vtcore

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

// recorder captures performer actions as readable strings.
type recorder struct {
	actions []string
}

func (r *recorder) log(format string, args ...interface{}) {
	r.actions = append(r.actions, fmt.Sprintf(format, args...))
}

func (r *recorder) print(run []rune)  { r.log("print %q", string(run)) }
func (r *recorder) execute(b byte)    { r.log("execute %#x", b) }
func (r *recorder) dcsPut(b byte)     { r.log("put %c", b) }
func (r *recorder) dcsUnhook(ab bool) { r.log("unhook aborted=%v", ab) }

func (r *recorder) escDispatch(intermediates []byte, final byte) {
	r.log("esc %q %c", intermediates, final)
}

func (r *recorder) csiDispatch(private byte, params []string, intermediates []byte, final byte) {
	r.log("csi private=%q params=%v intermediates=%q final=%c", string(private), params, intermediates, final)
}

func (r *recorder) oscDispatch(data []byte) { r.log("osc %q", data) }
func (r *recorder) apcDispatch(data []byte) { r.log("apc %q", data) }

func (r *recorder) dcsHook(private byte, params []string, intermediates []byte, final byte) {
	r.log("hook private=%q params=%v intermediates=%q final=%c", string(private), params, intermediates, final)
}

func parse(inputs ...string) []string {
	rec := &recorder{}
	p := newParser(rec)
	for _, in := range inputs {
		p.advance([]byte(in))
	}
	return rec.actions
}

func TestParserPlainText(t *testing.T) {
	got := parse("hello")
	assert.Equal(t, []string{`print "hello"`}, got)
}

func TestParserTextRunsSplitByControls(t *testing.T) {
	got := parse("ab\ncd")
	want := []string{`print "ab"`, "execute 0xa", `print "cd"`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestParserCSIWithParams(t *testing.T) {
	got := parse("\x1b[1;31m")
	assert.Equal(t, []string{`csi private="\x00" params=[1 31] intermediates="" final=m`}, got)
}

func TestParserCSIPrivateMarker(t *testing.T) {
	got := parse("\x1b[?25h")
	assert.Equal(t, []string{`csi private="?" params=[25] intermediates="" final=h`}, got)
}

func TestParserCSIColonSubParams(t *testing.T) {
	got := parse("\x1b[4:3m")
	assert.Equal(t, []string{`csi private="\x00" params=[4:3] intermediates="" final=m`}, got)
}

func TestParserCSIIntermediates(t *testing.T) {
	got := parse("\x1b[!p")
	assert.Equal(t, []string{`csi private="\x00" params=[] intermediates="!" final=p`}, got)
}

func TestParserC0InsideCSI(t *testing.T) {
	// a C0 control executes without disturbing the sequence
	got := parse("\x1b[1\n5A")
	want := []string{"execute 0xa", `csi private="\x00" params=[15] intermediates="" final=A`}
	assert.Equal(t, want, got)
}

func TestParserCANAbortsSequence(t *testing.T) {
	got := parse("\x1b[12\x18ab")
	assert.Equal(t, []string{`print "ab"`}, got)
}

func TestParserESCRestartsSequence(t *testing.T) {
	got := parse("\x1b[12\x1b[3C")
	assert.Equal(t, []string{`csi private="\x00" params=[3] intermediates="" final=C`}, got)
}

func TestParserOSCBothTerminators(t *testing.T) {
	got := parse("\x1b]0;one\x07\x1b]0;two\x1b\\")
	assert.Equal(t, []string{`osc "0;one"`, `osc "0;two"`}, got)
}

func TestParserOSCAbortedByCAN(t *testing.T) {
	got := parse("\x1b]0;junk\x18done")
	assert.Equal(t, []string{`print "done"`}, got)
}

func TestParserOSCEscThenNonBackslash(t *testing.T) {
	// ESC not followed by backslash aborts the string and starts a new
	// escape sequence
	got := parse("\x1b]0;junk\x1b[1m")
	assert.Equal(t, []string{`csi private="\x00" params=[1] intermediates="" final=m`}, got)
}

func TestParserSplitAcrossReads(t *testing.T) {
	got := parse("\x1b[3", "8;5;19", "6mX")
	want := []string{
		`csi private="\x00" params=[38 5 196] intermediates="" final=m`,
		`print "X"`,
	}
	assert.Equal(t, want, got)
}

func TestParserSplitUTF8(t *testing.T) {
	text := "héllo"
	raw := []byte(text)
	got := parse(string(raw[:2]), string(raw[2:]))
	assert.Equal(t, []string{`print "h"`, `print "éllo"`}, got)
}

func TestParserTruncatedUTF8(t *testing.T) {
	// a lead byte followed by a non-continuation byte yields U+FFFD and
	// the interrupting byte is reprocessed
	got := parse("\xc3A")
	assert.Equal(t, []string{`print "�A"`}, got)
}

func TestParserC1Equivalence(t *testing.T) {
	sevenBit := parse("\x1b[5Atext\x1b]0;t\x07")
	eightBit := parse("\x9b5Atext\x9d0;t\x07")
	if diff := cmp.Diff(sevenBit, eightBit); diff != "" {
		t.Errorf("8-bit C1 controls must match ESC pairs (-7bit +8bit):\n%s", diff)
	}
}

func TestParserDCSLifecycle(t *testing.T) {
	got := parse("\x1bP1;2qAB\x1b\\")
	want := []string{
		`hook private="\x00" params=[1 2] intermediates="" final=q`,
		"put A",
		"put B",
		"unhook aborted=false",
	}
	assert.Equal(t, want, got)
}

func TestParserDCSAborted(t *testing.T) {
	got := parse("\x1bPqAB\x18")
	want := []string{
		`hook private="\x00" params=[] intermediates="" final=q`,
		"put A",
		"put B",
		"unhook aborted=true",
	}
	assert.Equal(t, want, got)
}

func TestParserAPC(t *testing.T) {
	got := parse("\x1b_Gi=1,a=q;\x1b\\")
	assert.Equal(t, []string{`apc "Gi=1,a=q;"`}, got)
}

func TestParserSOSPMIgnored(t *testing.T) {
	got := parse("\x1bXswallowed\x1b\\ok")
	assert.Equal(t, []string{`print "ok"`}, got)
}

func TestParserParamCap(t *testing.T) {
	seq := "\x1b["
	for i := 0; i < 30; i++ {
		seq += "1;"
	}
	seq += "m"
	rec := &recorder{}
	p := newParser(rec)
	p.advance([]byte(seq))

	assert.Len(t, rec.actions, 1)
	assert.Contains(t, rec.actions[0], "final=m")
	// the session keeps going afterwards
	p.advance([]byte("x"))
	assert.Equal(t, `print "x"`, rec.actions[len(rec.actions)-1])
}

func TestParserAdversarialBytesDoNotPanic(t *testing.T) {
	rec := &recorder{}
	p := newParser(rec)
	data := make([]byte, 0, 4096)
	state := uint32(1)
	for i := 0; i < 4096; i++ {
		// deterministic xorshift noise
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		data = append(data, byte(state))
	}
	p.advance(data)
	p.advance([]byte("\x18still alive"))
	assert.Contains(t, rec.actions[len(rec.actions)-1], "still alive")
}
