package vtcore

type modes struct {
	ShowCursor            bool
	ApplicationCursorKeys bool // DECCKM
	BlinkingCursor        bool
	InsertMode            bool // IRM - insert or overwrite at cursor
	OriginMode            bool // DECOM - cursor addressing relative to margins
	LineFeedMode          bool
	ScreenMode            bool // DECSCNM (black on white background)
	AutoWrap              bool // DECAWM
	BracketedPaste        bool
	FocusReporting        bool
	SyncOutput            bool // mode 2026 synchronized output framing
}

type (
	mouseMode    uint
	mouseExtMode uint
)

const (
	mouseModeNone mouseMode = iota
	mouseModeX10
	mouseModeVT200
	mouseModeVT200Highlight
	mouseModeButtonEvent
	mouseModeAnyEvent
)

const (
	mouseExtNone mouseExtMode = iota
	mouseExtUTF
	mouseExtSGR
	mouseExtURXVT
)
