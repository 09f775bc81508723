package debrid

import "testing"

func TestAdvance_LegalTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		ok       bool
	}{
		{StateInit, StateSubmitting, true},
		{StateSubmitting, StateQueued, true},
		{StateQueued, StateDownloading, true},
		{StateDownloading, StateReady, true},
		{StateReady, StateResolved, true},
		{StateError, StateInit, true},
		{StateInit, StateReady, false},
		{StateResolved, StateReady, false},
	}
	for _, c := range cases {
		ok, _ := Advance(c.from, c.to)
		if ok != c.ok {
			t.Errorf("Advance(%s, %s) = %v, want %v", c.from, c.to, ok, c.ok)
		}
	}
}

func TestCanEmitURL_OnlyReadyAndResolved(t *testing.T) {
	for _, s := range []State{StateInit, StateSubmitting, StateQueued, StateDownloading, StateError} {
		if s.CanEmitURL() {
			t.Errorf("%s should not be able to emit a URL", s)
		}
	}
	if !StateReady.CanEmitURL() || !StateResolved.CanEmitURL() {
		t.Error("Ready and Resolved must be able to emit a URL")
	}
}

func TestErrorAssetPath(t *testing.T) {
	if got := ErrorAssetPath("token_expired"); got != "/static/exceptions/token_expired.mp4" {
		t.Errorf("got %s", got)
	}
	if got := ErrorAssetPath(""); got != "/static/exceptions/unknown.mp4" {
		t.Errorf("got %s", got)
	}
}
