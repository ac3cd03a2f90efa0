package hookmgr

import (
	"context"
	"testing"
)

func strp(s string) *string { return &s }

func TestMatchesNilPatternMatchesAll(t *testing.T) {
	if !Matches(nil, strp("Write")) {
		t.Error("nil pattern should match any tool")
	}
	if !Matches(nil, nil) {
		t.Error("nil pattern should match absent tool name too")
	}
}

func TestMatchesWildcard(t *testing.T) {
	if !Matches(strp("*"), strp("Anything")) {
		t.Error("* should match any named tool")
	}
	if Matches(strp("*"), nil) {
		t.Error("* should not match an absent tool name")
	}
}

func TestMatchesExact(t *testing.T) {
	if !Matches(strp("Write"), strp("Write")) {
		t.Error("exact match expected")
	}
	if Matches(strp("Write"), strp("Edit")) {
		t.Error("should not match a different tool")
	}
}

func TestMatchesPipeAlternation(t *testing.T) {
	p := strp("Write|Edit")
	if !Matches(p, strp("Write")) || !Matches(p, strp("Edit")) {
		t.Error("pipe alternation should match either member")
	}
	if Matches(p, strp("Bash")) {
		t.Error("pipe alternation should not match a non-member")
	}
}

func TestInvokeMergesOutputsLastNonNullWins(t *testing.T) {
	m := New(nil)
	m.Register(Matcher{
		Event:   EventPreToolUse,
		Pattern: strp("*"),
		Callbacks: []Callback{
			func(ctx context.Context, toolName string, input any) (Output, error) {
				return Output{SystemMessage: "first"}, nil
			},
			func(ctx context.Context, toolName string, input any) (Output, error) {
				return Output{SystemMessage: "second"}, nil
			},
		},
	})

	out := m.Invoke(context.Background(), EventPreToolUse, strp("Write"), nil)
	if out.SystemMessage != "second" {
		t.Errorf("SystemMessage = %q, want %q (last non-null wins)", out.SystemMessage, "second")
	}
}

func TestInvokeShortCircuitsOnBlock(t *testing.T) {
	m := New(nil)
	var ranSecond bool
	m.Register(Matcher{
		Event:   EventPreToolUse,
		Pattern: strp("*"),
		Callbacks: []Callback{
			func(ctx context.Context, toolName string, input any) (Output, error) {
				return Output{Decision: Block}, nil
			},
			func(ctx context.Context, toolName string, input any) (Output, error) {
				ranSecond = true
				return Output{}, nil
			},
		},
	})

	out := m.Invoke(context.Background(), EventPreToolUse, strp("Write"), nil)
	if out.Decision != Block {
		t.Errorf("Decision = %q, want block", out.Decision)
	}
	if ranSecond {
		t.Error("second callback should not have run after a block decision")
	}
}

func TestInvokeSkipsNonMatchingMatchers(t *testing.T) {
	m := New(nil)
	var ran bool
	m.Register(Matcher{
		Event:   EventPreToolUse,
		Pattern: strp("Bash"),
		Callbacks: []Callback{
			func(ctx context.Context, toolName string, input any) (Output, error) {
				ran = true
				return Output{}, nil
			},
		},
	})

	m.Invoke(context.Background(), EventPreToolUse, strp("Write"), nil)
	if ran {
		t.Error("non-matching matcher's callback should not run")
	}
}

func TestInvokeSkipsDifferentEvent(t *testing.T) {
	m := New(nil)
	var ran bool
	m.Register(Matcher{
		Event:   EventPostToolUse,
		Pattern: strp("*"),
		Callbacks: []Callback{
			func(ctx context.Context, toolName string, input any) (Output, error) {
				ran = true
				return Output{}, nil
			},
		},
	})

	m.Invoke(context.Background(), EventPreToolUse, strp("Write"), nil)
	if ran {
		t.Error("a matcher registered for a different event should not fire")
	}
}
