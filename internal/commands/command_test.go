package commands

import (
	"errors"
	"testing"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/add pay rent", TypeAdd},
		{"done 2", TypeDone},
		{"postpone abc 3", TypePostpone},
		{"must 1 on", TypeMust},
		{"energy 4", TypeEnergy},
		{"/focus 2", TypeFocus},
		{"break 15m", TypeBreak},
		{"apply rec-0123456789abcdef", TypeApply},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseAddAttributes(t *testing.T) {
	cmd, err := Parse("add write quarterly report !3 @writing ~1h30m load:4 due:2026-02-10 *")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	a := cmd.Add
	if a.Title != "write quarterly report" {
		t.Fatalf("unexpected title %q", a.Title)
	}
	if a.Priority != 3 || a.Context != "writing" || a.EstimateMin != 90 || a.Load != 4 {
		t.Fatalf("unexpected attributes: %+v", a)
	}
	if a.Due != "2026-02-10" || !a.Must {
		t.Fatalf("unexpected due/must: %+v", a)
	}

	cmd, err = Parse("add !9 stays in title")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Add.Title != "!9 stays in title" || cmd.Add.Priority != 0 {
		t.Fatalf("unexpected add args: %+v", cmd.Add)
	}
}

func TestParseArguments(t *testing.T) {
	cmd, err := Parse("postpone 3")
	if err != nil || cmd.Postpone.Days != 1 || cmd.Postpone.Target != "3" {
		t.Fatalf("postpone default days: %+v %v", cmd.Postpone, err)
	}
	cmd, err = Parse("postpone 3 2d")
	if err != nil || cmd.Postpone.Days != 2 {
		t.Fatalf("postpone days suffix: %+v %v", cmd.Postpone, err)
	}
	cmd, err = Parse("must x OFF")
	if err != nil || cmd.Must.On {
		t.Fatalf("must off: %+v %v", cmd.Must, err)
	}
	cmd, err = Parse("break 45")
	if err != nil || cmd.Break.Minutes != 45 {
		t.Fatalf("break minutes: %+v %v", cmd.Break, err)
	}
}

func TestParseRejectsBadArguments(t *testing.T) {
	for _, in := range []string{
		"add",
		"add !2 @ctx",
		"add thing ~soon",
		"add thing load:9",
		"done",
		"postpone x 0",
		"must x maybe",
		"energy 6",
		"focus high",
		"break 0",
		"break",
		"apply",
	} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("%q: expected invalid argument error, got %v", in, err)
		}
	}
}

func TestParseEmptyAndUnknown(t *testing.T) {
	var ce *CommandError
	if _, err := Parse("  / "); !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
		t.Fatalf("expected empty input error, got %v", err)
	}
	if _, err := Parse("/unknown do x"); !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/add write docs")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Add: func(a AddArgs) (Result, error) {
			called = true
			if a.Title != "write docs" {
				t.Fatalf("unexpected title: %q", a.Title)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}

	cmd, _ = Parse("focus 5")
	var got int
	if _, err := Execute(cmd, Handlers{Focus: func(l LevelArgs) (Result, error) { got = l.Level; return Result{}, nil }}); err != nil {
		t.Fatalf("execute focus: %v", err)
	}
	if got != 5 {
		t.Fatalf("focus handler got %d", got)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("energy 2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{Focus: func(LevelArgs) (Result, error) { return Result{}, nil }})
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
