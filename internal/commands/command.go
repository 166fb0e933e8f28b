package commands

import (
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	TypeAdd      Type = "add"
	TypeDone     Type = "done"
	TypePostpone Type = "postpone"
	TypeMust     Type = "must"
	TypeEnergy   Type = "energy"
	TypeFocus    Type = "focus"
	TypeBreak    Type = "break"
	TypeApply    Type = "apply"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// AddArgs carries the title plus inline attributes: "!3" priority, "@ctx"
// context, "~45" estimate minutes, "load:4", "due:2026-02-10" and "*" for
// must-do.
type AddArgs struct {
	Title       string
	Priority    int
	Context     string
	EstimateMin int
	Load        int
	Due         string
	Must        bool
}

// TargetArgs names a task by id or by its 1-based position in the queue.
type TargetArgs struct {
	Target string
}

type PostponeArgs struct {
	Target string
	Days   int
}

type MustArgs struct {
	Target string
	On     bool
}

type LevelArgs struct {
	Level int
}

type BreakArgs struct {
	Minutes int
}

type ApplyArgs struct {
	RecommendationID string
}

type Command struct {
	Type     Type
	Raw      string
	Add      *AddArgs
	Done     *TargetArgs
	Postpone *PostponeArgs
	Must     *MustArgs
	Level    *LevelArgs
	Break    *BreakArgs
	Apply    *ApplyArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone:
		if len(args) != 1 {
			return Command{}, invalid("done requires a task")
		}
		return Command{Type: TypeDone, Raw: input, Done: &TargetArgs{Target: args[0]}}, nil
	case TypePostpone:
		return parsePostpone(input, args)
	case TypeMust:
		return parseMust(input, args)
	case TypeEnergy, TypeFocus:
		return parseLevel(input, Type(head), args)
	case TypeBreak:
		return parseBreak(input, args)
	case TypeApply:
		if len(args) != 1 {
			return Command{}, invalid("apply requires a recommendation id")
		}
		return Command{Type: TypeApply, Raw: input, Apply: &ApplyArgs{RecommendationID: args[0]}}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	out := AddArgs{}
	words := make([]string, 0, len(args))
	for _, arg := range args {
		lower := strings.ToLower(arg)
		switch {
		case arg == "*":
			out.Must = true
		case len(arg) == 2 && arg[0] == '!' && arg[1] >= '1' && arg[1] <= '4':
			out.Priority = int(arg[1] - '0')
		case len(arg) > 1 && arg[0] == '@':
			out.Context = strings.ToLower(arg[1:])
		case len(arg) > 1 && arg[0] == '~':
			n, err := minutes(arg[1:])
			if err != nil {
				return Command{}, invalid("bad estimate %q", arg)
			}
			out.EstimateMin = n
		case strings.HasPrefix(lower, "load:"):
			n, err := strconv.Atoi(arg[len("load:"):])
			if err != nil || n < 1 || n > 5 {
				return Command{}, invalid("load must be 1-5, got %q", arg)
			}
			out.Load = n
		case strings.HasPrefix(lower, "due:"):
			out.Due = arg[len("due:"):]
		default:
			words = append(words, arg)
		}
	}
	out.Title = strings.TrimSpace(strings.Join(words, " "))
	if out.Title == "" {
		return Command{}, invalid("add requires a title")
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &out}, nil
}

func parsePostpone(raw string, args []string) (Command, error) {
	if len(args) == 0 || len(args) > 2 {
		return Command{}, invalid("postpone requires a task and optional days")
	}
	days := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(args[1]), "d"))
		if err != nil || n <= 0 {
			return Command{}, invalid("postpone days must be positive, got %q", args[1])
		}
		days = n
	}
	return Command{Type: TypePostpone, Raw: raw, Postpone: &PostponeArgs{Target: args[0], Days: days}}, nil
}

func parseMust(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("must requires a task and on|off")
	}
	var on bool
	switch strings.ToLower(args[1]) {
	case "on", "yes", "true":
		on = true
	case "off", "no", "false":
	default:
		return Command{}, invalid("must expects on|off, got %q", args[1])
	}
	return Command{Type: TypeMust, Raw: raw, Must: &MustArgs{Target: args[0], On: on}}, nil
}

func parseLevel(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("%s requires a level 1-5", typ)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > 5 {
		return Command{}, invalid("%s must be 1-5, got %q", typ, args[0])
	}
	return Command{Type: typ, Raw: raw, Level: &LevelArgs{Level: n}}, nil
}

func parseBreak(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("break requires minutes")
	}
	n, err := minutes(args[0])
	if err != nil || n <= 0 {
		return Command{}, invalid("break minutes must be positive, got %q", args[0])
	}
	return Command{Type: TypeBreak, Raw: raw, Break: &BreakArgs{Minutes: n}}, nil
}

// minutes accepts "45", "45m" and "1h30m".
func minutes(raw string) (int, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	var total int
	for raw != "" {
		i := strings.IndexAny(raw, "hm")
		if i <= 0 {
			return 0, fmt.Errorf("bad duration")
		}
		n, err := strconv.Atoi(raw[:i])
		if err != nil {
			return 0, err
		}
		if raw[i] == 'h' {
			n *= 60
		}
		total += n
		raw = raw[i+1:]
	}
	return total, nil
}
