package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add      func(AddArgs) (Result, error)
	Done     func(TargetArgs) (Result, error)
	Postpone func(PostponeArgs) (Result, error)
	Must     func(MustArgs) (Result, error)
	Energy   func(LevelArgs) (Result, error)
	Focus    func(LevelArgs) (Result, error)
	Break    func(BreakArgs) (Result, error)
	Apply    func(ApplyArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		return call(handlers.Add, cmd.Add, cmd.Type)
	case TypeDone:
		return call(handlers.Done, cmd.Done, cmd.Type)
	case TypePostpone:
		return call(handlers.Postpone, cmd.Postpone, cmd.Type)
	case TypeMust:
		return call(handlers.Must, cmd.Must, cmd.Type)
	case TypeEnergy:
		return call(handlers.Energy, cmd.Level, cmd.Type)
	case TypeFocus:
		return call(handlers.Focus, cmd.Level, cmd.Type)
	case TypeBreak:
		return call(handlers.Break, cmd.Break, cmd.Type)
	case TypeApply:
		return call(handlers.Apply, cmd.Apply, cmd.Type)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func call[A any](h func(A) (Result, error), args *A, typ Type) (Result, error) {
	if h == nil {
		return Result{}, &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", typ)}
	}
	if args == nil {
		return Result{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s is missing arguments", typ)}
	}
	return h(*args)
}
