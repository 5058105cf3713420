package script

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"proteus/pkg/errors"
	"proteus/pkg/guard"
	"proteus/pkg/object"
)

type command struct {
	usage   string
	help    string
	minArgs int
	run     func(ctx context.Context, s *Session, head Token, args []Token) (string, error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"create":    {"create NAME [key=value ...]", "create a root object", 1, cmdCreate},
		"extend":    {"extend NAME PARENT [key=value ...]", "create a child of PARENT", 2, cmdExtend},
		"set":       {"set NAME key=value", "write through the mutation gate; prints whether it was committed", 4, cmdSet},
		"get":       {"get NAME key", "resolve key through the prototype chain", 2, cmdGet},
		"call":      {"call NAME key [arg ...]", "call a function attribute with NAME as receiver", 2, cmdCall},
		"has":       {"has NAME key", "report whether key resolves anywhere in the chain", 2, cmdHas},
		"own":       {"own NAME key", "report whether key is an own attribute", 2, cmdOwn},
		"entries":   {"entries NAME", "list own attributes", 1, cmdEntries},
		"print":     {"print NAME", "render NAME as text through __toString", 1, cmdPrint},
		"freeze":    {"freeze NAME", "block all writes to NAME", 1, cmdFreeze},
		"unfreeze":  {"unfreeze NAME", "lift freeze", 1, cmdUnfreeze},
		"seal":      {"seal NAME", "prevent new attributes and children", 1, cmdSeal},
		"observe":   {`observe NAME GUARD "cel expression"`, "install a named guard", 3, cmdObserve},
		"unobserve": {"unobserve NAME GUARD", "remove a named guard", 2, cmdUnobserve},
		"assign":    {"assign TARGET SOURCE ...", "copy the attributes visible through each source into TARGET", 1, cmdAssign},
		"proto":     {"proto NAME", "show the prototype of NAME", 1, cmdProto},
		"list":      {"list", "list bound objects", 0, cmdList},
		"save":      {"save", "write the session to the snapshot store", 0, cmdSave},
		"load":      {"load", "replace the session with the snapshot store contents", 0, cmdLoad},
		"help":      {"help", "show this help", 0, cmdHelp},
	}
}

// Commands returns the command names in sorted order.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Help returns the command reference.
func Help() string {
	names := Commands()
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		c := commands[name]
		fmt.Fprintf(&b, "  %-40s %s", c.usage, c.help)
	}
	return b.String()
}

func cmdCreate(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	name, err := s.newName(args[0])
	if err != nil {
		return "", err
	}
	pairs, err := s.pairs(args[1:])
	if err != nil {
		return "", err
	}
	s.bind(name, s.realm.CreateOrdered(pairs...))
	return "", nil
}

func cmdExtend(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	name, err := s.newName(args[0])
	if err != nil {
		return "", err
	}
	parent, err := s.lookup(args[1])
	if err != nil {
		return "", err
	}
	pairs, err := s.pairs(args[2:])
	if err != nil {
		return "", err
	}
	child := object.ExtendOrdered(parent, pairs...)
	if child == nil {
		return "", &errors.RuntimeError{
			Position: args[1].Pos(s.file),
			Msg:      fmt.Sprintf("cannot extend '%s': object is not extensible", args[1].Literal),
		}
	}
	s.bind(name, child)
	return "", nil
}

func cmdSet(_ context.Context, s *Session, head Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	if len(args) != 4 {
		return "", s.syntaxError(head, "usage: %s", commands["set"].usage)
	}
	pairs, err := s.pairs(args[1:])
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(obj.Set(pairs[0].Name, pairs[0].Value)), nil
}

func cmdGet(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	key, err := s.key(args[1])
	if err != nil {
		return "", err
	}
	return s.display(obj.Get(key)), nil
}

func cmdCall(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	key, err := s.key(args[1])
	if err != nil {
		return "", err
	}
	callArgs := make([]object.Value, 0, len(args)-2)
	for _, tok := range args[2:] {
		v, err := s.value(tok, false)
		if err != nil {
			return "", err
		}
		callArgs = append(callArgs, v)
	}
	res, err := obj.Call(key, callArgs...)
	if err != nil {
		var te *errors.TypeError
		if stderrors.As(err, &te) {
			return "", &errors.TypeError{Position: args[1].Pos(s.file), Msg: te.Msg}
		}
		return "", err
	}
	return s.display(res), nil
}

func cmdHas(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	key, err := s.key(args[1])
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(obj.Has(key)), nil
}

func cmdOwn(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	key, err := s.key(args[1])
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(object.HasOwnProperty(obj, key)), nil
}

func cmdEntries(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	entries := object.Entries(obj)
	lines := make([]string, 0, len(entries))
	for _, name := range object.Keys(obj) {
		lines = append(lines, fmt.Sprintf("%s = %s", name, s.display(entries[name])))
	}
	return strings.Join(lines, "\n"), nil
}

func cmdPrint(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	return obj.String(), nil
}

func cmdFreeze(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	object.Freeze(obj)
	return "", nil
}

func cmdUnfreeze(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	object.Unfreeze(obj)
	return "", nil
}

func cmdSeal(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	object.PreventExtensions(obj)
	return "", nil
}

func cmdObserve(_ context.Context, s *Session, head Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	if args[1].Type != WORD {
		return "", s.syntaxError(args[1], "expected a guard name")
	}
	if args[2].Type != STRING {
		return "", s.syntaxError(args[2], "expected a quoted guard expression")
	}
	if len(args) > 3 {
		return "", s.syntaxError(head, "usage: %s", commands["observe"].usage)
	}
	return "", s.observe(args[0].Literal, obj, args[1].Literal, args[2].Literal, args[2])
}

func (s *Session) observe(target string, obj *object.Object, name, expr string, at Token) error {
	if _, exists := s.guards[name]; exists {
		return &errors.RuntimeError{Position: at.Pos(s.file), Msg: fmt.Sprintf("guard '%s' is already installed", name)}
	}
	g, err := guard.Compile(expr, guard.WithLogger(s.log()))
	if err != nil {
		return &errors.RuntimeError{Position: at.Pos(s.file), Msg: "cannot compile guard", Cause: err}
	}
	object.Observe(obj, g)
	s.guards[name] = guardBinding{target: target, g: g}
	return nil
}

func cmdUnobserve(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	b, ok := s.guards[args[1].Literal]
	if !ok {
		return "", nil
	}
	object.Unobserve(obj, b.g)
	if b.target == args[0].Literal {
		delete(s.guards, args[1].Literal)
	}
	return "", nil
}

func cmdAssign(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	target, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	sources := make([]*object.Object, 0, len(args)-1)
	for _, tok := range args[1:] {
		src, err := s.lookup(tok)
		if err != nil {
			return "", err
		}
		sources = append(sources, src)
	}
	object.Assign(target, sources...)
	return "", nil
}

func cmdProto(_ context.Context, s *Session, _ Token, args []Token) (string, error) {
	obj, err := s.lookup(args[0])
	if err != nil {
		return "", err
	}
	return s.display(object.ObjectValue(object.GetPrototypeOf(obj))), nil
}

func cmdList(_ context.Context, s *Session, _ Token, _ []Token) (string, error) {
	names := s.Names()
	for i, name := range names {
		names[i] = "@" + name
	}
	return strings.Join(names, " "), nil
}

func cmdSave(ctx context.Context, s *Session, head Token, _ []Token) (string, error) {
	if s.store == nil {
		return "", &errors.RuntimeError{Position: head.Pos(s.file), Msg: "no snapshot store configured"}
	}
	n, err := s.Save(ctx)
	if err != nil {
		return "", withPos(err, head.Pos(s.file))
	}
	return fmt.Sprintf("saved %d objects", n), nil
}

func cmdLoad(ctx context.Context, s *Session, head Token, _ []Token) (string, error) {
	if s.store == nil {
		return "", &errors.RuntimeError{Position: head.Pos(s.file), Msg: "no snapshot store configured"}
	}
	n, err := s.Load(ctx)
	if err != nil {
		return "", withPos(err, head.Pos(s.file))
	}
	return fmt.Sprintf("loaded %d objects", n), nil
}

func cmdHelp(_ context.Context, _ *Session, _ Token, _ []Token) (string, error) {
	return Help(), nil
}

func withPos(err error, pos errors.Position) error {
	var re *errors.RuntimeError
	if stderrors.As(err, &re) && !re.Position.IsValid() {
		re.Position = pos
		return re
	}
	return err
}
