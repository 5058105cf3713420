package script

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"proteus/pkg/errors"
	"proteus/pkg/guard"
	"proteus/pkg/object"
	"proteus/pkg/snapshot"
)

// Store persists a session. *snapshot.Store implements it.
type Store interface {
	Save(ctx context.Context, records []snapshot.Record) error
	Load(ctx context.Context) ([]snapshot.Record, error)
}

type guardBinding struct {
	target string
	g      *guard.Guard
}

// Session maintains named objects and guards between evaluations.
type Session struct {
	realm   *object.Realm
	logger  *slog.Logger
	store   Store
	file    string // display name of the input being run
	objects map[string]*object.Object
	names   map[*object.Object]string
	seq     map[string]int
	nextSeq int
	guards  map[string]guardBinding
}

// Option configures a Session.
type Option func(*Session)

// WithRealm runs the session in realm instead of a fresh one.
func WithRealm(r *object.Realm) Option {
	return func(s *Session) { s.realm = r }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithStore enables the save and load commands.
func WithStore(st Store) Option {
	return func(s *Session) { s.store = st }
}

// NewSession creates an empty session.
func NewSession(opts ...Option) *Session {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	if s.realm == nil {
		s.realm = object.NewRealm(object.WithLogger(s.logger))
	}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.objects = make(map[string]*object.Object)
	s.names = make(map[*object.Object]string)
	s.seq = make(map[string]int)
	s.nextSeq = 0
	s.guards = make(map[string]guardBinding)
}

func (s *Session) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// Realm returns the realm objects are created in.
func (s *Session) Realm() *object.Realm { return s.realm }

// Object returns the object bound to name.
func (s *Session) Object(name string) (*object.Object, bool) {
	o, ok := s.objects[name]
	return o, ok
}

// Names returns bound object names in creation order.
func (s *Session) Names() []string {
	out := make([]string, 0, len(s.seq))
	for name := range s.seq {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i]] < s.seq[out[j]] })
	return out
}

// bind names obj, replacing any previous binding of name.
func (s *Session) bind(name string, obj *object.Object) {
	if old, ok := s.objects[name]; ok && s.names[old] == name {
		delete(s.names, old)
	}
	s.objects[name] = obj
	s.names[obj] = name
	s.seq[name] = s.nextSeq
	s.nextSeq++
}

// Run executes src line by line and returns the collected output. It stops
// at the first failing line. file names the input in error positions.
func (s *Session) Run(ctx context.Context, file, src string) (string, errors.ProteusError) {
	s.file = file
	var out []string
	base := 0
	for i, line := range strings.Split(src, "\n") {
		if err := ctx.Err(); err != nil {
			return strings.Join(out, "\n"), &errors.RuntimeError{Msg: "execution cancelled", Cause: err}
		}
		res, err := s.execLine(ctx, line, i+1, base)
		base += len(line) + 1
		if err != nil {
			return strings.Join(out, "\n"), asProteusError(err)
		}
		if res != "" {
			out = append(out, res)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (s *Session) execLine(ctx context.Context, line string, lineNo, base int) (string, error) {
	toks, err := NewLexer(line, lineNo, base, s.file).Tokens()
	if err != nil {
		return "", err
	}
	if len(toks) == 0 {
		return "", nil
	}
	head := toks[0]
	if head.Type != WORD {
		return "", s.syntaxError(head, "expected a command, got %s", head.Type)
	}
	cmd, ok := commands[head.Literal]
	if !ok {
		return "", s.syntaxError(head, "unknown command '%s' (try help)", head.Literal)
	}
	args := toks[1:]
	if len(args) < cmd.minArgs {
		return "", s.syntaxError(head, "usage: %s", cmd.usage)
	}
	s.log().Debug("exec", "command", head.Literal, "line", lineNo)
	return cmd.run(ctx, s, head, args)
}

func asProteusError(err error) errors.ProteusError {
	if pe, ok := err.(errors.ProteusError); ok {
		return pe
	}
	return &errors.RuntimeError{Msg: "command failed", Cause: err}
}
