package agent

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"fortyfives/server/engine"
)

// Kinds accepted by Build.
const (
	KindRandom  = "random"
	KindConsole = "console"
	KindLLM     = "llm"
)

// Factory turns seat specs ("random", "console", "llm:<model>") into agents.
type Factory struct {
	Seed int64 // per-seat bots get Seed+seat index
	In   io.Reader
	Out  io.Writer
	Log  *zap.Logger
}

// Build returns the agent for spec at seat index i, and a display label for it.
func (f Factory) Build(spec string, i int, name string) (engine.Agent, string, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(spec), ":")
	kind = strings.ToLower(strings.TrimSpace(kind))
	arg = strings.TrimSpace(arg)
	switch kind {
	case KindRandom, "":
		return NewRandom(f.Seed + int64(i)), KindRandom, nil
	case KindConsole:
		if f.In == nil || f.Out == nil {
			return nil, "", fmt.Errorf("seat %d: console agent needs a terminal", i)
		}
		return NewConsole(name, f.In, f.Out), KindConsole, nil
	case KindLLM:
		if arg == "" {
			return nil, "", fmt.Errorf("seat %d: llm agent needs a model, e.g. llm:gpt-4o-mini", i)
		}
		return NewLLM(arg, NewRandom(f.Seed+int64(i)), f.Log), KindLLM + ":" + arg, nil
	}
	return nil, "", fmt.Errorf("seat %d: unknown agent kind %q", i, kind)
}

// Seats builds one engine.Seat per spec. Missing names default to "seat<N>".
func (f Factory) Seats(specs, names []string) ([]engine.Seat, []string, error) {
	seats := make([]engine.Seat, len(specs))
	labels := make([]string, len(specs))
	for i, spec := range specs {
		name := fmt.Sprintf("seat%d", i+1)
		if i < len(names) && strings.TrimSpace(names[i]) != "" {
			name = strings.TrimSpace(names[i])
		}
		a, label, err := f.Build(spec, i, name)
		if err != nil {
			return nil, nil, err
		}
		seats[i] = engine.Seat{ID: engine.ParticipantID(name), Agent: a}
		labels[i] = label
	}
	return seats, labels, nil
}
