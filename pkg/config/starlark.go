package config

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/starlark"

	"github.com/brewplan/brewplan/pkg/bundle"
)

// Evaluator executes the optional Starlark generate hook with a hard
// timeout. The hook sees the declared package lists and may contribute
// computed entries, e.g. one cask per font family or per developer machine
// role.
type Evaluator struct {
	timeout time.Duration
}

// NewEvaluator creates a Starlark evaluator.
func NewEvaluator(timeout time.Duration) *Evaluator {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Evaluator{timeout: timeout}
}

// Evaluate runs script with the given input bound as predeclared globals and
// returns the script's exported globals.
func (e *Evaluator) Evaluate(ctx context.Context, script string, input map[string]interface{}) (map[string]interface{}, error) {
	evalCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		globals map[string]interface{}
		err     error
	}
	ch := make(chan outcome, 1)

	go func() {
		globals, err := e.evaluateSync(script, input)
		ch <- outcome{globals: globals, err: err}
	}()

	select {
	case <-evalCtx.Done():
		return nil, fmt.Errorf("generate hook timed out after %v", e.timeout)
	case out := <-ch:
		return out.globals, out.err
	}
}

func (e *Evaluator) evaluateSync(script string, input map[string]interface{}) (map[string]interface{}, error) {
	thread := &starlark.Thread{
		Name: "brewplan",
		Print: func(_ *starlark.Thread, _ string) {
			// The hook has no output channel besides its globals.
		},
	}

	predeclared := starlark.StringDict{}
	for key, val := range input {
		sv, err := toStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert input %s: %w", key, err)
		}
		predeclared[key] = sv
	}

	globals, err := starlark.ExecFile(thread, "generate.star", script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("generate hook failed: %w", err)
	}

	output := make(map[string]interface{})
	for name, val := range globals {
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		gv, err := fromStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert output %s: %w", name, err)
		}
		output[name] = gv
	}
	return output, nil
}

// applyGenerated runs the generate hook and appends its contributed entries
// to the bundle. The hook exports any of extra_taps, extra_brews,
// extra_casks, extra_whalebrews as lists of name strings.
func (l *Loader) applyGenerated(ctx context.Context, b *bundle.Bundle, script string) error {
	input := map[string]interface{}{
		"taps":       entityNames(len(b.Taps), func(i int) string { return b.Taps[i].Name }),
		"brews":      entityNames(len(b.Brews), func(i int) string { return b.Brews[i].Name }),
		"casks":      entityNames(len(b.Casks), func(i int) string { return b.Casks[i].Name }),
		"whalebrews": entityNames(len(b.Whalebrews), func(i int) string { return b.Whalebrews[i] }),
	}

	output, err := l.generator.Evaluate(ctx, script, input)
	if err != nil {
		return bundle.NewAuthoringError("generate hook failed", err).WithField("generate")
	}

	taps, err := stringOutput(output, "extra_taps")
	if err != nil {
		return err
	}
	for _, name := range taps {
		b.Taps = append(b.Taps, bundle.Tap{Name: name})
	}

	brews, err := stringOutput(output, "extra_brews")
	if err != nil {
		return err
	}
	for _, name := range brews {
		b.Brews = append(b.Brews, bundle.Formula{Name: name})
	}

	casks, err := stringOutput(output, "extra_casks")
	if err != nil {
		return err
	}
	for _, name := range casks {
		b.Casks = append(b.Casks, bundle.Cask{Name: name})
	}

	whalebrews, err := stringOutput(output, "extra_whalebrews")
	if err != nil {
		return err
	}
	b.Whalebrews = append(b.Whalebrews, whalebrews...)

	return nil
}

func entityNames(n int, get func(int) string) []interface{} {
	names := make([]interface{}, n)
	for i := range names {
		names[i] = get(i)
	}
	return names
}

func stringOutput(output map[string]interface{}, key string) ([]string, error) {
	raw, ok := output[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, bundle.NewAuthoringError("generate hook output must be a list of strings", nil).
			WithField("generate." + key)
	}
	names := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, bundle.NewAuthoringError("generate hook output must be a list of strings", nil).
				WithField("generate." + key)
		}
		names = append(names, s)
	}
	return names, nil
}

func toStarlarkValue(v interface{}) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}
	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{})
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlark.Function, *starlark.Builtin:
		// Functions defined by the hook are not part of its output.
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
