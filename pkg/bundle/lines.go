package bundle

import "strings"

// The per-entity line generators below share one procedure: project the
// entity to its user-settable fields, drop unset ones, serialize the
// survivors, and join them in the entity's fixed field order. Name is
// mandatory for every kind except cask_args, so only caskArgsLine can decline
// to emit.

func tapLine(t Tap) (string, error) {
	name, err := Serialize(String(t.Name))
	if err != nil {
		return "", err
	}
	parts := []string{"tap " + name}
	if t.CloneTarget != "" {
		// Clone target is positional: no key prefix.
		target, err := Serialize(String(t.CloneTarget))
		if err != nil {
			return "", err
		}
		parts = append(parts, target)
	}
	if t.ForceAutoUpdate != nil {
		v, err := Serialize(Bool(*t.ForceAutoUpdate))
		if err != nil {
			return "", err
		}
		parts = append(parts, "force_auto_update: "+v)
	}
	return strings.Join(parts, ", "), nil
}

// caskArgsLine emits the global `cask_args` directive. The second return is
// false when every field is unset, in which case no line is contributed.
func caskArgsLine(a CaskArgs) (string, bool, error) {
	d := a.Dict()
	if len(d) == 0 {
		return "", false, nil
	}
	entries := make([]string, len(d))
	for i, f := range d {
		v, err := Serialize(f.Value)
		if err != nil {
			return "", false, err
		}
		entries[i] = f.Key + ": " + v
	}
	return "cask_args " + strings.Join(entries, ", "), true, nil
}

func brewLine(f Formula) (string, error) {
	name, err := Serialize(String(f.Name))
	if err != nil {
		return "", err
	}
	parts := []string{"brew " + name}

	if len(f.Args) > 0 {
		v, err := Serialize(stringList(f.Args))
		if err != nil {
			return "", err
		}
		parts = append(parts, "args: "+v)
	}
	if len(f.ConflictsWith) > 0 {
		v, err := Serialize(stringList(f.ConflictsWith))
		if err != nil {
			return "", err
		}
		parts = append(parts, "conflicts_with: "+v)
	}
	if f.StartService != nil {
		v, err := Serialize(Bool(*f.StartService))
		if err != nil {
			return "", err
		}
		parts = append(parts, "start_service: "+v)
	}
	if f.Link != nil {
		v, err := Serialize(Bool(*f.Link))
		if err != nil {
			return "", err
		}
		parts = append(parts, "link: "+v)
	}
	// restart_service comes last. The on-change variant is the one literal
	// that bypasses the serializer: `brew bundle` expects the bare Ruby
	// symbol :changed, not the string "changed".
	if f.RestartService != nil {
		if f.RestartService.Changed {
			parts = append(parts, "restart_service: :changed")
		} else {
			v, err := Serialize(Bool(f.RestartService.Enabled))
			if err != nil {
				return "", err
			}
			parts = append(parts, "restart_service: "+v)
		}
	}
	return strings.Join(parts, ", "), nil
}

func caskLine(c Cask) (string, error) {
	name, err := Serialize(String(c.Name))
	if err != nil {
		return "", err
	}
	parts := []string{"cask " + name}
	if c.Args != nil {
		if d := c.Args.Dict(); len(d) > 0 {
			v, err := Serialize(d)
			if err != nil {
				return "", err
			}
			parts = append(parts, "args: "+v)
		}
	}
	if c.Greedy != nil {
		v, err := Serialize(Bool(*c.Greedy))
		if err != nil {
			return "", err
		}
		parts = append(parts, "greedy: "+v)
	}
	return strings.Join(parts, ", "), nil
}

func masLine(m MasApp) (string, error) {
	name, err := Serialize(String(m.Name))
	if err != nil {
		return "", err
	}
	id, err := Serialize(Int(m.ID))
	if err != nil {
		return "", err
	}
	return "mas " + name + ", id: " + id, nil
}

func whalebrewLine(image string) (string, error) {
	name, err := Serialize(String(image))
	if err != nil {
		return "", err
	}
	return "whalebrew " + name, nil
}

func stringList(ss []string) List {
	l := make(List, len(ss))
	for i, s := range ss {
		l[i] = String(s)
	}
	return l
}
