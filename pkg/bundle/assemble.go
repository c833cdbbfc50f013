package bundle

import "strings"

// Header is the fixed provenance comment prefixed to every generated
// manifest. External tooling keys on it to tell managed Brewfiles apart from
// hand-written ones.
const Header = "# Generated by brewplan. Do not edit by hand; regenerated on every activation.\n"

// section pairs a heading with the already-generated lines beneath it.
type section struct {
	heading string
	lines   []string
}

// Compile assembles the full manifest text from the bundle. Sections appear
// in fixed order; a section with no entries contributes nothing, not even a
// heading. Identical bundles always compile to byte-identical text.
func (b *Bundle) Compile() (string, error) {
	var sections []section

	if len(b.Taps) > 0 {
		lines := make([]string, 0, len(b.Taps))
		for _, t := range b.Taps {
			line, err := tapLine(t)
			if err != nil {
				return "", err
			}
			lines = append(lines, line)
		}
		sections = append(sections, section{heading: "Taps", lines: lines})
	}

	if line, ok, err := caskArgsLine(b.CaskArgs); err != nil {
		return "", err
	} else if ok {
		sections = append(sections, section{
			heading: "Arguments for all casks",
			lines:   []string{line},
		})
	}

	if len(b.Brews) > 0 {
		lines := make([]string, 0, len(b.Brews))
		for _, f := range b.Brews {
			line, err := brewLine(f)
			if err != nil {
				return "", err
			}
			lines = append(lines, line)
		}
		sections = append(sections, section{heading: "Brews", lines: lines})
	}

	if len(b.Casks) > 0 {
		lines := make([]string, 0, len(b.Casks))
		for _, c := range b.Casks {
			line, err := caskLine(c)
			if err != nil {
				return "", err
			}
			lines = append(lines, line)
		}
		sections = append(sections, section{heading: "Casks", lines: lines})
	}

	if len(b.MasApps) > 0 {
		lines := make([]string, 0, len(b.MasApps))
		for _, m := range b.MasApps {
			line, err := masLine(m)
			if err != nil {
				return "", err
			}
			lines = append(lines, line)
		}
		sections = append(sections, section{heading: "Mac App Store apps", lines: lines})
	}

	if len(b.Whalebrews) > 0 {
		lines := make([]string, 0, len(b.Whalebrews))
		for _, w := range b.Whalebrews {
			line, err := whalebrewLine(w)
			if err != nil {
				return "", err
			}
			lines = append(lines, line)
		}
		sections = append(sections, section{heading: "Docker containers", lines: lines})
	}

	var sb strings.Builder
	sb.WriteString(Header)
	for _, s := range sections {
		sb.WriteString("# ")
		sb.WriteString(s.heading)
		sb.WriteByte('\n')
		for _, line := range s.lines {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	if b.ExtraConfig != "" {
		sb.WriteString("# Extra config\n")
		sb.WriteString(b.ExtraConfig)
		if !strings.HasSuffix(b.ExtraConfig, "\n") {
			sb.WriteByte('\n')
		}
	}

	return sb.String(), nil
}
