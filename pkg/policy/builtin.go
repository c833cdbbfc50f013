package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		tapNamingPolicy(),
		duplicatePackagesPolicy(),
		masIDRangePolicy(),
		greedyCaskPolicy(),
	}
}

// tapNamingPolicy enforces the owner/repo form of tap names.
func tapNamingPolicy() Policy {
	return Policy{
		Name:        "tap-naming",
		Description: "Tap names must be in owner/repo form",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming", "taps"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package brewplan.policies.taps

import rego.v1

deny contains violation if {
	some tap in input.bundle.taps
	not regex.match("^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$", tap.name)
	violation := {
		"message": sprintf("tap %q is not in owner/repo form", [tap.name]),
		"severity": "error",
		"entity": tap.name,
	}
}
`,
	}
}

// duplicatePackagesPolicy rejects bundles declaring the same package twice.
// Tap-qualified and bare names collide at install time, so comparison is on
// the trailing path segment. Duplicate directives make `brew bundle cleanup`
// output misleading.
func duplicatePackagesPolicy() Policy {
	return Policy{
		Name:        "duplicate-packages",
		Description: "A formula or cask must be declared at most once",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"packages"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package brewplan.policies.duplicates

import rego.v1

bare(name) := n if {
	parts := split(name, "/")
	n := parts[count(parts) - 1]
}

deny contains violation if {
	some i, j
	bare(input.bundle.brews[i].name) == bare(input.bundle.brews[j].name)
	i < j
	violation := {
		"message": sprintf("formulae %q and %q install the same package", [input.bundle.brews[i].name, input.bundle.brews[j].name]),
		"severity": "error",
		"entity": bare(input.bundle.brews[i].name),
	}
}

deny contains violation if {
	some i, j
	bare(input.bundle.casks[i].name) == bare(input.bundle.casks[j].name)
	i < j
	violation := {
		"message": sprintf("casks %q and %q install the same package", [input.bundle.casks[i].name, input.bundle.casks[j].name]),
		"severity": "error",
		"entity": bare(input.bundle.casks[i].name),
	}
}
`,
	}
}

// masIDRangePolicy rejects non-positive Mac App Store identifiers.
func masIDRangePolicy() Policy {
	return Policy{
		Name:        "mas-id-range",
		Description: "Mac App Store identifiers must be positive",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"mas"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package brewplan.policies.mas

import rego.v1

deny contains violation if {
	some app in input.bundle.mas_apps
	app.id <= 0
	violation := {
		"message": sprintf("Mac App Store app %q has a non-positive id %d", [app.name, app.id]),
		"severity": "error",
		"entity": app.name,
	}
}
`,
	}
}

// greedyCaskPolicy flags greedy casks for review. Greedy upgrades override
// a cask's own updater and deserve a deliberate decision.
func greedyCaskPolicy() Policy {
	return Policy{
		Name:        "greedy-cask-review",
		Description: "Greedy casks are reported for review",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"casks", "upgrades"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package brewplan.policies.greedy

import rego.v1

deny contains violation if {
	some cask in input.bundle.casks
	cask.greedy == true
	violation := {
		"message": sprintf("cask %q is marked greedy and will be upgraded even if self-updating", [cask.name]),
		"severity": "warning",
		"entity": cask.name,
	}
}
`,
	}
}
