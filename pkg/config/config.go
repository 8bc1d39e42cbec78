package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/iecst/pkg/cli"
)

type Feature int

const (
	FeatBareWordString Feature = iota
	FeatStdFuncs
	FeatStrictConditions
	FeatRegistry
	FeatCount
)

type Warning int

const (
	WarnBareWord Warning = iota
	WarnUnknownStmt
	WarnLoopControl
	WarnUnknownFB
	WarnShadow
	WarnPedantic
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features    map[Feature]Info
	Warnings    map[Warning]Info
	FeatureMap  map[string]Feature
	WarningMap  map[string]Warning
	ProfileName string
}

// Profiles accepted by ApplyProfile
var Profiles = []string{"default", "strict", "lenient"}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatBareWordString:   {"bare-word-string", true, "Type an undeclared bare identifier as a STRING literal."},
		FeatStdFuncs:         {"std-funcs", false, "Resolve calls to IEC standard functions (ABS, MIN, LIMIT, INT_TO_REAL...)."},
		FeatStrictConditions: {"strict-conditions", true, "Apply the strict comparison rules to IF/ELSIF/WHILE/UNTIL conditions."},
		FeatRegistry:         {"registry", true, "Cross-check program declarations against the device registry."},
	}

	warnings := map[Warning]Info{
		WarnBareWord:    {"bare-word", true, "Warn when an undeclared identifier is taken as a STRING."},
		WarnUnknownStmt: {"unknown-stmt", true, "Warn on statement kinds the validator does not understand."},
		WarnLoopControl: {"loop-control", true, "Warn on EXIT or CONTINUE outside of a loop."},
		WarnUnknownFB:   {"unknown-fb", false, "Warn on fbCall to a function block without a known signature."},
		WarnShadow:      {"shadow", false, "Warn when a FOR iterator shadows an outer declaration."},
		WarnPedantic:    {"pedantic", false, "Issue every warning, including the noisy ones."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool {
	return c.Warnings[wt].Enabled || (wt != WarnPedantic && c.Warnings[WarnPedantic].Enabled)
}

// ApplyProfile sets features and warnings to a named preset. Flags applied
// afterwards override it.
func (c *Config) ApplyProfile(name string) error {
	type profileSettings struct {
		feature Feature
		strict  bool
		lenient bool
	}

	settings := []profileSettings{
		{FeatBareWordString, false, true},
		{FeatStdFuncs, false, true},
		{FeatStrictConditions, true, false},
		{FeatRegistry, true, false},
	}

	switch name {
	case "", "default":
		name = "default"
		defaults := NewConfig()
		c.Features = defaults.Features
		c.Warnings = defaults.Warnings
	case "strict":
		for _, s := range settings {
			c.SetFeature(s.feature, s.strict)
		}
		c.SetWarning(WarnUnknownFB, true)
		c.SetWarning(WarnShadow, true)
	case "lenient":
		for _, s := range settings {
			c.SetFeature(s.feature, s.lenient)
		}
		c.SetWarning(WarnBareWord, false)
		c.SetWarning(WarnUnknownStmt, false)
	default:
		return fmt.Errorf("unsupported profile '%s'. Supported: %s", name, strings.Join(Profiles, ", "))
	}
	c.ProfileName = name
	return nil
}

func (c *Config) applyFlag(flag string) {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name = strings.TrimPrefix(trimmed, "W")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
		isWarning = true
	case strings.HasPrefix(trimmed, "F"):
		name = strings.TrimPrefix(trimmed, "F")
		if isNo {
			name = strings.TrimPrefix(name, "no-")
		}
	default:
		name = trimmed
		isWarning = true
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
		}
		return
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
		}
	} else {
		if f, ok := c.FeatureMap[name]; ok {
			c.SetFeature(f, enable)
		}
	}
}

// ProcessFlags applies -W/-F style flags in two rounds so that -Wall and
// -Wno-all never override a more specific flag given alongside them.
func (c *Config) ProcessFlags(flags []string) {
	isGlobal := func(name string) bool { return name == "Wall" || name == "Wno-all" }
	for _, f := range flags {
		if isGlobal(strings.TrimPrefix(f, "-")) {
			c.applyFlag(f)
		}
	}
	for _, f := range flags {
		if !isGlobal(strings.TrimPrefix(f, "-")) {
			c.applyFlag(f)
		}
	}
}

// SetupFlagGroups registers a -W<name>/-Wno-<name> pair per warning and a
// -F<name>/-Fno-<name> pair per feature. The returned entries are indexed by
// Warning and Feature respectively.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	var warningFlags, featureFlags []cli.FlagGroupEntry

	for i := Warning(0); i < WarnCount; i++ {
		pEnable, pDisable := new(bool), new(bool)
		info := c.Warnings[i]
		warningFlags = append(warningFlags, cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "W",
			Usage:    info.Description,
			Default:  info.Enabled,
			Enabled:  pEnable,
			Disabled: pDisable,
		})
	}

	for i := Feature(0); i < FeatCount; i++ {
		pEnable, pDisable := new(bool), new(bool)
		info := c.Features[i]
		featureFlags = append(featureFlags, cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "F",
			Usage:    info.Description,
			Default:  info.Enabled,
			Enabled:  pEnable,
			Disabled: pDisable,
		})
	}

	wallEnable, wallDisable := new(bool), new(bool)
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning flag", "Available Warnings",
		append([]cli.FlagGroupEntry{{Name: "all", Prefix: "W", Usage: "Enable every warning but pedantic", Enabled: wallEnable, Disabled: wallDisable}}, warningFlags...))
	fs.AddFlagGroup("Feature Flags", "Enable or disable validator features", "feature flag", "Available Features", featureFlags)

	return warningFlags, featureFlags
}

// ApplyFlagGroups applies the parsed values of the entries returned by
// SetupFlagGroups, the -Wall pair first.
func (c *Config) ApplyFlagGroups(fs *cli.FlagSet, warningFlags, featureFlags []cli.FlagGroupEntry) {
	var flags []string
	if f := fs.Lookup("Wall"); f != nil && f.Value.String() == "true" {
		flags = append(flags, "-Wall")
	}
	if f := fs.Lookup("Wno-all"); f != nil && f.Value.String() == "true" {
		flags = append(flags, "-Wno-all")
	}
	for _, entry := range warningFlags {
		if entry.Enabled != nil && *entry.Enabled {
			flags = append(flags, "-W"+entry.Name)
		}
		if entry.Disabled != nil && *entry.Disabled {
			flags = append(flags, "-Wno-"+entry.Name)
		}
	}
	for _, entry := range featureFlags {
		if entry.Enabled != nil && *entry.Enabled {
			flags = append(flags, "-F"+entry.Name)
		}
		if entry.Disabled != nil && *entry.Disabled {
			flags = append(flags, "-Fno-"+entry.Name)
		}
	}
	c.ProcessFlags(flags)
}
