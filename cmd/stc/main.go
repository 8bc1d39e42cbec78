package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/xplshn/iecst/pkg/cli"
	"github.com/xplshn/iecst/pkg/codegen"
	"github.com/xplshn/iecst/pkg/config"
	"github.com/xplshn/iecst/pkg/ir"
	"github.com/xplshn/iecst/pkg/registry"
	"github.com/xplshn/iecst/pkg/typeChecker"
	"github.com/xplshn/iecst/pkg/util"
)

func main() {
	app := cli.NewApp("stc")
	app.Synopsis = "[options] <input.json> ..."
	app.Description = "Validates IEC 61131-3 programs written as JSON against a device registry and generates Structured Text from them."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/iecst>"
	app.Since = 2025
	app.Version = "0.1.0"

	var (
		outFile      string
		registryPath string
		profile      string
		emit         string
		checkOnly    bool
		dumpIR       bool
		pedantic     bool
		verbose      bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file> instead of stdout.", "file")
	fs.String(&registryPath, "registry", "r", "", "Load device variables from <file>.", "file")
	fs.String(&profile, "profile", "", "default", "Select a validation profile (default, strict, lenient).", "profile")
	fs.String(&emit, "emit", "e", "st", "Select the output format ("+strings.Join(backendNames(), ", ")+").", "format")
	fs.Bool(&checkOnly, "check", "c", false, "Validate the input and exit.")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Dump the normalized JSON IR instead of Structured Text.")
	fs.Bool(&pedantic, "pedantic", "", false, "Issue every warning.")
	fs.Bool(&verbose, "verbose", "v", false, "Print progress information.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		// Profile first, explicit -W/-F flags override it
		if err := cfg.ApplyProfile(profile); err != nil {
			util.Stderr.Error(util.Diagnostic{Msg: err.Error()})
			return err
		}
		if pedantic {
			cfg.SetWarning(config.WarnPedantic, true)
		}
		cfg.ApplyFlagGroups(fs, warningFlags, featureFlags)

		if dumpIR {
			emit = "ir"
		}
		newBackend, ok := codegen.Backends[emit]
		if !ok {
			err := fmt.Errorf("unsupported output format '%s'", emit)
			util.Stderr.Error(util.Diagnostic{Msg: err.Error()})
			return err
		}

		if len(inputFiles) == 0 {
			err := errors.New("no input files specified")
			util.Stderr.Error(util.Diagnostic{Msg: err.Error()})
			return err
		}

		info := func(format string, args ...interface{}) {
			if verbose {
				util.Stderr.Info(app.Name, format, args...)
			}
		}

		info("Reading %d input file(s)...", len(inputFiles))
		file, origins, err := readInputs(inputFiles)
		if errors.Is(err, ir.ErrNoDevice) {
			util.Stderr.Error(util.Diagnostic{Msg: "No applicable device found"})
			return err
		}
		if err != nil {
			util.Stderr.Error(util.Diagnostic{Msg: err.Error()})
			return err
		}

		var reg *registry.Registry
		if registryPath != "" {
			if reg, err = registry.LoadFile(registryPath); err != nil {
				util.Stderr.Error(util.Diagnostic{File: registryPath, Msg: err.Error()})
				return err
			}
			info("Loaded %s", reg)
		}

		info("Validating %d unit(s), %d statement(s)...", len(file.Units), countStatements(file))
		tc := typeChecker.NewTypeChecker(cfg, reg)
		checkErr := tc.Check(file)
		for _, w := range tc.Warnings() {
			w.File = origins[w.Unit]
			util.Stderr.Warn(w)
		}
		if checkErr != nil {
			d := tc.Diagnose(checkErr)
			d.File = origins[d.Unit]
			util.Stderr.Error(d)
			return checkErr
		}
		info("%s", typeChecker.SuccessMessage)
		if checkOnly {
			fmt.Fprintln(app.Stdout, typeChecker.SuccessMessage)
			return nil
		}

		info("Generating code with '%s' backend...", emit)
		out, err := newBackend().Generate(file)
		if err != nil {
			util.Stderr.Error(util.Diagnostic{Msg: err.Error()})
			return err
		}
		if !strings.HasSuffix(out.String(), "\n") {
			out.WriteByte('\n')
		}

		if outFile == "" {
			_, err = out.WriteTo(app.Stdout)
			return err
		}
		if err := os.WriteFile(outFile, out.Bytes(), 0o644); err != nil {
			util.Stderr.Error(util.Diagnostic{File: outFile, Msg: err.Error()})
			return err
		}
		info("Wrote '%s'", outFile)
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func countStatements(file *ir.File) int {
	n := 0
	count := func(ir.Stmt) { n++ }
	for _, u := range file.Units {
		switch unit := u.(type) {
		case *ir.Program:
			ir.Walk(unit.Statements, count)
		case *ir.FunctionBlock:
			ir.Walk(unit.Body, count)
		case *ir.Function:
			ir.Walk(unit.Body, count)
		}
	}
	return n
}

func backendNames() []string {
	names := make([]string, 0, len(codegen.Backends))
	for name := range codegen.Backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// readInputs decodes every input and merges the units in order. The returned
// map names the file each unit came from, keyed the way diagnostics label units.
func readInputs(paths []string) (*ir.File, map[string]string, error) {
	merged := &ir.File{}
	origins := make(map[string]string)
	for _, path := range paths {
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("could not read file '%s': %w", path, err)
		}
		f, err := ir.Decode(data)
		if errors.Is(err, ir.ErrNoDevice) {
			return nil, nil, err
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, u := range f.Units {
			origins[fmt.Sprintf("%s '%s'", u.UnitKey(), u.UnitName())] = path
		}
		merged.Append(f)
	}
	return merged, origins, nil
}
