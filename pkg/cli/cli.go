// Package cli is the small flag parser and help renderer shared by stc and sttest.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

// Set treats an empty value as a bare switch
func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = b
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type intValue struct{ p *int }

func (v *intValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer value '%s': %w", s, err)
	}
	*v.p = n
	return nil
}
func (v *intValue) String() string { return strconv.Itoa(*v.p) }
func (v *intValue) Get() any       { return *v.p }

type durationValue struct{ p *time.Duration }

func (v *durationValue) Set(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", s, err)
	}
	*v.p = d
	return nil
}
func (v *durationValue) String() string { return v.p.String() }
func (v *durationValue) Get() any       { return *v.p }

func isSwitch(flag *Flag) bool {
	_, ok := flag.Value.(*boolValue)
	return ok
}

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

// FlagGroup is a family of -<Prefix><name> / -<Prefix>no-<name> switches
// listed in a section of its own on the help page.
type FlagGroup struct {
	Name        string
	Description string
	Prefix      string
	GroupType   string
	ListHeader  string
	Flags       []FlagGroupEntry
}

// FlagGroupEntry describes a -<Prefix><Name> / -<Prefix>no-<Name> pair.
// Default is only used to mark the entry in the help page.
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Default  bool
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	args       []string
	flagGroups []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

// Args returns the positional arguments left by the last Parse
func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, expectedType string) {
	*p = value
	f.Var(&intValue{p}, name, shorthand, usage, strconv.Itoa(value), expectedType)
}

func (f *FlagSet) Duration(p *time.Duration, name, shorthand string, value time.Duration, usage string) {
	*p = value
	f.Var(&durationValue{p}, name, shorthand, usage, value.String(), "duration")
}

// AddFlagGroup registers the switch pair of every entry and lists them under
// name on the help page. groupType names one entry in messages ("warning flag").
func (f *FlagSet) AddFlagGroup(name, description, groupType, listHeader string, entries []FlagGroupEntry) {
	group := FlagGroup{Name: name, Description: description, GroupType: groupType, ListHeader: listHeader, Flags: entries}
	for _, e := range entries {
		group.Prefix = e.Prefix
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
		}
	}
	f.flagGroups = append(f.flagGroups, group)
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic("flag redefined: " + name)
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand == "" {
		return
	}
	if _, ok := f.shorthands[shorthand]; ok {
		panic("shorthand flag redefined: " + shorthand)
	}
	f.shorthands[shorthand] = flag
}

// Parse accepts --name, --name=value, -name, -name=value, -x and -xvalue.
// A lone "-" is positional and "--" ends flag parsing.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		}
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		flag, value, inline, err := f.resolve(arg)
		if err != nil {
			return err
		}
		if !inline && !isSwitch(flag) {
			if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: %s", arg)
			}
			i++
			value = arguments[i]
		}
		if err := flag.Value.Set(value); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlagSet) resolve(arg string) (*Flag, string, bool, error) {
	long := strings.HasPrefix(arg, "--")
	body := arg[1:]
	if long {
		body = arg[2:]
	}
	name, value, inline := strings.Cut(body, "=")
	if name == "" {
		return nil, "", false, errors.New("empty flag name")
	}
	if flag, ok := f.flags[name]; ok {
		return flag, value, inline, nil
	}
	if long {
		return nil, "", false, fmt.Errorf("unknown flag: --%s", name)
	}

	for _, g := range f.flagGroups {
		if g.Prefix != "" && len(body) > len(g.Prefix) && strings.HasPrefix(body, g.Prefix) {
			return nil, "", false, fmt.Errorf("unknown %s: %s", g.GroupType, arg)
		}
	}
	flag, ok := f.shorthands[body[:1]]
	if !ok {
		return nil, "", false, fmt.Errorf("unknown shorthand flag: -%s", body[:1])
	}
	if isSwitch(flag) || len(body) == 1 {
		return flag, "", false, nil
	}
	return flag, body[1:], true, nil
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Version     string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help, version := false, false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")
	if a.Version != "" {
		a.FlagSet.Bool(&version, "version", "", false, "Print the version and exit")
	}

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		a.writeUsage(a.Stderr)
		return err
	}
	switch {
	case help:
		a.writeHelp(a.Stdout)
	case version:
		fmt.Fprintf(a.Stdout, "%s %s\n", a.Name, a.Version)
	case a.Action != nil:
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

const indentUnit = "    "

// row is one line of a flag table: the spelling, its description and an
// optional right-hand mark (a default value, or |x| / |-| for group entries)
type row struct{ left, usage, mark string }

// page lays out rows so that every table on it shares the same columns
type page struct {
	sb              strings.Builder
	width           int
	leftCol, useCol int
}

func newPage(w io.Writer, tables ...[]row) *page {
	p := &page{width: terminalWidth(w)}
	for _, t := range tables {
		for _, r := range t {
			p.leftCol = max(p.leftCol, len(r.left))
			p.useCol = max(p.useCol, len(r.usage))
		}
	}
	return p
}

func (p *page) heading(text string) {
	p.sb.WriteString("\n" + indentUnit + text + "\n")
}

func (p *page) text(text string) {
	p.sb.WriteString(indentUnit + indentUnit + text + "\n")
}

func (p *page) table(rows []row) {
	lead := indentUnit + indentUnit
	for _, r := range rows {
		avail := max(p.width-len(lead)-p.leftCol-3-len(r.mark), 10)
		lines := wrapText(r.usage, avail)
		if len(lines) == 0 {
			lines = []string{""}
		}
		if r.mark == "" {
			fmt.Fprintf(&p.sb, "%s%-*s %s\n", lead, p.leftCol, r.left, lines[0])
		} else {
			fmt.Fprintf(&p.sb, "%s%-*s %-*s  %s\n", lead, p.leftCol, r.left, min(p.useCol, avail), lines[0], r.mark)
		}
		for _, l := range lines[1:] {
			fmt.Fprintf(&p.sb, "%s%*s %s\n", lead, p.leftCol, "", l)
		}
	}
}

func (p *page) flush(w io.Writer) { io.WriteString(w, p.sb.String()) }

func spelling(flag *Flag) string {
	arg := ""
	if !isSwitch(flag) && flag.ExpectedType != "" {
		arg = " <" + flag.ExpectedType + ">"
	}
	if flag.Shorthand == "" {
		return "--" + flag.Name + arg
	}
	return "-" + flag.Shorthand + arg + ", --" + flag.Name + arg
}

// optionRows lists the flags that do not belong to a group, by name
func (a *App) optionRows() []row {
	grouped := make(map[string]bool)
	for _, g := range a.FlagSet.flagGroups {
		for _, e := range g.Flags {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}
	var rows []row
	for name, flag := range a.FlagSet.flags {
		if grouped[name] {
			continue
		}
		r := row{left: spelling(flag), usage: flag.Usage}
		if !isSwitch(flag) && flag.DefValue != "" {
			r.mark = "|" + flag.DefValue + "|"
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].left < rows[j].left })
	return rows
}

func groupRows(g FlagGroup) (usage, entries []row) {
	kind := g.GroupType
	if kind == "" {
		kind = "flag"
	}
	usage = []row{
		{left: "-" + g.Prefix + "<" + kind + ">", usage: "Enable a specific " + kind},
		{left: "-" + g.Prefix + "no-<" + kind + ">", usage: "Disable a specific " + kind},
	}
	for _, e := range g.Flags {
		mark := "|-|"
		if e.Default {
			mark = "|x|"
		}
		entries = append(entries, row{left: e.Name, usage: e.Usage, mark: mark})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].left < entries[j].left })
	return usage, entries
}

func (a *App) writeUsage(w io.Writer) {
	synopsis := a.Synopsis
	if synopsis == "" {
		synopsis = "[options] <input> ..."
	}
	options := a.optionRows()
	p := newPage(w, options)
	fmt.Fprintf(&p.sb, "Usage: %s %s\n", a.Name, synopsis)
	if len(options) > 0 {
		p.heading("Options")
		p.table(options)
	}
	fmt.Fprintf(&p.sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	p.flush(w)
}

func (a *App) writeHelp(w io.Writer) {
	options := a.optionRows()
	groups := append([]FlagGroup(nil), a.FlagSet.flagGroups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })

	tables := [][]row{options}
	for _, g := range groups {
		usage, entries := groupRows(g)
		tables = append(tables, usage, entries)
	}
	p := newPage(w, tables...)

	years := strconv.Itoa(time.Now().Year())
	if a.Since != 0 && strconv.Itoa(a.Since) != years {
		years = strconv.Itoa(a.Since) + "-" + years
	}
	p.sb.WriteString("\n")
	fmt.Fprintf(&p.sb, "%sCopyright (c) %s: %s and contributors\n", indentUnit, years, strings.Join(a.Authors, ", "))
	if a.Repository != "" {
		fmt.Fprintf(&p.sb, "%sFor more details refer to %s\n", indentUnit, a.Repository)
	}
	if a.Synopsis != "" {
		p.heading("Synopsis")
		p.text(a.Name + " " + strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis))
	}
	if a.Description != "" {
		p.heading("Description")
		p.text(a.Description)
	}
	if len(options) > 0 {
		p.heading("Options")
		p.table(options)
	}
	for i, g := range groups {
		p.heading(g.Name)
		p.table(tables[1+2*i])
		if g.ListHeader != "" {
			p.sb.WriteString(indentUnit + g.ListHeader + "\n")
		}
		p.table(tables[2+2*i])
	}
	p.flush(w)
}

// terminalWidth returns the width of w when it is a terminal, else 80
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

// wrapText breaks text into lines of at most maxWidth bytes, never splitting
// a word
func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		if len(words) == 0 {
			return nil
		}
		return []string{text}
	}
	lines := []string{words[0]}
	for _, word := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(word) > maxWidth {
			lines = append(lines, word)
			continue
		}
		*last += " " + word
	}
	return lines
}
