// Package completion holds the static shell completion table and renders
// the bash completion script from it.
package completion

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"text/template"
)

// Table maps a command path to the tokens that may follow it.
//
// Commands is keyed by the parent command ("" for the program itself) and
// lists its subcommands. Flags is keyed by "command subcommand" ("" for
// global flags). ValueFlags names the flags that consume the next word, so
// their values are not mistaken for subcommands.
type Table struct {
	Commands   map[string][]string
	Flags      map[string][]string
	ValueFlags []string
}

// Default returns the chromacli completion table.
func Default() Table {
	getAll := []string{"--collection-name", "--limit", "--offset"}
	return Table{
		Commands: map[string][]string{
			"":           {"collection", "document", "db", "config", "completion"},
			"collection": {"create", "list", "delete"},
			"document":   {"add", "query", "delete", "get-all", "list", "import"},
			"db":         {"export", "import"},
			"completion": {"bash", "zsh", "fish", "powershell"},
		},
		Flags: map[string][]string{
			"":                  {"--db-path", "--db-name", "--chroma-url", "--embedding", "--json", "--verbose", "--help", "--version"},
			"collection create": {"--metadata"},
			"collection delete": {"--yes"},
			"document add":      {"--collection-name", "--text", "--metadata", "--id", "--file", "--chunk-size", "--chunk-overlap"},
			"document query":    {"--collection-name", "--query-text", "--n-results", "--where", "--where-document"},
			"document delete":   {"--collection-name", "--id", "--where", "--where-document"},
			"document get-all":  getAll,
			"document list":     getAll,
			"document import":   {"--collection-name", "--file"},
			"db export":         {"--compress"},
		},
		ValueFlags: []string{
			"--db-path", "--db-name", "--chroma-url", "--embedding",
			"--metadata", "--collection-name", "--text", "--id", "--file",
			"--chunk-size", "--chunk-overlap", "--query-text", "--n-results",
			"--where", "--where-document", "--limit", "--offset",
		},
	}
}

// Next returns the tokens valid after the given command path: subcommands
// for a parent, or the leaf's flags followed by the global flags.
func (t Table) Next(path ...string) []string {
	key := strings.Join(path, " ")
	if subs, ok := t.Commands[key]; ok && len(path) < 2 {
		return subs
	}
	out := append([]string{}, t.Flags[key]...)
	if key != "" {
		out = append(out, t.Flags[""]...)
	}
	return out
}

type bashCase struct {
	Pattern string
	Words   string
}

type bashData struct {
	Func       string
	Program    string
	TopLevel   string
	Subs       []bashCase
	Flags      []bashCase
	Global     string
	ValueFlags string
}

var funcNameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Bash writes a bash completion script for program to w. The script walks
// the words typed so far to find the (command, subcommand) position and
// offers the matching entry from the table.
func Bash(w io.Writer, program string, t Table) error {
	if program == "" {
		return fmt.Errorf("program name is required")
	}

	data := bashData{
		Func:       "_" + funcNameUnsafe.ReplaceAllString(program, "_") + "_completions",
		Program:    program,
		TopLevel:   strings.Join(t.Commands[""], " "),
		Global:     strings.Join(t.Flags[""], " "),
		ValueFlags: strings.Join(t.ValueFlags, "|"),
	}
	for _, parent := range sortedKeys(t.Commands) {
		if parent == "" {
			continue
		}
		data.Subs = append(data.Subs, bashCase{Pattern: parent, Words: strings.Join(t.Commands[parent], " ")})
	}
	for _, leaf := range sortedKeys(t.Flags) {
		if leaf == "" {
			continue
		}
		data.Flags = append(data.Flags, bashCase{Pattern: leaf, Words: strings.Join(t.Next(strings.Fields(leaf)...), " ")})
	}

	return bashTemplate.Execute(w, data)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var bashTemplate = template.Must(template.New("bash").Parse(`# bash completion for {{.Program}}
{{.Func}}() {
    local cur cmd sub word skip i
    cur="${COMP_WORDS[COMP_CWORD]}"
    cmd=""
    sub=""
    skip=0

    for ((i = 1; i < COMP_CWORD; i++)); do
        word="${COMP_WORDS[i]}"
        if [[ $skip -eq 1 ]]; then
            skip=0
            continue
        fi
        case "$word" in
            {{.ValueFlags}})
                skip=1
                continue
                ;;
            -*)
                continue
                ;;
        esac
        if [[ -z "$cmd" ]]; then
            cmd="$word"
        elif [[ -z "$sub" ]]; then
            sub="$word"
        fi
    done

    if [[ $skip -eq 1 ]]; then
        COMPREPLY=()
        return 0
    fi

    if [[ "$cur" == -* ]]; then
        local opts
        case "$cmd $sub" in
{{- range .Flags}}
            "{{.Pattern}}") opts="{{.Words}}" ;;
{{- end}}
            *) opts="{{.Global}}" ;;
        esac
        COMPREPLY=($(compgen -W "$opts" -- "$cur"))
        return 0
    fi

    if [[ -z "$cmd" ]]; then
        COMPREPLY=($(compgen -W "{{.TopLevel}}" -- "$cur"))
        return 0
    fi

    if [[ -z "$sub" ]]; then
        case "$cmd" in
{{- range .Subs}}
            {{.Pattern}}) COMPREPLY=($(compgen -W "{{.Words}}" -- "$cur")) ;;
{{- end}}
        esac
        return 0
    fi

    COMPREPLY=()
}

complete -F {{.Func}} {{.Program}}
`))
