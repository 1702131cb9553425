// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/vcardctl/internal/card"
	"github.com/staranto/vcardctl/internal/meta"
	"github.com/staranto/vcardctl/internal/resource"
)

const bashCompletionScript = `# bash completion for vcardctl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_vcardctl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "show card records get create update delete tables vcf publish serve completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--attrs -a --color -c --filter -f --local -l --output -o --sort -s --titles -t --tldr"
    local words=""

    case "$cmd" in
        show)
            local opts="$common"
            ;;
        card)
            local opts="$common"
            words="@CARDS@"
            ;;
        records)
            local opts="$common --schema --by --desc --formula --view --max --diff --save --changes"
            words="@RESOURCES@"
            ;;
        get|create|update)
            local opts="$common"
            words="@RESOURCES@"
            ;;
        delete)
            local opts="--tldr"
            words="@RESOURCES@"
            ;;
        tables)
            local opts="$common"
            ;;
        vcf)
            local opts="--file --enhanced --tldr"
            ;;
        publish)
            local opts="--bucket --prefix --region --profile --endpoint --max-age --enhanced --tldr"
            ;;
        serve)
            local opts="--addr --prefetch --enhanced --tldr"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

    if [[ "$prev" == "--file" || "$prev" == "--diff" ]]; then
        COMPREPLY=( $(compgen -f -- "$cur") )
        return 0
    fi

    # The first positional is a card or resource name.
    if [[ "$cur" != -* && ${COMP_CWORD} -eq 2 && -n "$words" ]]; then
        COMPREPLY=( $(compgen -W "$words" -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _vcardctl vcardctl
`

const zshCompletionScript = `#compdef vcardctl

_vcardctl() {
  local -a cmds
  cmds=(
    'show:render every card in layout order'
    'card:render one card'
    'records:list the records of a resource'
    'get:show one record'
    'create:add a record'
    'update:change fields of a record'
    'delete:remove a record'
    'tables:list the tables of the base'
    'vcf:export the card as a vCard'
    'publish:upload the vCard and cards.json to S3'
    'serve:serve the cards over HTTP'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-l --local)'{-l,--local}'[convert timestamps]'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'vcardctl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    show|tables)
      _arguments -C $common
      ;;
    card)
      _arguments -C $common '1:card:(@CARDS@)'
      ;;
    records)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '--by[server side sort field]:field' \
        '--desc[sort descending]' \
        '--formula[Airtable formula]:formula' \
        '--view[Airtable view]:view' \
        '--max[max records]:max' \
        '--diff[compare with a snapshot]:file:_files' \
        '--save[keep a snapshot]' \
        '--changes[compare with the last snapshot]' \
        '1:resource:(@RESOURCES@)'
      ;;
    get|create|update|delete)
      _arguments -C $common '1:resource:(@RESOURCES@)' '*:field=value'
      ;;
    vcf)
      _arguments -C '--file[output file]:file:_files' '--enhanced[wallet lines]'
      ;;
    publish)
      _arguments -C \
        '--bucket[S3 bucket]:bucket' \
        '--prefix[key prefix]:prefix' \
        '--region[AWS region]:region' \
        '--profile[AWS profile]:profile' \
        '--endpoint[S3 endpoint]:url' \
        '--max-age[Cache-Control max-age]:seconds' \
        '--enhanced[wallet lines]'
      ;;
    serve)
      _arguments -C '--addr[listen address]:addr' '--prefetch[warm the cache]' '--enhanced[wallet lines]'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _vcardctl vcardctl
`

// completionScript fills the card and resource names into script.
func completionScript(script string) string {
	resources := make([]string, 0, len(resource.Keys()))
	for _, k := range resource.Keys() {
		resources = append(resources, string(k))
	}
	cards := make([]string, 0, len(card.Names()))
	for _, n := range card.Names() {
		cards = append(cards, string(n))
	}
	return strings.NewReplacer(
		"@RESOURCES@", strings.Join(resources, " "),
		"@CARDS@", strings.Join(cards, " "),
	).Replace(script)
}

func CompletionCommandAction(_ context.Context, cmd *cli.Command) error {
	shell := cmd.Args().First()
	if shell == "" {
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			shell = "zsh"
		case strings.HasSuffix(sh, "bash"):
			shell = "bash"
		}
	}

	switch shell {
	case "bash":
		fmt.Fprint(out(cmd), completionScript(bashCompletionScript))
	case "zsh":
		fmt.Fprint(out(cmd), completionScript(zshCompletionScript))
	default:
		fmt.Fprintln(os.Stderr, "usage: vcardctl completion [bash|zsh]")
	}
	return nil
}

func CompletionCommandBuilder(_ *cli.Command, m meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "vcardctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": m,
		},
		Action: CompletionCommandAction,
	}
}
