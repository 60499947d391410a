// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/lbctl/internal/meta"
)

const bashCompletionScript = `# bash completion for lbctl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_lbctl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "show refresh check complete diff watch completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--color -c --filter -f --output -o --sort -s --titles -t --tldr"
    local interp="--interpreter -i --root -r --region --profile"

    case "$cmd" in
        show)
            local opts="$common $interp --params -p"
            ;;
        refresh)
            local opts="$common $interp"
            ;;
        check)
            local opts="$common $interp --project"
            ;;
        complete)
            local opts="$common $interp --project --line -l --prefix"
            ;;
        diff)
            local opts="$common --delta --region --profile"
            ;;
        watch)
            local opts="$common $interp --plain"
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

    if [[ "$prev" == "--root" || "$prev" == "-r" || "$prev" == "--project" ]]; then
        COMPREPLY=( $(compgen -o dirnames -- "$cur") )
        return 0
    fi

    if [[ "$cur" == -* ]]; then
        COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
        return 0
    fi

    # check, complete and diff take paths.
    COMPREPLY=( $(compgen -f -- "$cur") )
    return 0
}

complete -F _lbctl lbctl
`

const zshCompletionScript = `#compdef lbctl

_lbctl() {
  local -a cmds
  cmds=(
    'show:show cached schemas per interpreter'
    'refresh:flush the cache and reload every interpreter'
    'check:inspect command declarations in Python files'
    'complete:propose missing parameters for the class at a line'
    'diff:compare the schemas of two site-packages roots'
    'watch:keep schemas current as packages change'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  local -a interp
  interp=(
  '(-i --interpreter)'{-i,--interpreter}'[configured interpreter]:name'
  '(-r --root)'{-r,--root}'[site-packages root]:root:_directories'
  '--region[AWS region]:region'
  '--profile[AWS profile]:profile'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'lbctl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    show)
      _arguments -C $common $interp '(-p --params)'{-p,--params}'[list every parameter]'
      ;;
    refresh)
      _arguments -C $common $interp
      ;;
    check)
      _arguments -C $common $interp '--project[project dir]:dir:_directories' '*:file:_files -g "*.py"'
      ;;
    complete)
      _arguments -C $common $interp \
        '--project[project dir]:dir:_directories' \
        '(-l --line)'{-l,--line}'[line]:line' \
        '--prefix[typed prefix]:prefix' \
        ':file:_files -g "*.py"'
      ;;
    diff)
      _arguments -C $common '--delta[parameter delta]' '--region[AWS region]:region' '--profile[AWS profile]:profile' \
        ':from:_directories' ':to:_directories'
      ;;
    watch)
      _arguments -C $common $interp '--plain[one line per refresh]'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _lbctl lbctl
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := stdout(cmd)

	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	case "":
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(stderr(cmd), "usage: lbctl completion [bash|zsh]")
		}
	default:
		return fmt.Errorf("unsupported shell: %s", shell)
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "lbctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
