package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unit-finder/internal/domain"
	"unit-finder/internal/services"

	"github.com/spf13/cobra"
)

const shellHelp = `comandos:
  locate              buscar perto da minha localização
  city <nome>         buscar por cidade
  select <id>         focar uma unidade da lista
  filter all|public|private
  show                mostrar a tela atual
  help
  quit`

// finderView is what the shell drives; *services.Finder satisfies it.
type finderView interface {
	UseMyLocation(ctx context.Context) error
	SearchCity(ctx context.Context, city string) error
	Select(ctx context.Context, id domain.UnitID) error
	SetFilter(ctx context.Context, c domain.Category) error
	Refresh(ctx context.Context) error
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive finder session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFinder(cfg, cmd.OutOrStdout(), logger)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := f.Refresh(cmd.Context()); err != nil {
			return err
		}
		return runShell(cmd.Context(), f, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// runShell reads one command per line until quit, EOF or ctx is done.
// Command failures are printed and the session continues.
func runShell(ctx context.Context, f finderView, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		name, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		arg = strings.TrimSpace(arg)

		var err error
		switch strings.ToLower(name) {
		case "":
			continue
		case "quit", "exit", "sair":
			return nil
		case "help", "?":
			fmt.Fprintln(out, shellHelp)
		case "locate":
			err = f.UseMyLocation(ctx)
		case "city":
			err = f.SearchCity(ctx, arg)
		case "select":
			err = f.Select(ctx, domain.UnitID(arg))
		case "filter":
			c := domain.ParseCategory(arg)
			if c == domain.CategoryUnknown {
				err = fmt.Errorf("filtro desconhecido %q", arg)
				break
			}
			err = f.SetFilter(ctx, c)
		case "show":
			err = f.Refresh(ctx)
		default:
			err = fmt.Errorf("comando desconhecido %q (digite help)", name)
		}

		if err != nil && !shownInView(err) {
			fmt.Fprintln(out, shellMessage(err))
		}
	}
}

func shellMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrSelectionUnavailable):
		return "Nenhuma lista de unidades para selecionar. Faça uma busca primeiro."
	case errors.Is(err, services.ErrUnknownUnit):
		return "Unidade não encontrada na lista atual."
	default:
		return domain.DisplayMessage(err)
	}
}

// shownInView reports whether err already reached the rendered view as the
// finder's error message.
func shownInView(err error) bool {
	var le *domain.LocationError
	var fe *domain.FetchError
	return errors.As(err, &le) || errors.As(err, &fe)
}
