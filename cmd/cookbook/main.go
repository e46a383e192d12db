// Command cookbook adds, searches and reviews recipes on a cookbook server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cookbookindex/internal/client"
	"cookbookindex/internal/family"
)

// app carries what every subcommand needs.
type app struct {
	server     string
	familyFile string
	timeout    time.Duration

	in  *bufio.Reader
	out io.Writer
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: bufio.NewReader(in), out: out}

	server := os.Getenv("COOKBOOK_SERVER")
	if server == "" {
		server = client.DefaultServer
	}

	root := &cobra.Command{
		Use:           "cookbook",
		Short:         "Catalog recipes from the family cookbooks",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVar(&a.server, "server", server, "cookbook server URL (env COOKBOOK_SERVER)")
	root.PersistentFlags().StringVar(&a.familyFile, "family-file", family.DefaultPath(), "where the family member list is kept")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "timeout for one server request, 0 for none")

	root.AddCommand(
		a.addCommand(),
		a.searchCommand(),
		a.cookbooksCommand(),
		a.deleteCommand(),
		a.reviewCommand(),
		a.familyCommand(),
	)
	return root
}

func (a *app) client() *client.Client {
	return client.New(a.server, nil)
}

// context bounds one server request by --timeout. Zero leaves the request
// to the transport defaults.
func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// prompt asks for a value on the input stream. EOF yields "".
func (a *app) prompt(label string) string {
	fmt.Fprintf(a.out, "%s: ", label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// promptLines reads lines until a blank line or EOF.
func (a *app) promptLines(label string) string {
	fmt.Fprintf(a.out, "%s (one per line, blank line to finish):\n", label)
	var lines []string
	for {
		line, err := a.in.ReadString('\n')
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}
	return strings.Join(lines, "")
}

func (a *app) loadFamily() (*family.Session, error) {
	return family.Load(a.familyFile)
}
