package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/pairrank/internal/adapters/mq/worker"
	service "github.com/okian/pairrank/internal/app"
	"github.com/okian/pairrank/internal/domain/model"
	"github.com/spf13/cobra"
)

const playHelp = `commands:
  1 / 2      choose the first or second item
  b <name>   boost an item by the configured amount
  r          show the ranking
  q          quit`

func newPlayCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Compare items interactively in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			presented := make(chan model.Presentation, 16)
			watch := worker.SinkFunc{ID: "terminal", Fn: func(_ context.Context, e worker.Event) error {
				if e.Kind == model.PairPresented && e.Presentation != nil {
					select {
					case presented <- *e.Presentation:
					default:
					}
				}
				return nil
			}}

			svc, _, err := opts.startService(cmd.Context(), service.WithSinks(watch))
			if err != nil {
				return err
			}
			defer svc.Stop()

			p := &player{
				svc:       svc,
				in:        bufio.NewScanner(cmd.InOrStdin()),
				out:       cmd.OutOrStdout(),
				presented: presented,
			}
			return p.run(cmd.Context())
		},
	}
}

type player struct {
	svc       *service.Service
	in        *bufio.Scanner
	out       io.Writer
	presented <-chan model.Presentation
}

// readLines feeds scanned input lines to the returned channel until the
// input ends or done is closed. errp holds the scanner error once the
// channel is closed.
func (p *player) readLines(done <-chan struct{}, errp *error) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for p.in.Scan() {
			select {
			case lines <- strings.TrimSpace(p.in.Text()):
			case <-done:
				return
			}
		}
		*errp = p.in.Err()
	}()
	return lines
}

func (p *player) run(ctx context.Context) error {
	fmt.Fprintln(p.out, p.svc.Title())
	fmt.Fprintln(p.out, playHelp)

	done := make(chan struct{})
	defer close(done)
	var readErr error
	lines := p.readLines(done, &readErr)

	shown := ""
	for {
		pres, err := p.svc.CurrentPair(ctx)
		if err != nil {
			return err
		}
		if pres.ID != shown {
			shown = pres.ID
			p.show(pres)
			if pres.Auto != nil {
				fmt.Fprintf(p.out, "auto: %s\n", pres.Auto.Reason)
			} else {
				fmt.Fprint(p.out, "> ")
			}
		}

		// Inferred pairs resolve themselves; keep reading commands meanwhile
		// and re-check the current pair on every presentation.
		var presented <-chan model.Presentation
		var timeout <-chan time.Time
		if pres.Auto != nil {
			presented = p.presented
			timeout = time.After(p.svc.AutoResolveDelay() + 2*time.Second)
		}

		select {
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(p.out)
				return readErr
			}
			if pres.Auto != nil && (line == "1" || line == "2") {
				fmt.Fprintln(p.out, "this pair resolves on its own")
				continue
			}
			quit, err := p.handle(ctx, pres, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			if pres.Auto == nil {
				shown = ""
			}
		case <-presented:
		case <-timeout:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handle runs one command line. It returns true when the player quits.
func (p *player) handle(ctx context.Context, pres model.Presentation, line string) (bool, error) {
	switch {
	case line == "q":
		return true, nil
	case line == "1" || line == "2":
		j, _, err := p.svc.SubmitChoice(ctx, pres.ID, int(line[0]-'1'))
		if err != nil {
			fmt.Fprintf(p.out, "choice rejected: %v\n", err)
			return false, nil
		}
		fmt.Fprintf(p.out, "%s over %s\n", j.Winner, j.Loser)
		return false, p.showProgress(ctx)
	case line == "r":
		return false, p.showRanking(ctx)
	case strings.HasPrefix(line, "b "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "b "))
		item, err := p.svc.Boost(ctx, name)
		if err != nil {
			fmt.Fprintf(p.out, "boost failed: %v\n", err)
			return false, nil
		}
		fmt.Fprintf(p.out, "%s boosted to %.0f\n", item.Name, item.Rating)
		return false, nil
	default:
		fmt.Fprintln(p.out, playHelp)
		return false, nil
	}
}

func (p *player) show(pres model.Presentation) {
	fmt.Fprintln(p.out)
	label := pres.Phase
	if pres.Rematch {
		label += ", rematch"
	}
	fmt.Fprintf(p.out, "[%s] 1) %s  vs  2) %s\n", label, pres.Pair.A, pres.Pair.B)
	for i, def := range pres.Definitions {
		if def != "" {
			fmt.Fprintf(p.out, "   %d: %s\n", i+1, def)
		}
	}
}

func (p *player) showProgress(ctx context.Context) error {
	prog, err := p.svc.Progress(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "%d/%d (%d%%) %s\n", prog.Judgments, prog.Target, prog.Percent, prog.Encouragement)
	return nil
}

func (p *player) showRanking(ctx context.Context) error {
	ranking, err := p.svc.Ranking(ctx)
	if err != nil {
		return err
	}
	writeRanking(p.out, ranking)
	return nil
}

func writeRanking(w io.Writer, ranking []model.Standing) {
	for _, s := range ranking {
		fmt.Fprintf(w, "%2d. %-32s %7.1f  ±%5.1f  %d matches\n", s.Rank, s.Name, s.Rating, s.Uncertainty, s.MatchCount)
	}
}
