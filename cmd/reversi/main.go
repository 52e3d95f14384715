// Command reversi plays a hot-seat game in the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jaminalder/codex-reversi/internal/config"
	"github.com/jaminalder/codex-reversi/internal/domain"
	"github.com/jaminalder/codex-reversi/internal/log"
	"github.com/jaminalder/codex-reversi/internal/store"
	"github.com/jaminalder/codex-reversi/internal/term"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "reversi:", err)
		os.Exit(1)
	}

	size := flag.Int("size", cfg.DefaultBoardSize, "board size (positive, even)")
	rules := flag.String("rules", cfg.DefaultRules, "rule set")
	second := flag.Bool("p2-first", false, "let player 2 move first")
	save := flag.Bool("save", false, "save the game after every move")
	resume := flag.Bool("resume", false, "resume the most recently saved game")
	hints := flag.Bool("hints", true, "mark legal moves")
	plain := flag.Bool("plain", false, "disable colours")
	flag.Parse()

	if err := run(cfg, *size, *rules, *second, *save, *resume, term.Options{Hints: *hints, Plain: *plain}); err != nil {
		fmt.Fprintln(os.Stderr, "reversi:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	config.LoadDotEnv()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config, size int, rules string, p2First, save, resume bool, opts term.Options) error {
	ctx := context.Background()
	var st store.Store
	if save || resume {
		s, err := store.NewSQLiteStore(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer s.Close(ctx)
		st = s
	}

	var (
		g       *domain.Game
		created = time.Now()
		err     error
	)
	if resume {
		rec, err := st.LatestResumable(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errors.New("no saved game to resume")
			}
			return err
		}
		g, err = domain.Restore(len(rec.BoardState), rec.BoardState, rec.Rules, domain.Player(rec.NextTurn))
		if err != nil {
			return err
		}
		g.SetID(rec.ID)
		created = rec.CreatedAt
		save = true
	} else {
		first := domain.Player1
		if p2First {
			first = domain.Player2
		}
		g, err = domain.New(size, rules, first, save)
		if err != nil {
			return err
		}
		g.SetID(uuid.NewString())
	}

	persist := func() {
		if !save {
			return
		}
		rec := store.Record{
			ID:         g.ID(),
			BoardState: g.Grid(),
			Rules:      g.RuleID(),
			NextTurn:   int(g.CurrPlayer()),
			Complete:   g.IsGameOver(),
			CreatedAt:  created,
			UpdatedAt:  time.Now(),
		}
		if err := st.SaveGame(ctx, rec); err != nil {
			log.Warn("failed to save game %s: %v", rec.ID, err)
		}
	}
	persist()
	return play(g, os.Stdin, os.Stdout, opts, persist)
}

// play reads commands from in until the game ends, the input is exhausted,
// or the user quits. after runs once after every state change.
func play(g *domain.Game, in io.Reader, out io.Writer, opts term.Options, after func()) error {
	sc := bufio.NewScanner(in)
	for !g.IsGameOver() {
		if err := term.Render(out, g, opts); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s> ", g.CurrPlayer())
		if !sc.Scan() {
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		switch {
		case len(fields) == 0:
			continue
		case fields[0] == "quit" || fields[0] == "q":
			return nil
		case fields[0] == "forfeit":
			if err := g.Forfeit(g.CurrPlayer()); err != nil {
				return err
			}
			after()
			continue
		case len(fields) != 2:
			fmt.Fprintln(out, "enter a move as: row col")
			continue
		}
		r, errR := strconv.Atoi(fields[0])
		c, errC := strconv.Atoi(fields[1])
		if errR != nil || errC != nil {
			fmt.Fprintln(out, "row and col must be numbers")
			continue
		}
		pos := domain.Position{Row: r, Col: c}
		if !g.CheckPlacement(pos) {
			if r < 0 || c < 0 || r >= g.Size() || c >= g.Size() {
				fmt.Fprintln(out, "out of bounds")
			} else {
				fmt.Fprintln(out, "illegal move")
			}
			continue
		}
		if ok, err := g.PlaceTile(pos); err != nil || !ok {
			return fmt.Errorf("move (%d, %d) rejected after check: %v", r, c, err)
		}
		after()
	}
	return term.Render(out, g, opts)
}
